package internal

import (
	"github.com/MrSnakeDoc/cellar/internal/errs"
	"github.com/MrSnakeDoc/cellar/internal/middleware"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
	"github.com/MrSnakeDoc/cellar/internal/request"

	"github.com/spf13/cobra"
)

func NewRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore [paths...]",
		Short: "Mark archived files for restore on the next sync",
		Long: `Rename the placeholder of each archived file to its restore form.
The next "cellar sync" requests the restore from cold storage and, once the
object is readable, downloads it back in place.

Examples:
  cellar restore runs/s1.bam runs/s2.cram
  cellar restore --cancel runs/s1.bam`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return middleware.FlagComboError(errs.ProvidePaths, "restore", "restore")
			}
			cancel, err := cmd.Flags().GetBool("cancel")
			if err != nil {
				return err
			}
			return markPlaceholders(cmd, args, models.PlaceholderRestore, cancel)
		},
	}

	cmd.Flags().Bool("cancel", false, "Revert to a plain archived placeholder")
	return cmd
}

func markPlaceholders(cmd *cobra.Command, args []string, t models.PlaceholderType, cancel bool) error {
	opts, err := middleware.Options(cmd)
	if err != nil {
		return err
	}
	if cancel {
		t = models.PlaceholderStandard
	}
	layout := placeholder.NewLayout(opts.Root, opts.Prefix, opts.PlaceholderSuffix)
	_, err = request.New(layout).Execute(args, t)
	return err
}
