package internal

import (
	"fmt"

	"github.com/MrSnakeDoc/cellar/internal/errs"
	"github.com/MrSnakeDoc/cellar/internal/middleware"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/prompter"

	"github.com/spf13/cobra"
)

func NewDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [paths...]",
		Short: "Mark archived files for permanent deletion on the next sync",
		Long: `Rename the placeholder of each archived file to its delete form.
The next "cellar sync" deletes the remote object and then the placeholder.
A local copy, if any, is kept.

Examples:
  cellar delete runs/old.bam --yes
  cellar delete --cancel runs/old.bam`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return middleware.FlagComboError(errs.ProvidePaths, "delete", "delete")
			}

			cancel, err := cmd.Flags().GetBool("cancel")
			if err != nil {
				return err
			}
			yes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return err
			}

			if !cancel && !yes {
				ok, err := prompter.New(cmd.InOrStdin(), cmd.OutOrStdout()).
					Confirm(fmt.Sprintf("Mark %d file(s) for permanent remote deletion?", len(args)))
				if err != nil || !ok {
					return middleware.FlagComboError(errs.DeleteNeedsConfirm)
				}
			}

			return markPlaceholders(cmd, args, models.PlaceholderDelete, cancel)
		},
	}

	cmd.Flags().Bool("cancel", false, "Revert to a plain archived placeholder")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}
