package internal

import (
	"github.com/MrSnakeDoc/cellar/internal/core"
	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/middleware"
	"github.com/MrSnakeDoc/cellar/internal/status"

	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	var (
		f     runFlags
		state []string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the reconciled state of every key without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := middleware.Options(cmd)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, opts); err != nil {
				return err
			}
			factory, err := newRemoteFactory(opts)
			if err != nil {
				return err
			}

			plan, err := core.New(*opts, factory).Plan(cmd.Context())
			if err != nil {
				return err
			}

			colored := !logger.FlagJSON
			return status.New(cmd.OutOrStdout(), colored).Execute(plan, state)
		},
	}

	f.register(cmd)
	cmd.Flags().StringSliceVar(&state, "state", nil, "Only show keys in these states (e.g. error, upload-candidate)")
	return cmd
}
