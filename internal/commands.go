package internal

import (
	"github.com/MrSnakeDoc/cellar/internal/middleware"
	"github.com/spf13/cobra"
)

var withOptions = middleware.UseMiddlewareChain(middleware.RequireConfig, middleware.LoadOptions)

var defaultCommands = []middleware.CommandFactory{
	NewInitCmd,
	withOptions(NewSyncCmd),
	withOptions(NewStatusCmd),
	withOptions(NewRestoreCmd),
	withOptions(NewDeleteCmd),
}

func RegisterSubCommands(cmd *cobra.Command) {
	for _, factory := range defaultCommands {
		cmd.AddCommand(factory())
	}
}
