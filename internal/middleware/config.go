package middleware

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/cellar/internal/config"
	"github.com/MrSnakeDoc/cellar/internal/globalconfig"
	"github.com/spf13/cobra"
)

// RequireConfig loads ~/.config/cellar/config.yml into the command context.
func RequireConfig(cmd *cobra.Command, args []string, next func(cmd *cobra.Command, args []string) error) error {
	pconf, err := globalconfig.LoadPersistentConfig()
	if err != nil {
		return fmt.Errorf("missing config: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), CtxKeyPConfig, pconf))
	return next(cmd, args)
}

// LoadOptions turns the persistent config into engine options. Must run after
// RequireConfig.
func LoadOptions(cmd *cobra.Command, args []string, next func(cmd *cobra.Command, args []string) error) error {
	pconf, err := Get[*globalconfig.PersistentConfig](cmd, CtxKeyPConfig)
	if err != nil {
		return err
	}

	opts, err := pconf.Options()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), CtxKeyOptions, &opts))
	return next(cmd, args)
}

// Options returns the options injected by LoadOptions.
func Options(cmd *cobra.Command) (*config.Options, error) {
	return Get[*config.Options](cmd, CtxKeyOptions)
}
