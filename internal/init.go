package internal

import (
	"github.com/MrSnakeDoc/cellar/internal/globalconfig"
	"github.com/MrSnakeDoc/cellar/internal/initiator"
	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/prompter"

	"github.com/spf13/cobra"
)

func NewInitCmd() *cobra.Command {
	var cfg globalconfig.PersistentConfig
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the cellar configuration",
		Long: `Initialize cellar configuration.
This command will:
- Create the configuration directory in ~/.config/cellar
- Save the bucket, endpoint and archive root (current directory by default)
- Prompt for the endpoint and bucket when not given as flags`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			i := initiator.New(cfg, prompter.New(cmd.InOrStdin(), cmd.OutOrStdout()))
			i.Force = force

			saved, err := i.Execute()
			if err != nil {
				return err
			}

			logger.Success("Initialized cellar for %s -> s3://%s", saved.Root, saved.Bucket)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Root, "root", "", "Archive root (default: current directory)")
	f.StringVar(&cfg.Endpoint, "endpoint", "", "S3 endpoint")
	f.StringVar(&cfg.Region, "region", "", "Bucket region")
	f.StringVar(&cfg.Bucket, "bucket", "", "Archive bucket")
	f.StringVar(&cfg.Prefix, "prefix", "", "Key prefix inside the bucket")
	f.BoolVar(&cfg.Insecure, "insecure", false, "Use plain HTTP")
	f.BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")

	return cmd
}
