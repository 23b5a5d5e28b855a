package initiator

import (
	"fmt"
	"os"

	"github.com/MrSnakeDoc/cellar/internal/globalconfig"
	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/prompter"
	"github.com/MrSnakeDoc/cellar/internal/utils"
	"github.com/MrSnakeDoc/cellar/internal/utils/pathutils"
)

// Initiator writes the persistent config, prompting for whatever the flags
// left empty.
type Initiator struct {
	Config   globalconfig.PersistentConfig
	Prompter prompter.Prompter
	Force    bool
}

func New(cfg globalconfig.PersistentConfig, p prompter.Prompter) *Initiator {
	if p == nil {
		p = prompter.New(os.Stdin, os.Stdout)
	}
	return &Initiator{Config: cfg, Prompter: p}
}

func (i *Initiator) Execute() (*globalconfig.PersistentConfig, error) {
	path, err := globalconfig.ConfigPath()
	if err != nil {
		return nil, err
	}
	if ok, _ := utils.FileExists(path); ok && !i.Force {
		overwrite, err := i.Prompter.Confirm(fmt.Sprintf("%s already exists. Overwrite?", path))
		if err != nil {
			return nil, err
		}
		if !overwrite {
			return nil, fmt.Errorf("kept existing configuration at %s", path)
		}
	}

	cfg := i.Config
	if cfg.Root == "" {
		if cfg.Root, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	if cfg.Endpoint == "" {
		if cfg.Endpoint, err = i.ask("S3 endpoint", "s3.amazonaws.com"); err != nil {
			return nil, err
		}
	}
	if cfg.Bucket == "" {
		if cfg.Bucket, err = i.ask("Archive bucket", ""); err != nil {
			return nil, err
		}
	}

	if cfg.Root, err = pathutils.ToAbsolutePath(cfg.Root); err != nil {
		return nil, err
	}
	if fi, err := os.Stat(cfg.Root); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", cfg.Root)
	}

	if err := cfg.Save(); err != nil {
		return nil, err
	}
	logger.Debug("wrote %s", path)
	return &cfg, nil
}

func (i *Initiator) ask(q, def string) (string, error) {
	v, err := i.Prompter.Prompt(q, def)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("a value is required")
	}
	return v, nil
}
