package globalconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/config"
	"github.com/MrSnakeDoc/cellar/internal/utils"
	"github.com/MrSnakeDoc/cellar/internal/utils/pathutils"

	"gopkg.in/yaml.v3"
)

// PersistentConfig is ~/.config/cellar/config.yml. Zero values fall back to
// config.DefaultOptions.
type PersistentConfig struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix,omitempty"`
	Root     string `yaml:"root"`

	MinAgeDays    int      `yaml:"min_age_days,omitempty"`
	MinSize       string   `yaml:"min_size,omitempty"`
	Extensions    []string `yaml:"extensions,omitempty"`
	ExtensionMode string   `yaml:"extension_mode,omitempty"`

	StorageClass  string `yaml:"storage_class,omitempty"`
	RestoreDays   int    `yaml:"restore_days,omitempty"`
	RestoreTier   string `yaml:"restore_tier,omitempty"`
	RestoreBucket string `yaml:"restore_bucket,omitempty"`

	Workers       int    `yaml:"workers,omitempty"`
	Retries       int    `yaml:"retries,omitempty"`
	RetryInterval string `yaml:"retry_interval,omitempty"`

	PlaceholderSuffix string `yaml:"placeholder_suffix,omitempty"`
}

const (
	configDir  = ".config/cellar"
	configFile = "config.yml"
)

func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

func ConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

func LoadPersistentConfig() (*PersistentConfig, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no configuration found. Please run 'cellar init' first")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg PersistentConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	absPath, err := pathutils.ToAbsolutePath(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	if fi, err := os.Stat(absPath); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("root directory not found at %s", cfg.Root)
	}

	cfg.Root = absPath
	return &cfg, nil
}

func (c *PersistentConfig) Save() error {
	configDirRights := 0o755
	configFileRights := 0o644

	fullConfigDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(fullConfigDir, os.FileMode(configDirRights)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *c
	homePath, err := pathutils.ToHomePathFormat(c.Root)
	if err != nil {
		return fmt.Errorf("failed to convert to home path format: %w", err)
	}
	out.Root = homePath

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(filepath.Join(fullConfigDir, configFile), data, os.FileMode(configFileRights))
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Options merges the file over config.DefaultOptions.
func (c *PersistentConfig) Options() (config.Options, error) {
	o := config.DefaultOptions()
	o.Root = c.Root
	o.Bucket = c.Bucket
	o.Prefix = c.Prefix
	o.Endpoint = c.Endpoint
	o.Region = c.Region
	o.Secure = !c.Insecure
	o.RestoreBucket = c.RestoreBucket

	setInt(&o.MinAgeDays, c.MinAgeDays)
	setInt(&o.RestoreDays, c.RestoreDays)
	setInt(&o.MaxWorkers, c.Workers)
	setInt(&o.Retries, c.Retries)
	setString(&o.ExtensionMode, c.ExtensionMode)
	setString(&o.StorageClass, c.StorageClass)
	setString(&o.RestoreTier, c.RestoreTier)
	setString(&o.PlaceholderSuffix, c.PlaceholderSuffix)
	if len(c.Extensions) > 0 {
		o.Extensions = append([]string(nil), c.Extensions...)
	}

	if c.MinSize != "" {
		n, err := utils.ParseSize(c.MinSize)
		if err != nil {
			return o, fmt.Errorf("min_size: %w", err)
		}
		o.MinSize = n
	}
	if c.RetryInterval != "" {
		d, err := time.ParseDuration(c.RetryInterval)
		if err != nil {
			return o, fmt.Errorf("retry_interval: %w", err)
		}
		o.RetryInterval = d
	}
	return o, nil
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
