package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

// Config holds all configuration for scenecore.
type Config struct {
	Project ProjectConfig `mapstructure:"project"`
	Undo    UndoConfig    `mapstructure:"undo"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ProjectConfig holds where projects live and which features they may use.
type ProjectConfig struct {
	Dir          string `mapstructure:"dir"`
	FeatureLevel int    `mapstructure:"feature_level"`
	// LoadConcurrency bounds parallel loads in validate.
	LoadConcurrency int `mapstructure:"load_concurrency"`
}

// UndoConfig holds undo stack settings.
type UndoConfig struct {
	// MergeEdits coalesces consecutive numeric edits of one property.
	MergeEdits bool `mapstructure:"merge_edits"`
}

// WatchConfig holds file monitoring settings.
type WatchConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseDir string `mapstructure:"base_dir"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the default locations and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from file, or from config.yaml in
// ~/.scenecore or the working directory when file is empty. Environment
// variables prefixed SCENECORE_ override both.
func LoadFile(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("project.dir", filepath.Join(homeDir(), ".scenecore", "projects"))
	v.SetDefault("project.feature_level", usertypes.FeatureLevelMax)
	v.SetDefault("project.load_concurrency", 4)

	v.SetDefault("undo.merge_edits", true)

	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.base_dir", ".")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir(), ".scenecore"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCENECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Project.Dir == "" {
		return fmt.Errorf("project.dir must not be empty")
	}
	if c.Project.FeatureLevel < usertypes.FeatureLevelMin || c.Project.FeatureLevel > usertypes.FeatureLevelMax {
		return fmt.Errorf("project.feature_level must be between %d and %d", usertypes.FeatureLevelMin, usertypes.FeatureLevelMax)
	}
	if c.Project.LoadConcurrency <= 0 {
		return fmt.Errorf("project.load_concurrency must be greater than 0")
	}
	if c.Watch.Enabled && c.Watch.BaseDir == "" {
		return fmt.Errorf("watch.base_dir must not be empty when watching is enabled")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
