// Package config loads estimator configuration from file and environment.
// Precedence, highest first: ORDERCAST_* environment variables, the config
// file, built-in defaults. A missing config file is not an error.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Training  TrainingConfig  `mapstructure:"training"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ArtifactsConfig controls model persistence.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// TrainingConfig controls cross-validation and the sweep.
type TrainingConfig struct {
	CVSplits  int   `mapstructure:"cv_splits"`
	CVRepeats int   `mapstructure:"cv_repeats"`
	Seed      int64 `mapstructure:"seed"`
}

// Load reads configuration. An empty path searches the usual locations.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("training.cv_splits", 5)
	v.SetDefault("training.cv_repeats", 3)
	v.SetDefault("training.seed", 42)

	v.SetEnvPrefix("ORDERCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ordercast")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ordercast")
	}

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
