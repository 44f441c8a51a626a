package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/gateward/gateward/pkg/logger"
)

const envPrefix = "GATEWARD"

// Load reads configuration from config.yaml (working directory or
// /etc/gateward/) with GATEWARD_* environment variables taking precedence.
// A missing config file is fine; defaults and environment cover everything.
func Load() (*Config, *viper.Viper, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/gateward/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Watch re-reads the config file on change and hands the result to onChange.
// A reload that fails validation is logged and dropped; the running config
// stays in effect.
func Watch(v *viper.Viper, log logger.Logger, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		ctx := context.Background()
		cfg, err := unmarshal(v)
		if err != nil {
			log.Warn(ctx, "ignoring invalid config reload",
				logger.String("file", e.Name),
				logger.Err(err),
			)
			return
		}
		log.Info(ctx, "configuration reloaded", logger.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
