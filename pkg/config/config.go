// Package config loads console settings from csak.yaml, CSAK_* environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tb0hdan/csak/pkg/types"
)

const (
	configName = "csak"
	envPrefix  = "CSAK"
)

// Config is the validated runtime configuration.
type Config struct {
	ScriptsDir  string        `mapstructure:"scripts_dir" validate:"required"`
	Extension   string        `mapstructure:"extension" validate:"required,startswith=."`
	Interpreter string        `mapstructure:"interpreter"`
	Mode        string        `mapstructure:"mode" validate:"oneof=stream capture"`
	Debug       bool          `mapstructure:"debug"`
	History     HistoryConfig `mapstructure:"history"`
	Server      ServerConfig  `mapstructure:"server"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database" validate:"required_if=Enabled true"`
}

// ServerConfig controls the MCP front-end.
type ServerConfig struct {
	Bind     string `mapstructure:"bind" validate:"required,hostname_port"`
	MaxLines int    `mapstructure:"max_lines" validate:"min=1,max=100000"`
}

// Flag names bound to configuration keys.
var flagKeys = map[string]string{
	"scripts":     "scripts_dir",
	"interpreter": "interpreter",
	"mode":        "mode",
	"debug":       "debug",
	"db":          "history.database",
	"bind":        "server.bind",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scripts_dir", types.DefaultScriptsDir)
	v.SetDefault("extension", types.DefaultExtension)
	v.SetDefault("interpreter", types.DefaultInterpreter)
	v.SetDefault("mode", types.ModeStream)
	v.SetDefault("debug", false)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.database", defaultDatabasePath())
	v.SetDefault("server.bind", "localhost:8989")
	v.SetDefault("server.max_lines", types.MaxDefaultLines)
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".csak", "history.db")
	}
	return filepath.Join(home, ".csak", "history.db")
}

// Load reads configuration. An explicit path must exist; otherwise csak.yaml is
// looked up in the working directory and $HOME/.csak and is optional. Flags that
// were set on the command line override every other source.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.csak")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
		if flag := flags.Lookup("no-history"); flag != nil && flag.Changed {
			v.Set("history.enabled", false)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
