package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Option func(v *viper.Viper) error

// WithEnvPrefix only reads environment variables starting with prefix, e.g. prefix_HTTP_PORT.
func WithEnvPrefix(prefix string) Option {
	return func(v *viper.Viper) error {
		v.SetEnvPrefix(prefix)
		return nil
	}
}

// WithFlag lets an explicitly set command line flag override key.
func WithFlag(key string, f *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if f == nil || !f.Changed {
			return nil
		}

		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %v", f.Name, err)
		}
		return nil
	}
}

// Load config into the config struct, config must be a pointer to the config struct.
// Values already in config are the defaults. They are overridden by the file, if
// any, then by environment variables (key a.b read from A_B), then by flags.
func Load(file string, config any, opts ...Option) error {
	v := viper.New()
	m := make(map[string]any)

	if err := mapstructure.Decode(config, &m); err != nil {
		return fmt.Errorf("mapstructure: %v", err)
	}

	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("merge config map: %v", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("read config from file %s: %v", file, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return err
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshal config: %v", err)
	}

	return nil
}
