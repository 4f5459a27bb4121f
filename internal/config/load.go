package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional file, environment variables (prefixed
// ADJOIN_), and whatever has already been bound to v by cobra flags, in that order
// of increasing precedence — the same layering stratastor/rodent's config.LoadConfig
// uses for its viper-backed CLI configuration.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	cfg, err := New()
	if err != nil {
		return nil, err
	}

	v.SetEnvPrefix("ADJOIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}
