// Package config loads the YAML configuration for each of the three
// binaries (balancer, translator server, client) with
// github.com/spf13/viper, the way host-agent/internal/config does: a
// struct with mapstructure/yaml tags, viper.SetDefault for built-ins, a
// file resolved from a -config flag or environment variable, then
// viper.AutomaticEnv with prefix-bound overrides, and a Validate() error
// checked once at startup.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// newViper builds a viper instance pre-wired with the standard env prefix
// and config-file resolution order shared by all three binaries: an
// explicit configPath argument wins, then the named environment variable,
// then no file at all (defaults and env vars only).
func newViper(envPrefix, configPath, envPathVar string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = os.Getenv(envPathVar)
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	return v
}

// readIfPresent loads the config file v was pointed at, if any, tolerating
// "no file configured" and "file does not exist" as non-fatal — both
// binaries can run on defaults plus environment variables alone.
func readIfPresent(v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		return nil
	}
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}
