package config

import "fmt"

// ClientConfigPathEnv is the environment variable the client binary checks
// when no -config flag is given.
const ClientConfigPathEnv = "BPBD_CLIENT_CONFIG_PATH"

// ClientConfig holds the CLI client's runtime configuration.
type ClientConfig struct {
	// BalancerURL is the ws(s):// endpoint of the balancer's client port.
	BalancerURL string `mapstructure:"balancer_url" yaml:"balancer_url"`

	// TLSMode selects the cipher-suite tier (mozilla_old/intermediate/modern).
	TLSMode string `mapstructure:"tls_mode" yaml:"tls_mode"`

	// SourceLang/TargetLang select which translation pipeline to request.
	SourceLang string `mapstructure:"source_lang" yaml:"source_lang"`
	TargetLang string `mapstructure:"target_lang" yaml:"target_lang"`

	// IsTransInfo asks the balancer to include per-sentence stack_load
	// diagnostics in the response.
	IsTransInfo bool `mapstructure:"is_trans_info" yaml:"is_trans_info"`

	// LogLevel controls slog verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// LoadClientConfig reads the client's configuration from configPath (or
// BPBD_CLIENT_CONFIG_PATH if empty), applying defaults and environment
// overrides.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	v := newViper("BPBD_CLIENT", configPath, ClientConfigPathEnv)

	v.SetDefault("tls_mode", "intermediate")
	v.SetDefault("log_level", "info")
	v.SetDefault("is_trans_info", false)

	if err := readIfPresent(v); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling client config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client config validation: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required fields are present.
func (c *ClientConfig) Validate() error {
	if c.BalancerURL == "" {
		return fmt.Errorf("balancer_url is required")
	}
	if c.SourceLang == "" || c.TargetLang == "" {
		return fmt.Errorf("source_lang and target_lang are required")
	}
	return nil
}
