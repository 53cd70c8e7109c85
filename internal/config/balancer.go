package config

import "fmt"

// BalancerConfigPathEnv is the environment variable the balancer binary
// checks when no -config flag is given.
const BalancerConfigPathEnv = "BPBD_BALANCER_CONFIG_PATH"

// BalancerConfig holds the balancer's runtime configuration.
type BalancerConfig struct {
	// ListenAddr is the host:port the balancer accepts client WebSocket
	// connections on.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// AdapterListenAddr is the host:port translator servers connect to.
	AdapterListenAddr string `mapstructure:"adapter_listen_addr" yaml:"adapter_listen_addr"`

	// TLSMode selects the cipher-suite tier (mozilla_old/intermediate/modern).
	TLSMode string `mapstructure:"tls_mode" yaml:"tls_mode"`

	// TLSCertFile and TLSKeyFile are the server certificate/key pair; empty
	// means serve plain ws://.
	TLSCertFile string `mapstructure:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file" yaml:"tls_key_file"`

	// LogLevel controls slog verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// LoadBalancerConfig reads the balancer configuration from configPath (or
// BPBD_BALANCER_CONFIG_PATH if empty), applying defaults and environment
// overrides.
func LoadBalancerConfig(configPath string) (*BalancerConfig, error) {
	v := newViper("BPBD_BALANCER", configPath, BalancerConfigPathEnv)

	v.SetDefault("listen_addr", ":9001")
	v.SetDefault("adapter_listen_addr", ":9002")
	v.SetDefault("tls_mode", "intermediate")
	v.SetDefault("log_level", "info")

	if err := readIfPresent(v); err != nil {
		return nil, err
	}

	var cfg BalancerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling balancer config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("balancer config validation: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required fields are present and consistent.
func (c *BalancerConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.AdapterListenAddr == "" {
		return fmt.Errorf("adapter_listen_addr is required")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}
	return nil
}
