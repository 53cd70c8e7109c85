package config

import "fmt"

// ServerConfigPathEnv is the environment variable the translator-server
// binary checks when no -config flag is given.
const ServerConfigPathEnv = "BPBD_SERVER_CONFIG_PATH"

// ServerConfig holds one translator server's runtime configuration.
type ServerConfig struct {
	// BalancerURL is the ws(s):// endpoint of the balancer's adapter port
	// this server registers against.
	BalancerURL string `mapstructure:"balancer_url" yaml:"balancer_url"`

	// TLSMode selects the cipher-suite tier (mozilla_old/intermediate/modern).
	TLSMode string `mapstructure:"tls_mode" yaml:"tls_mode"`

	// WorkerPoolSize bounds how many sentences of one job this server
	// decodes concurrently (C6's conc/pool.Pool size). 0 means unbounded.
	WorkerPoolSize int `mapstructure:"worker_pool_size" yaml:"worker_pool_size"`

	// SourceLang/TargetLang is the single language pair this server
	// instance translates.
	SourceLang string `mapstructure:"source_lang" yaml:"source_lang"`
	TargetLang string `mapstructure:"target_lang" yaml:"target_lang"`

	// LMFile, TMFile, RMFile are the on-disk model paths loaded at startup.
	LMFile string `mapstructure:"lm_file" yaml:"lm_file"`
	TMFile string `mapstructure:"tm_file" yaml:"tm_file"`
	RMFile string `mapstructure:"rm_file" yaml:"rm_file"`

	// LogLevel controls slog verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// LoadServerConfig reads a translator server's configuration from
// configPath (or BPBD_SERVER_CONFIG_PATH if empty), applying defaults and
// environment overrides.
func LoadServerConfig(configPath string) (*ServerConfig, error) {
	v := newViper("BPBD_SERVER", configPath, ServerConfigPathEnv)

	v.SetDefault("tls_mode", "intermediate")
	v.SetDefault("worker_pool_size", 8)
	v.SetDefault("log_level", "info")

	if err := readIfPresent(v); err != nil {
		return nil, err
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling server config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server config validation: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required fields are present.
func (c *ServerConfig) Validate() error {
	if c.BalancerURL == "" {
		return fmt.Errorf("balancer_url is required")
	}
	if c.SourceLang == "" || c.TargetLang == "" {
		return fmt.Errorf("source_lang and target_lang are required")
	}
	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("worker_pool_size must be >= 0, got %d", c.WorkerPoolSize)
	}
	return nil
}
