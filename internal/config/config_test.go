package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadBalancerConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "listen_addr: \":9100\"\nadapter_listen_addr: \":9101\"\n")
	cfg, err := LoadBalancerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, "intermediate", cfg.TLSMode)
}

func TestLoadBalancerConfigRejectsMissingListenAddr(t *testing.T) {
	path := writeConfigFile(t, "listen_addr: \"\"\nadapter_listen_addr: \":9101\"\n")
	_, err := LoadBalancerConfig(path)
	assert.Error(t, err)
}

func TestLoadBalancerConfigRejectsMismatchedTLSFiles(t *testing.T) {
	path := writeConfigFile(t, "listen_addr: \":9100\"\nadapter_listen_addr: \":9101\"\ntls_cert_file: cert.pem\n")
	_, err := LoadBalancerConfig(path)
	assert.Error(t, err)
}

func TestLoadServerConfigAppliesWorkerPoolDefault(t *testing.T) {
	path := writeConfigFile(t, "balancer_url: \"ws://localhost:9002\"\nsource_lang: en\ntarget_lang: fr\n")
	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.WorkerPoolSize)
}

func TestLoadClientConfigRequiresLanguagePair(t *testing.T) {
	path := writeConfigFile(t, "balancer_url: \"ws://localhost:9001\"\n")
	_, err := LoadClientConfig(path)
	assert.Error(t, err)
}

func TestLoadClientConfigSucceedsWithFullFile(t *testing.T) {
	path := writeConfigFile(t, "balancer_url: \"ws://localhost:9001\"\nsource_lang: en\ntarget_lang: fr\nis_trans_info: true\n")
	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsTransInfo)
}

func TestMissingConfigFileFallsBackToEnvAndDefaults(t *testing.T) {
	t.Setenv("BPBD_BALANCER_LISTEN_ADDR", ":9200")
	t.Setenv("BPBD_BALANCER_ADAPTER_LISTEN_ADDR", ":9201")
	cfg, err := LoadBalancerConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":9200", cfg.ListenAddr)
	assert.Equal(t, ":9201", cfg.AdapterListenAddr)
}
