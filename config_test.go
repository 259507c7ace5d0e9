package accumulate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadServiceConfig_Yaml(t *testing.T) {
	path := writeTestConfig(t, "signer.yaml", `
network: kermit
listenAddress: 0.0.0.0:9000
preparedTTL: 2m
rateBurst: 5
`)

	cfg, err := LoadServiceConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "kermit", cfg.Network)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddress)
	assert.Equal(t, 2*time.Minute, cfg.PreparedTTL)
	assert.Equal(t, 5, cfg.RateBurst)
	assert.Equal(t, DefaultSweepInterval, cfg.SweepInterval, "missing keys keep their default")
	assert.Equal(t, float64(20), cfg.RateLimit)
	require.NoError(t, cfg.Validate())
}

func TestLoadServiceConfig_Toml(t *testing.T) {
	path := writeTestConfig(t, "signer.toml", `
network = "fozzie"
database_path = "/tmp/prepared.db"
sweep_interval = "30s"
rate_limit = 2.5
`)

	cfg, err := LoadServiceConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "fozzie", cfg.Network)
	assert.Equal(t, "/tmp/prepared.db", cfg.DatabasePath)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, DefaultPreparedTTL, cfg.PreparedTTL)
	assert.Equal(t, "localhost:8420", cfg.ListenAddress)
}

func TestLoadServiceConfig_Errors(t *testing.T) {
	_, err := LoadServiceConfig(writeTestConfig(t, "signer.json", `{}`))
	assert.Error(t, err)

	_, err = LoadServiceConfig(writeTestConfig(t, "signer.yaml", "preparedTTL: soon\n"))
	assert.Error(t, err)

	_, err = LoadServiceConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestServiceConfig_ApplyEnv(t *testing.T) {
	env := map[string]string{
		"ACCUMULATE_NETWORK":        "local",
		"ACCUMULATE_PREPARED_TTL":   "90s",
		"ACCUMULATE_RATE_LIMIT":     "7",
		"ACCUMULATE_LOG_LEVEL":      "debug",
		"ACCUMULATE_LISTEN_ADDRESS": " ",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := DefaultServiceConfig()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "local", cfg.Network)
	assert.Equal(t, 90*time.Second, cfg.PreparedTTL)
	assert.Equal(t, float64(7), cfg.RateLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "localhost:8420", cfg.ListenAddress, "blank values are ignored")

	env["ACCUMULATE_RATE_BURST"] = "many"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestServiceConfig_Validate(t *testing.T) {
	cfg := DefaultServiceConfig()
	require.NoError(t, cfg.Validate())

	cfg.Network = "nowhere"
	assert.Error(t, cfg.Validate())

	cfg = DefaultServiceConfig()
	cfg.PreparedTTL = 0
	assert.Error(t, cfg.Validate())
}
