package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "wbjapi/pkg/broker/sim"    // register the sim provider type
	_ "wbjapi/pkg/broker/webull" // register the webull provider type
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	path := writeConfig(t, t.TempDir(), "config.yaml", "Env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.True(t, cfg.IsTestEnv())
	assert.Equal(t, 10, cfg.TTL.Short)
	assert.Equal(t, 60, cfg.TTL.Medium)
	assert.Equal(t, 300, cfg.TTL.Long)
	assert.Equal(t, 10, cfg.Postgres.MaxOpen)
	assert.Equal(t, 5, cfg.Postgres.MaxIdle)
	assert.Nil(t, cfg.Broker.Value)
	assert.Equal(t, filepath.Dir(path), cfg.BaseDir())
}

func TestLoadRejectsUnknownEnv(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	path := writeConfig(t, t.TempDir(), "config.yaml", "Env: staging\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env must be one of")
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	path := writeConfig(t, t.TempDir(), "config.yaml", `
Env: dev
TTL:
  Short: -1
  Medium: 60
  Long: 300
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttl.short")
}

func TestLoadHydratesBrokerSection(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	dir := t.TempDir()
	writeConfig(t, dir, "broker.yaml", `
default: paper
providers:
  paper:
    type: sim
    account_id: SIM-042
`)
	path := writeConfig(t, dir, "config.yaml", `
Env: dev
Broker:
  File: broker.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Broker.Value)
	assert.Equal(t, "paper", cfg.Broker.Value.Default)
	require.Contains(t, cfg.Broker.Value.Providers, "paper")
	assert.Equal(t, "SIM-042", cfg.Broker.Value.Providers["paper"].AccountID)
	assert.Equal(t, filepath.Join(dir, "broker.yaml"), cfg.Broker.File)
}

func TestLoadSurfacesBrokerSectionErrors(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	dir := t.TempDir()
	writeConfig(t, dir, "broker.yaml", `
providers:
  real:
    type: webull
`)
	path := writeConfig(t, dir, "config.yaml", `
Env: dev
Broker:
  File: broker.yaml
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load broker config")
}

func TestMustLoadPanicsOnMissingFile(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	})
}
