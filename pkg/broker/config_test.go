package broker_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wbjapi/pkg/broker"
	_ "wbjapi/pkg/broker/sim"
	_ "wbjapi/pkg/broker/webull"
)

func TestLoadConfigAndBuildProviders(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("WEBULL_APP_KEY", "test-app-key")
	os.Setenv("WEBULL_APP_SECRET", "test-app-secret")
	t.Cleanup(func() {
		os.Unsetenv("WEBULL_APP_KEY")
		os.Unsetenv("WEBULL_APP_SECRET")
	})

	configYAML := `
default: webull_jp
providers:
  webull_jp:
    type: webull
    app_key: ${WEBULL_APP_KEY}
    app_secret: ${WEBULL_APP_SECRET}
    account_id: ACC-123
    timeout: 45s
    max_retries: 4
  paper:
    type: sim
    account_id: SIM-001
`
	path := filepath.Join(dir, "broker.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := broker.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Default != "webull_jp" {
		t.Fatalf("unexpected default: %s", cfg.Default)
	}
	if got := cfg.Providers["webull_jp"].AppKey; got != "test-app-key" {
		t.Fatalf("env expansion failed, app_key = %q", got)
	}
	if cfg.Providers["webull_jp"].Timeout.Seconds() != 45 {
		t.Fatalf("timeout not parsed: %v", cfg.Providers["webull_jp"].Timeout)
	}

	providers, err := cfg.BuildProviders()
	if err != nil {
		t.Fatalf("BuildProviders error: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(providers))
	}
	if _, ok := providers["webull_jp"]; !ok {
		t.Fatalf("provider map missing webull_jp")
	}
	if _, ok := providers["paper"]; !ok {
		t.Fatalf("provider map missing paper")
	}
}

func TestLoadConfigRequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	configYAML := `
providers:
  webull_jp:
    type: webull
`
	path := filepath.Join(dir, "broker.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := broker.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "app_key") {
		t.Fatalf("expected app_key error, got %v", err)
	}
}

func TestLoadConfigRejectsUnknownType(t *testing.T) {
	cfg := strings.NewReader(`
providers:
  main:
    type: robinhood
`)
	_, err := broker.LoadConfigFromReader(cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}

func TestLoadConfigRejectsUnknownDefault(t *testing.T) {
	cfg := strings.NewReader(`
default: missing
providers:
  paper:
    type: sim
`)
	_, err := broker.LoadConfigFromReader(cfg)
	if err == nil || !strings.Contains(err.Error(), "default provider") {
		t.Fatalf("expected default provider error, got %v", err)
	}
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	cfg := strings.NewReader(`
providers:
  paper:
    type: sim
    timeout: soon
`)
	_, err := broker.LoadConfigFromReader(cfg)
	if err == nil || !strings.Contains(err.Error(), "invalid timeout") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
