package config

import (
	"fmt"
	"path/filepath"

	"wbjapi/pkg/broker"
)

// MustLoadBroker loads etc/broker.yaml from the project root and panics on
// error. It isolates the broker section so tests that only need providers
// do not pull in the full application config.
func MustLoadBroker() *broker.Config {
	root := MustProjectRoot()
	path := filepath.Join(root, "etc", "broker.yaml")
	cfg, err := broker.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load broker config %s: %w", path, err))
	}
	return cfg
}

// MustBuildBrokerProviders loads broker config from the default path and
// builds provider instances; returns the map and default provider name.
func MustBuildBrokerProviders() (map[string]broker.Provider, string) {
	cfg := MustLoadBroker()
	providers, err := cfg.BuildProviders()
	if err != nil {
		panic(err)
	}
	return providers, cfg.Default
}
