package webull

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbjapi/pkg/broker"
)

func TestRegistryBuildsClient(t *testing.T) {
	provider, err := broker.GetProvider("webull", &broker.ProviderConfig{
		AppKey:    "k",
		AppSecret: "s",
		BaseURL:   "https://sandbox.example.test/openapi",
	})
	require.NoError(t, err)

	client, ok := provider.(*Client)
	require.True(t, ok)
	assert.Equal(t, "https://sandbox.example.test/openapi", client.BaseURL())
}

func TestRegistryRejectsMissingCredentials(t *testing.T) {
	_, err := broker.GetProvider("webull", &broker.ProviderConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_key")
}
