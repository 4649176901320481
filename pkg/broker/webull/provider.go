package webull

import (
	"net/http"

	"wbjapi/pkg/broker"
)

// The Client already satisfies broker.Provider; the registry hook below
// lets pkg/broker config files construct one by type name.

var _ broker.Provider = (*Client)(nil)

func init() {
	broker.RegisterProvider("webull", func(name string, cfg *broker.ProviderConfig) (broker.Provider, error) {
		opts := []ClientOption{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, WithMaxRetries(cfg.MaxRetries))
		}
		return NewClient(Credentials{AppKey: cfg.AppKey, AppSecret: cfg.AppSecret}, opts...)
	})
}
