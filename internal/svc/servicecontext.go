package svc

import (
	"errors"
	"log"
	"strings"

	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/syncx"

	"wbjapi"
	"wbjapi/internal/config"
	"wbjapi/internal/store"
	"wbjapi/pkg/broker"
	_ "wbjapi/pkg/broker/sim"    // register the sim provider
	_ "wbjapi/pkg/broker/webull" // register the webull provider
	"wbjapi/pkg/reconcile"
)

// errCacheMiss marks cache misses for go-zero's cache layer.
var errCacheMiss = errors.New("cache miss")

type ServiceContext struct {
	Config config.Config

	BrokerConfig    *broker.Config
	BrokerProviders map[string]broker.Provider
	DefaultBroker   broker.Provider
	Client          *wbjapi.Client

	// Optional persistence; nil when Postgres/Redis are not configured.
	Cache        cache.Cache
	LedgerStore  *store.Store
	ReportWriter *reconcile.Writer
}

// NewServiceContext wires providers, the client facade and the optional
// persistence layer from the loaded configuration.
func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{Config: c}

	if c.Broker.Value == nil {
		log.Fatalf("broker config missing: set Broker.File in the app config")
	}
	brokerCfg := c.Broker.Value

	// Test environments run against the paper brokerage so nothing ever
	// reaches a real account by accident.
	if c.IsTestEnv() {
		for _, provider := range brokerCfg.Providers {
			provider.Type = "sim"
		}
	}

	providers, err := brokerCfg.BuildProviders()
	if err != nil {
		log.Fatalf("failed to build broker providers: %v", err)
	}
	svc.BrokerConfig = brokerCfg
	svc.BrokerProviders = providers
	if brokerCfg.Default != "" {
		svc.DefaultBroker = providers[brokerCfg.Default]
	}

	if strings.TrimSpace(c.Redis.Host) != "" {
		rds := redis.MustNewRedis(c.Redis)
		svc.Cache = cache.NewNode(rds, syncx.NewSingleFlight(), cache.NewStat("wbjapi"), errCacheMiss)
	}

	var clientOpts []wbjapi.Option
	if c.Postgres.DSN != "" {
		svc.LedgerStore = store.Open(&c, svc.Cache)
		clientOpts = append(clientOpts, wbjapi.WithArchiver(svc.LedgerStore))
		if svc.Cache != nil && brokerCfg.Default != "" {
			clientOpts = append(clientOpts,
				wbjapi.WithQuoteCache(store.NewQuoteCache(svc.LedgerStore, brokerCfg.Default)))
		}
	}
	if dir := c.ReportDir; dir != "" {
		svc.ReportWriter = reconcile.NewWriter(dir)
		clientOpts = append(clientOpts, wbjapi.WithReportWriter(svc.ReportWriter))
	}

	client, err := wbjapi.NewFromConfig(brokerCfg, clientOpts...)
	if err != nil {
		log.Fatalf("failed to build brokerage client: %v", err)
	}
	svc.Client = client
	return svc
}
