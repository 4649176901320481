package store

import (
	"context"

	cachekeys "wbjapi/internal/cache"
	"wbjapi/pkg/broker"
)

// QuoteCache serves market snapshots through the store's cache layer, keyed
// by provider and symbol so two providers never shadow each other's quotes.
type QuoteCache struct {
	store    *Store
	provider string
}

// NewQuoteCache wires a quote cache over the store for one provider.
func NewQuoteCache(s *Store, provider string) *QuoteCache {
	return &QuoteCache{store: s, provider: provider}
}

func (q *QuoteCache) GetQuote(ctx context.Context, symbol string) (*broker.Quote, bool) {
	var quote broker.Quote
	if !q.store.getCache(ctx, cachekeys.QuoteKey(q.provider, symbol), &quote) {
		return nil, false
	}
	return &quote, true
}

func (q *QuoteCache) PutQuote(ctx context.Context, symbol string, quote *broker.Quote) {
	if quote == nil {
		return
	}
	q.store.setCache(ctx, cachekeys.QuoteKey(q.provider, symbol), cachekeys.QuoteTTL(q.store.ttl), quote)
}
