// Package wbjapi is a Go client for Webull Japan brokerage accounts. It
// composes a transport provider, the ledger normalizer, the order manager
// and the reconciliation engine behind one facade, and owns the session
// lifecycle indirectly through the provider.
package wbjapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"

	"wbjapi/pkg/broker"
	_ "wbjapi/pkg/broker/webull" // register the webull provider
	"wbjapi/pkg/ledger"
	"wbjapi/pkg/orderflow"
	"wbjapi/pkg/reconcile"
)

// Archiver persists normalised ledger entries. The internal Postgres store
// satisfies it; callers may plug their own.
type Archiver interface {
	SaveEntries(ctx context.Context, accountID string, entries []ledger.Entry, rawByID map[string]broker.RawRecord) error
}

// QuoteCache serves recent market snapshots without a provider round
// trip. Misses and storage failures are silent; the provider remains the
// source of truth.
type QuoteCache interface {
	GetQuote(ctx context.Context, symbol string) (*broker.Quote, bool)
	PutQuote(ctx context.Context, symbol string, quote *broker.Quote)
}

// Client is the public API surface. All methods are safe for concurrent
// use.
type Client struct {
	provider  broker.Provider
	archiver  Archiver
	quotes    QuoteCache
	reports   *reconcile.Writer
	orderOpts []orderflow.Option

	mu        sync.Mutex
	accountID string
	orders    *orderflow.Manager
}

// Option customises a Client.
type Option func(*Client)

// WithAccountID pins the brokerage account instead of discovering it from
// the subscription list on first use.
func WithAccountID(id string) Option {
	return func(c *Client) { c.accountID = id }
}

// WithArchiver installs a ledger archive written through on every history
// fetch. The core never requires one.
func WithArchiver(a Archiver) Option {
	return func(c *Client) { c.archiver = a }
}

// WithQuoteCache installs a read-through cache in front of GetQuote.
func WithQuoteCache(q QuoteCache) Option {
	return func(c *Client) { c.quotes = q }
}

// WithReportWriter persists reconciliation reports through w.
func WithReportWriter(w *reconcile.Writer) Option {
	return func(c *Client) { c.reports = w }
}

// WithOrderOptions forwards options to the order manager.
func WithOrderOptions(opts ...orderflow.Option) Option {
	return func(c *Client) { c.orderOpts = append(c.orderOpts, opts...) }
}

// New wires a Client over a provider.
func New(provider broker.Provider, opts ...Option) *Client {
	c := &Client{provider: provider}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds the configured default provider and wires a Client
// over it.
func NewFromConfig(cfg *broker.Config, opts ...Option) (*Client, error) {
	providers, err := cfg.BuildProviders()
	if err != nil {
		return nil, err
	}
	provider, ok := providers[cfg.Default]
	if !ok {
		return nil, fmt.Errorf("wbjapi: default provider %q not configured", cfg.Default)
	}
	if pc := cfg.Providers[cfg.Default]; pc != nil && pc.AccountID != "" {
		opts = append([]Option{WithAccountID(pc.AccountID)}, opts...)
	}
	return New(provider, opts...), nil
}

// resolveAccount returns the working account ID, discovering it from the
// subscription list on first use.
func (c *Client) resolveAccount(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accountID != "" {
		return c.accountID, nil
	}
	accounts, err := c.provider.GetAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("wbjapi: discover account: %w", err)
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("wbjapi: no accounts subscribed to this application")
	}
	c.accountID = accounts[0].AccountID
	logx.WithContext(ctx).Infof("wbjapi: using account %s", c.accountID)
	return c.accountID, nil
}

// manager lazily builds the order manager once the account is known.
func (c *Client) manager(ctx context.Context) (*orderflow.Manager, error) {
	accountID, err := c.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.orders == nil {
		c.orders = orderflow.NewManager(c.provider, accountID, c.orderOpts...)
	}
	return c.orders, nil
}

// Assets is a snapshot of an account's cash and holdings.
type Assets struct {
	AccountID string
	Balance   *broker.Balance
	Positions []broker.Position
}

// GetAssets fetches the account balance and every open position. It drives
// the transport adapter only; transport and auth errors surface unwrapped.
func (c *Client) GetAssets(ctx context.Context) (*Assets, error) {
	accountID, err := c.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := c.provider.GetBalance(ctx, accountID, "")
	if err != nil {
		return nil, err
	}
	positions, err := c.provider.GetPositions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Assets{AccountID: accountID, Balance: balance, Positions: positions}, nil
}

// GetQuote returns a market snapshot for one symbol, consulting the quote
// cache before the provider when one is installed.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*broker.Quote, error) {
	if c.quotes != nil {
		if quote, ok := c.quotes.GetQuote(ctx, symbol); ok {
			return quote, nil
		}
	}
	quote, err := c.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if c.quotes != nil {
		c.quotes.PutQuote(ctx, symbol, quote)
	}
	return quote, nil
}

// PlaceMarketOrder validates and submits a market order through the order
// manager. Invalid requests fail with *broker.InvalidOrderError before any
// transport call; exhausted submission retries fail with
// *broker.OrderSubmissionError carrying the client token.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side broker.OrderSide, quantity int64) (*broker.Order, error) {
	mgr, err := c.manager(ctx)
	if err != nil {
		return nil, err
	}
	return mgr.PlaceMarketOrder(ctx, symbol, side, quantity)
}

// GetOrderStatus polls the order's current state. Terminal states are
// latched: once filled or rejected the returned order never changes.
func (c *Client) GetOrderStatus(ctx context.Context, order *broker.Order) (*broker.Order, error) {
	mgr, err := c.manager(ctx)
	if err != nil {
		return nil, err
	}
	return mgr.PollOrder(ctx, order)
}

// AwaitOrder polls until the order reaches a terminal state, polling marks
// it unknown, or ctx expires.
func (c *Client) AwaitOrder(ctx context.Context, order *broker.Order) (*broker.Order, error) {
	mgr, err := c.manager(ctx)
	if err != nil {
		return nil, err
	}
	return mgr.PollUntilTerminal(ctx, order)
}

// CancelOrder requests cancellation of the order identified by its client
// token. The outcome is observed on the next poll.
func (c *Client) CancelOrder(ctx context.Context, clientToken string) error {
	mgr, err := c.manager(ctx)
	if err != nil {
		return err
	}
	return mgr.Cancel(ctx, clientToken)
}

// sessionInvalidater is implemented by providers that hold a remote
// session worth tearing down on shutdown.
type sessionInvalidater interface {
	InvalidateSession()
}

// Close tears down the provider session. The in-memory session is simply
// dropped; Webull sessions expire server-side.
func (c *Client) Close() error {
	if inv, ok := c.provider.(sessionInvalidater); ok {
		inv.InvalidateSession()
	}
	return nil
}
