package broker

import (
	"context"
	"time"
)

// Provider exposes brokerage capabilities in a venue-agnostic fashion.
// The concrete implementation for Webull Japan lives in pkg/broker/webull;
// pkg/broker/sim provides an in-memory implementation for tests.
type Provider interface {
	// Account information.
	GetAccounts(ctx context.Context) ([]Account, error)
	GetBalance(ctx context.Context, accountID, currency string) (*Balance, error)
	GetPositions(ctx context.Context, accountID string) ([]Position, error)

	// Order management. PlaceOrder must treat a duplicate ClientToken as a
	// query of the existing order, never as a second submission.
	PlaceOrder(ctx context.Context, accountID string, req OrderRequest) (*Order, error)
	GetOrder(ctx context.Context, accountID, clientToken string) (*Order, error)
	CancelOrder(ctx context.Context, accountID, clientToken string) error

	// Market data.
	GetQuote(ctx context.Context, symbol string) (*Quote, error)

	// Activity history, returned raw for the ledger normalizer. Either call
	// may legitimately return an empty slice; deciding whether emptiness is
	// plausible is the caller's job, not the provider's.
	OrderHistory(ctx context.Context, accountID string, from, to time.Time) ([]RawRecord, error)
	TransferHistory(ctx context.Context, accountID string, from, to time.Time) ([]RawRecord, error)
}
