package broker

import (
	"time"

	"github.com/shopspring/decimal"
)

// Core brokerage domain types shared across provider implementations.
// These structures normalise the Webull Japan payloads while remaining
// provider-agnostic so the rest of the library never sees wire formats.

// OrderSide represents order direction.
type OrderSide string

const (
	// OrderSideBuy executes a buy.
	OrderSideBuy OrderSide = "buy"
	// OrderSideSell executes a sell.
	OrderSideSell OrderSide = "sell"
)

// OrderState tracks the lifecycle of an order.
//
// The only legal forward path is
// submitted → accepted → partially_filled → filled, with rejected reachable
// from any non-terminal state. unknown is entered when polling fails
// repeatedly and the true remote state cannot be established.
type OrderState string

const (
	OrderStateSubmitted       OrderState = "submitted"
	OrderStateAccepted        OrderState = "accepted"
	OrderStatePartiallyFilled OrderState = "partially_filled"
	OrderStateFilled          OrderState = "filled"
	OrderStateRejected        OrderState = "rejected"
	OrderStateUnknown         OrderState = "unknown"
)

// Terminal reports whether the state can never change again.
// unknown is terminal-for-now: it is resolved manually, not by polling.
func (s OrderState) Terminal() bool {
	return s == OrderStateFilled || s == OrderStateRejected
}

// rank orders states along the lifecycle so that a poll result can never
// move an order backwards.
func (s OrderState) rank() int {
	switch s {
	case OrderStateSubmitted:
		return 0
	case OrderStateAccepted:
		return 1
	case OrderStatePartiallyFilled:
		return 2
	case OrderStateFilled, OrderStateRejected:
		return 3
	default:
		return -1
	}
}

// Supersedes reports whether transitioning from prev to s is a legal
// forward move in the order lifecycle.
func (s OrderState) Supersedes(prev OrderState) bool {
	if prev.Terminal() {
		return false
	}
	if s == OrderStateUnknown {
		return true
	}
	return s.rank() >= prev.rank()
}

// OrderRequest describes a market order to be submitted.
// ClientToken is the caller-assigned idempotency key: the remote side keeps
// at most one live order per token, so a retried submission is a no-op.
type OrderRequest struct {
	ClientToken string
	Symbol      string
	Side        OrderSide
	Quantity    int64
}

// Order is the normalised view of a remote order.
type Order struct {
	ClientToken    string
	Symbol         string
	Side           OrderSide
	Quantity       int64
	FilledQuantity int64
	AvgFillPrice   decimal.Decimal
	Currency       string
	State          OrderState
	SubmittedAt    time.Time
	LastPolledAt   time.Time
}

// Account identifies a brokerage account reachable through the API
// application subscription.
type Account struct {
	AccountID      string
	SubscriptionID string
	Status         string
}

// CurrencyBalance holds the per-currency cash breakdown reported by the
// balance endpoint.
type CurrencyBalance struct {
	Currency            string
	TotalCash           decimal.Decimal
	SettledCash         decimal.Decimal
	UnsettledCash       decimal.Decimal
	FrozenCash          decimal.Decimal
	AvailableToWithdraw decimal.Decimal
	BuyingPower         decimal.Decimal
}

// Balance aggregates an account's cash across currencies.
type Balance struct {
	AccountID  string
	Currencies []CurrencyBalance
}

// Position is a single holding.
type Position struct {
	Symbol         string
	InstrumentID   string
	InstrumentName string
	Quantity       decimal.Decimal
	CostPrice      decimal.Decimal
	LastPrice      decimal.Decimal
	Currency       string
}

// Quote is a market data snapshot for one symbol.
type Quote struct {
	Symbol    string
	Category  string
	Last      decimal.Decimal
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    int64
	Currency  string
	Timestamp time.Time
}

// Raw record sources recognised by the ledger normalizer.
const (
	RawSourceOrders    = "orders"
	RawSourceTransfers = "transfers"
)

// RawRecord is an upstream activity row before normalisation. Fields are kept
// as strings on purpose: malformed upstream data must survive transport so
// the ledger normalizer can account for it instead of dropping it.
type RawRecord struct {
	Source      string
	ID          string
	Kind        string
	Symbol      string
	Amount      string
	Currency    string
	Timestamp   string
	Status      string
	PositionRef string
	Fields      map[string]string
}
