// Package sim is a paper brokerage implementing broker.Provider. It keeps
// balances, positions, orders and activity history in memory, fills market
// orders deterministically against configured quotes, and offers fault
// injection hooks so callers can exercise retry, idempotency and
// data-incompleteness paths without a remote API.
package sim

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"wbjapi/pkg/broker"
)

const defaultFillPolls = 1

// Provider is an in-memory brokerage.
type Provider struct {
	mu sync.Mutex

	accountID string
	clock     func() time.Time

	quotes    map[string]decimal.Decimal
	cash      map[string]decimal.Decimal // by currency
	positions map[string]decimal.Decimal // by symbol

	orders     map[string]*orderState // by client token
	orderSeq   []string               // insertion order for history
	transfers  []broker.RawRecord
	currencyOf map[string]string // symbol -> currency

	// Polls an order must receive before it fills.
	fillPolls int

	// Fault injection.
	failPlaces        int  // next N PlaceOrder calls fail with TransportError
	failPolls         int  // next N GetOrder calls fail with TransportError
	emptyTransfers    bool // TransferHistory answers empty regardless of state
	expireSessionOnce bool // next call fails with AuthError once

	// Call counters for test assertions.
	placeCalls    int
	getOrderCalls int
	transferCalls int
}

type orderState struct {
	order broker.Order
	polls int
}

// Option customises the simulator.
type Option func(*Provider)

// WithAccountID sets the account the simulator answers for.
func WithAccountID(accountID string) Option {
	return func(p *Provider) {
		if accountID != "" {
			p.accountID = accountID
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(p *Provider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithFillPolls sets how many polls an accepted order needs before filling.
func WithFillPolls(polls int) Option {
	return func(p *Provider) {
		if polls >= 0 {
			p.fillPolls = polls
		}
	}
}

// New constructs a simulator.
func New(opts ...Option) *Provider {
	p := &Provider{
		accountID:  "SIM-001",
		clock:      time.Now,
		quotes:     make(map[string]decimal.Decimal),
		cash:       make(map[string]decimal.Decimal),
		positions:  make(map[string]decimal.Decimal),
		orders:     make(map[string]*orderState),
		currencyOf: make(map[string]string),
		fillPolls:  defaultFillPolls,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func canonical(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

func currencyFor(symbol string) string {
	for _, r := range symbol {
		if r < '0' || r > '9' {
			return "USD"
		}
	}
	return "JPY"
}

// SetQuote fixes the price the simulator fills and quotes at.
func (p *Provider) SetQuote(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sym := canonical(symbol)
	p.quotes[sym] = price
	p.currencyOf[sym] = currencyFor(sym)
}

// Deposit credits cash and records a transfer history row.
func (p *Provider) Deposit(amount decimal.Decimal, currency string, at time.Time) {
	p.recordTransfer("DEPOSIT", amount, currency, at, "COMPLETED")
}

// Withdraw debits cash and records a transfer history row.
func (p *Provider) Withdraw(amount decimal.Decimal, currency string, at time.Time) {
	p.recordTransfer("WITHDRAWAL", amount.Neg(), currency, at, "COMPLETED")
}

func (p *Provider) recordTransfer(kind string, signedAmount decimal.Decimal, currency string, at time.Time, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	currency = strings.ToUpper(currency)
	p.cash[currency] = p.cash[currency].Add(signedAmount)
	p.transfers = append(p.transfers, broker.RawRecord{
		Source:    broker.RawSourceTransfers,
		ID:        fmt.Sprintf("tr-%06d", len(p.transfers)+1),
		Kind:      kind,
		Amount:    signedAmount.Abs().String(),
		Currency:  currency,
		Timestamp: at.UTC().Format(time.RFC3339),
		Status:    status,
		Fields:    map[string]string{"transfer_method": "QUICK"},
	})
}

// FailNextPlaces makes the next n PlaceOrder calls fail transiently.
func (p *Provider) FailNextPlaces(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPlaces = n
}

// FailNextPolls makes the next n GetOrder calls fail transiently.
func (p *Provider) FailNextPolls(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPolls = n
}

// SetEmptyTransferHistory reproduces the upstream defect where the transfer
// history endpoint answers empty despite recorded activity.
func (p *Provider) SetEmptyTransferHistory(empty bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emptyTransfers = empty
}

// ExpireSessionOnce makes the next provider call fail with AuthError.
func (p *Provider) ExpireSessionOnce() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expireSessionOnce = true
}

// PlaceCalls returns how many times PlaceOrder reached the simulator.
func (p *Provider) PlaceCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.placeCalls
}

// LiveOrderCount returns the number of distinct orders the simulator holds.
func (p *Provider) LiveOrderCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.orders)
}

func (p *Provider) checkSessionLocked(endpoint string) error {
	if p.expireSessionOnce {
		p.expireSessionOnce = false
		return &broker.AuthError{Endpoint: endpoint, Err: fmt.Errorf("sim: session expired")}
	}
	return nil
}

// GetAccounts returns the single simulated account.
func (p *Provider) GetAccounts(ctx context.Context) ([]broker.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkSessionLocked("account.subscriptions"); err != nil {
		return nil, err
	}
	return []broker.Account{{AccountID: p.accountID, SubscriptionID: "sub-1", Status: "ACTIVE"}}, nil
}

// GetBalance reports current cash per currency.
func (p *Provider) GetBalance(ctx context.Context, accountID, currency string) (*broker.Balance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkSessionLocked("account.balance"); err != nil {
		return nil, err
	}
	balance := &broker.Balance{AccountID: p.accountID}
	currencies := make([]string, 0, len(p.cash))
	for cur := range p.cash {
		if currency != "" && !strings.EqualFold(cur, currency) {
			continue
		}
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	for _, cur := range currencies {
		amount := p.cash[cur]
		balance.Currencies = append(balance.Currencies, broker.CurrencyBalance{
			Currency:            cur,
			TotalCash:           amount,
			SettledCash:         amount,
			AvailableToWithdraw: amount,
			BuyingPower:         amount,
		})
	}
	return balance, nil
}

// GetPositions reports current holdings sorted by symbol.
func (p *Provider) GetPositions(ctx context.Context, accountID string) ([]broker.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkSessionLocked("account.positions"); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(p.positions))
	for sym := range p.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	positions := make([]broker.Position, 0, len(symbols))
	for _, sym := range symbols {
		positions = append(positions, broker.Position{
			Symbol:    sym,
			Quantity:  p.positions[sym],
			LastPrice: p.quotes[sym],
			Currency:  currencyFor(sym),
		})
	}
	return positions, nil
}

var _ broker.Provider = (*Provider)(nil)

// PlaceOrder accepts a market order; fills happen on later polls.
func (p *Provider) PlaceOrder(ctx context.Context, accountID string, req broker.OrderRequest) (*broker.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placeCalls++

	if err := p.checkSessionLocked("order.place"); err != nil {
		return nil, err
	}
	if p.failPlaces > 0 {
		p.failPlaces--
		return nil, &broker.TransportError{Endpoint: "order.place", Attempts: 1, Err: fmt.Errorf("sim: injected transient failure")}
	}
	if req.ClientToken == "" {
		return nil, fmt.Errorf("sim: client token is required")
	}

	// Duplicate tokens reference the existing order; no second submission.
	if existing, ok := p.orders[req.ClientToken]; ok {
		order := existing.order
		return &order, nil
	}

	sym := canonical(req.Symbol)
	if _, ok := p.quotes[sym]; !ok {
		return nil, fmt.Errorf("sim: no quote configured for symbol %s", req.Symbol)
	}

	order := broker.Order{
		ClientToken: req.ClientToken,
		Symbol:      sym,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Currency:    currencyFor(sym),
		State:       broker.OrderStateAccepted,
		SubmittedAt: p.clock().Truncate(time.Second),
	}
	p.orders[req.ClientToken] = &orderState{order: order}
	p.orderSeq = append(p.orderSeq, req.ClientToken)
	out := order
	return &out, nil
}

// GetOrder returns order state, advancing accepted orders toward a fill.
func (p *Provider) GetOrder(ctx context.Context, accountID, clientToken string) (*broker.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getOrderCalls++

	if err := p.checkSessionLocked("order.detail"); err != nil {
		return nil, err
	}
	if p.failPolls > 0 {
		p.failPolls--
		return nil, &broker.TransportError{Endpoint: "order.detail", Attempts: 1, Err: fmt.Errorf("sim: injected transient failure")}
	}

	state, ok := p.orders[clientToken]
	if !ok {
		return nil, fmt.Errorf("sim: order %s not found", clientToken)
	}
	if !state.order.State.Terminal() {
		state.polls++
		if state.polls >= p.fillPolls {
			p.fillLocked(state)
		}
	}
	state.order.LastPolledAt = p.clock()
	order := state.order
	return &order, nil
}

// fillLocked executes the order at the configured quote and books the cash
// and position movements.
func (p *Provider) fillLocked(state *orderState) {
	price := p.quotes[state.order.Symbol]
	qty := decimal.NewFromInt(state.order.Quantity)
	notional := price.Mul(qty)
	currency := state.order.Currency

	if state.order.Side == broker.OrderSideBuy {
		p.cash[currency] = p.cash[currency].Sub(notional)
		p.positions[state.order.Symbol] = p.positions[state.order.Symbol].Add(qty)
	} else {
		p.cash[currency] = p.cash[currency].Add(notional)
		p.positions[state.order.Symbol] = p.positions[state.order.Symbol].Sub(qty)
	}
	if p.positions[state.order.Symbol].IsZero() {
		delete(p.positions, state.order.Symbol)
	}

	state.order.State = broker.OrderStateFilled
	state.order.FilledQuantity = state.order.Quantity
	state.order.AvgFillPrice = price
}

// CancelOrder rejects non-terminal orders.
func (p *Provider) CancelOrder(ctx context.Context, accountID, clientToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.orders[clientToken]
	if !ok {
		return fmt.Errorf("sim: order %s not found", clientToken)
	}
	if state.order.State.Terminal() {
		return fmt.Errorf("sim: order %s already %s", clientToken, state.order.State)
	}
	state.order.State = broker.OrderStateRejected
	return nil
}

// GetQuote returns the configured quote for symbol.
func (p *Provider) GetQuote(ctx context.Context, symbol string) (*broker.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkSessionLocked("market.snapshot"); err != nil {
		return nil, err
	}
	sym := canonical(symbol)
	price, ok := p.quotes[sym]
	if !ok {
		return nil, fmt.Errorf("sim: no quote configured for symbol %s", symbol)
	}
	return &broker.Quote{
		Symbol:    sym,
		Category:  map[string]string{"JPY": "JP_STOCK", "USD": "US_STOCK"}[currencyFor(sym)],
		Last:      price,
		Currency:  currencyFor(sym),
		Timestamp: p.clock().Truncate(time.Second),
	}, nil
}

// OrderHistory returns raw rows for every order in [from, to].
func (p *Provider) OrderHistory(ctx context.Context, accountID string, from, to time.Time) ([]broker.RawRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkSessionLocked("order.list"); err != nil {
		return nil, err
	}
	raws := make([]broker.RawRecord, 0, len(p.orderSeq))
	for _, token := range p.orderSeq {
		state := p.orders[token]
		at := state.order.SubmittedAt
		if at.Before(from) || at.After(to) {
			continue
		}
		raws = append(raws, broker.RawRecord{
			Source:    broker.RawSourceOrders,
			ID:        token,
			Kind:      strings.ToUpper(string(state.order.Side)),
			Symbol:    state.order.Symbol,
			Currency:  state.order.Currency,
			Timestamp: at.UTC().Format(time.RFC3339),
			Status:    upstreamStatus(state.order.State),
			Fields: map[string]string{
				"qty":              decimal.NewFromInt(state.order.Quantity).String(),
				"filled_qty":       decimal.NewFromInt(state.order.FilledQuantity).String(),
				"avg_filled_price": state.order.AvgFillPrice.String(),
				"order_type":       "MARKET",
			},
		})
	}
	return raws, nil
}

// TransferHistory returns recorded deposits/withdrawals, or nothing when
// the empty-history fault is armed.
func (p *Provider) TransferHistory(ctx context.Context, accountID string, from, to time.Time) ([]broker.RawRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transferCalls++
	if err := p.checkSessionLocked("asset.transfers"); err != nil {
		return nil, err
	}
	if p.emptyTransfers {
		return nil, nil
	}
	raws := make([]broker.RawRecord, 0, len(p.transfers))
	for _, record := range p.transfers {
		at, _ := time.Parse(time.RFC3339, record.Timestamp)
		if at.Before(from) || at.After(to) {
			continue
		}
		raws = append(raws, record)
	}
	return raws, nil
}

// upstreamStatus converts a normalised state back into the wire vocabulary
// so simulator history rows look like real Webull rows.
func upstreamStatus(state broker.OrderState) string {
	switch state {
	case broker.OrderStateAccepted, broker.OrderStateSubmitted:
		return "Working"
	case broker.OrderStatePartiallyFilled:
		return "PartialFilled"
	case broker.OrderStateFilled:
		return "Filled"
	case broker.OrderStateRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

func init() {
	broker.RegisterProvider("sim", func(name string, cfg *broker.ProviderConfig) (broker.Provider, error) {
		opts := []Option{}
		if cfg != nil && cfg.AccountID != "" {
			opts = append(opts, WithAccountID(cfg.AccountID))
		}
		return New(opts...), nil
	})
}
