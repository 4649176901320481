package orderflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbjapi/pkg/broker"
	"wbjapi/pkg/broker/sim"
)

func newTestManager(t *testing.T, opts ...Option) (*Manager, *sim.Provider) {
	t.Helper()
	provider := sim.New()
	provider.SetQuote("7203", decimal.NewFromInt(2500))
	provider.Deposit(decimal.NewFromInt(1000000), "JPY", time.Now())
	opts = append([]Option{
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithPollInterval(time.Millisecond),
	}, opts...)
	return NewManager(provider, "SIM-001", opts...), provider
}

func TestPlaceMarketOrderValidatesBeforeTransport(t *testing.T) {
	mgr, provider := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		symbol   string
		side     broker.OrderSide
		quantity int64
	}{
		{"zero_quantity", "7203", broker.OrderSideBuy, 0},
		{"negative_quantity", "7203", broker.OrderSideBuy, -5},
		{"bad_side", "7203", broker.OrderSide("short"), 10},
		{"empty_symbol", "", broker.OrderSideBuy, 10},
		{"long_ticker", "TOOLONG", broker.OrderSideBuy, 10},
		{"mixed_symbol", "72A3", broker.OrderSideBuy, 10},
		{"three_digit_code", "720", broker.OrderSideBuy, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.PlaceMarketOrder(ctx, tt.symbol, tt.side, tt.quantity)
			var invalidErr *broker.InvalidOrderError
			require.ErrorAs(t, err, &invalidErr)
		})
	}
	assert.Zero(t, provider.PlaceCalls(), "validation failures must not reach the transport")
}

func TestPlaceMarketOrderAcceptsValidSymbols(t *testing.T) {
	mgr, provider := newTestManager(t)
	provider.SetQuote("AAPL", decimal.NewFromInt(190))
	ctx := context.Background()

	order, err := mgr.PlaceMarketOrder(ctx, "7203", broker.OrderSideBuy, 10)
	require.NoError(t, err)
	assert.Equal(t, broker.OrderStateAccepted, order.State)
	assert.NotEmpty(t, order.ClientToken)

	order, err = mgr.PlaceMarketOrder(ctx, "AAPL", broker.OrderSideSell, 3)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", order.Symbol)
}

func TestPlaceMarketOrderRetriesWithSameToken(t *testing.T) {
	mgr, provider := newTestManager(t)
	provider.FailNextPlaces(2)

	order, err := mgr.PlaceMarketOrder(context.Background(), "7203", broker.OrderSideBuy, 10)
	require.NoError(t, err)

	// Two transient failures plus the success, all under one token: the
	// remote side ends up with exactly one live order.
	assert.Equal(t, 3, provider.PlaceCalls())
	assert.Equal(t, 1, provider.LiveOrderCount())
	assert.Equal(t, broker.OrderStateAccepted, order.State)
}

func TestPlaceMarketOrderExhaustsRetries(t *testing.T) {
	mgr, provider := newTestManager(t, WithMaxAttempts(3))
	provider.FailNextPlaces(5)

	_, err := mgr.PlaceMarketOrder(context.Background(), "7203", broker.OrderSideBuy, 10)
	require.Error(t, err)

	var submissionErr *broker.OrderSubmissionError
	require.ErrorAs(t, err, &submissionErr)
	assert.NotEmpty(t, submissionErr.ClientToken, "the token must survive so the caller can query the order's fate")
	assert.Equal(t, 3, provider.PlaceCalls())
	assert.Zero(t, provider.LiveOrderCount())
}

func TestPlaceMarketOrderDoesNotRetryNonTransientErrors(t *testing.T) {
	mgr, provider := newTestManager(t)

	// No quote configured for this symbol: the sim rejects outright.
	_, err := mgr.PlaceMarketOrder(context.Background(), "9984", broker.OrderSideBuy, 10)
	require.Error(t, err)
	var submissionErr *broker.OrderSubmissionError
	assert.False(t, errors.As(err, &submissionErr))
	assert.Equal(t, 1, provider.PlaceCalls())
}

func TestPollOrderReachesFill(t *testing.T) {
	mgr, _ := newTestManager(t)

	order, err := mgr.PlaceMarketOrder(context.Background(), "7203", broker.OrderSideBuy, 10)
	require.NoError(t, err)

	polled, err := mgr.PollOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, broker.OrderStateFilled, polled.State)
	assert.Equal(t, int64(10), polled.FilledQuantity)
	assert.True(t, polled.AvgFillPrice.Equal(decimal.NewFromInt(2500)))
	assert.False(t, polled.LastPolledAt.IsZero())
}

func TestPollOrderNeverRegressesTerminalState(t *testing.T) {
	mgr, provider := newTestManager(t)

	order, err := mgr.PlaceMarketOrder(context.Background(), "7203", broker.OrderSideBuy, 10)
	require.NoError(t, err)

	filled, err := mgr.PollOrder(context.Background(), order)
	require.NoError(t, err)
	require.Equal(t, broker.OrderStateFilled, filled.State)

	// Later polls leave a terminal order untouched, whatever the remote says.
	provider.FailNextPolls(10)
	again, err := mgr.PollOrder(context.Background(), filled)
	require.NoError(t, err)
	assert.Equal(t, broker.OrderStateFilled, again.State)
	assert.Equal(t, filled.FilledQuantity, again.FilledQuantity)
}

func TestPollOrderMarksUnknownAfterRepeatedFailures(t *testing.T) {
	mgr, provider := newTestManager(t, WithPollFailureLimit(3))

	order, err := mgr.PlaceMarketOrder(context.Background(), "7203", broker.OrderSideBuy, 10)
	require.NoError(t, err)

	provider.FailNextPolls(10)

	var polled *broker.Order
	for i := 0; i < 2; i++ {
		polled, err = mgr.PollOrder(context.Background(), order)
		require.Error(t, err, "below the failure bound poll errors surface")
		assert.Equal(t, broker.OrderStateAccepted, polled.State)
	}

	polled, err = mgr.PollOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, broker.OrderStateUnknown, polled.State,
		"beyond the bound the order is marked unknown for manual resolution")
}

func TestPollFailureCountResetsOnSuccess(t *testing.T) {
	provider := sim.New(sim.WithFillPolls(100))
	provider.SetQuote("7203", decimal.NewFromInt(2500))
	provider.Deposit(decimal.NewFromInt(1000000), "JPY", time.Now())
	mgr := NewManager(provider, "SIM-001",
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithPollFailureLimit(3))

	order, err := mgr.PlaceMarketOrder(context.Background(), "7203", broker.OrderSideBuy, 10)
	require.NoError(t, err)

	// Two failures, a success, two more failures: the counter restarts on
	// the success so the order is never marked unknown.
	provider.FailNextPolls(2)
	for i := 0; i < 2; i++ {
		_, err = mgr.PollOrder(context.Background(), order)
		require.Error(t, err)
	}
	polled, err := mgr.PollOrder(context.Background(), order)
	require.NoError(t, err)
	require.Equal(t, broker.OrderStateAccepted, polled.State)

	provider.FailNextPolls(2)
	for i := 0; i < 2; i++ {
		polled, err = mgr.PollOrder(context.Background(), polled)
		require.Error(t, err)
		assert.NotEqual(t, broker.OrderStateUnknown, polled.State)
	}
}

func TestPollUntilTerminal(t *testing.T) {
	provider := sim.New(sim.WithFillPolls(3))
	provider.SetQuote("7203", decimal.NewFromInt(2500))
	provider.Deposit(decimal.NewFromInt(1000000), "JPY", time.Now())
	mgr := NewManager(provider, "SIM-001",
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithPollInterval(time.Millisecond))

	order, err := mgr.PlaceMarketOrder(context.Background(), "7203", broker.OrderSideBuy, 10)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	final, err := mgr.PollUntilTerminal(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, broker.OrderStateFilled, final.State)
}

func TestCancelOrder(t *testing.T) {
	provider := sim.New(sim.WithFillPolls(100))
	provider.SetQuote("7203", decimal.NewFromInt(2500))
	provider.Deposit(decimal.NewFromInt(1000000), "JPY", time.Now())
	mgr := NewManager(provider, "SIM-001", WithPollInterval(time.Millisecond))

	order, err := mgr.PlaceMarketOrder(context.Background(), "7203", broker.OrderSideBuy, 10)
	require.NoError(t, err)

	require.NoError(t, mgr.Cancel(context.Background(), order.ClientToken))

	polled, err := mgr.PollOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, broker.OrderStateRejected, polled.State)
}

func TestTokenGeneratorProducesUniqueTokens(t *testing.T) {
	mgr, _ := newTestManager(t)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token := mgr.newToken()
		require.False(t, seen[token], "token %s repeated", token)
		seen[token] = true
	}
}
