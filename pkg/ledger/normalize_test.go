package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbjapi/pkg/broker"
)

func depositRaw(id, amount, ts, status string) broker.RawRecord {
	return broker.RawRecord{
		Source:    broker.RawSourceTransfers,
		ID:        id,
		Kind:      "DEPOSIT",
		Amount:    amount,
		Currency:  "JPY",
		Timestamp: ts,
		Status:    status,
	}
}

func tradeRaw(id, side, symbol, filledQty, avgPrice, ts, status string) broker.RawRecord {
	return broker.RawRecord{
		Source:    broker.RawSourceOrders,
		ID:        id,
		Kind:      side,
		Symbol:    symbol,
		Currency:  "JPY",
		Timestamp: ts,
		Status:    status,
		Fields: map[string]string{
			"qty":              filledQty,
			"filled_qty":       filledQty,
			"avg_filled_price": avgPrice,
			"order_type":       "MARKET",
		},
	}
}

func TestNormalizeNeverDropsRecords(t *testing.T) {
	raws := []broker.RawRecord{
		depositRaw("tr-1", "100000", "2024-03-01T10:00:00Z", "COMPLETED"),
		{Source: broker.RawSourceTransfers, ID: "tr-2", Kind: "DIVIDEND", Amount: "12", Currency: "JPY", Timestamp: "2024-03-01T11:00:00Z", Status: "COMPLETED"},
		tradeRaw("ord-1", "BUY", "7203", "10", "2500", "2024-03-01T12:00:00Z", "Filled"),
		{Source: broker.RawSourceOrders, Kind: "BUY", Symbol: "7203", Timestamp: "not-a-time"},
	}

	result := Normalize(raws)

	require.Len(t, result.Entries, len(raws), "mapped + unknown must equal input count")
	assert.Equal(t, 2, result.Mapped)
	assert.Equal(t, 2, result.Unknown)
	require.NotNil(t, result.Warning)
	assert.Equal(t, 2, result.Warning.UnknownRecords)
}

func TestNormalizeSortsByTimestampThenID(t *testing.T) {
	raws := []broker.RawRecord{
		tradeRaw("ord-b", "SELL", "7203", "5", "2600", "2024-03-02T10:00:00Z", "Filled"),
		depositRaw("tr-1", "50000", "2024-03-01T09:00:00Z", "COMPLETED"),
		tradeRaw("ord-a", "BUY", "7203", "5", "2500", "2024-03-02T10:00:00Z", "Filled"),
	}

	result := Normalize(raws)
	require.Len(t, result.Entries, 3)
	assert.Equal(t, "tr-1", result.Entries[0].ID)
	assert.Equal(t, "ord-a", result.Entries[1].ID, "equal timestamps break ties by ID")
	assert.Equal(t, "ord-b", result.Entries[2].ID)
	assert.Nil(t, result.Warning)
}

func TestNormalizeTransferAmountsAreSigned(t *testing.T) {
	raws := []broker.RawRecord{
		depositRaw("tr-1", "100000", "2024-03-01T10:00:00Z", "COMPLETED"),
		{Source: broker.RawSourceTransfers, ID: "tr-2", Kind: "WITHDRAWAL", Amount: "25000", Currency: "JPY", Timestamp: "2024-03-02T10:00:00Z", Status: "COMPLETED"},
	}

	result := Normalize(raws)
	require.Len(t, result.Entries, 2)

	deposit, withdrawal := result.Entries[0], result.Entries[1]
	assert.Equal(t, KindDeposit, deposit.Kind)
	assert.True(t, deposit.Amount.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, KindWithdrawal, withdrawal.Kind)
	assert.True(t, withdrawal.Amount.Equal(decimal.NewFromInt(-25000)))
}

func TestNormalizeTradeCashEffect(t *testing.T) {
	raws := []broker.RawRecord{
		tradeRaw("ord-1", "BUY", "7203", "10", "2500", "2024-03-01T12:00:00Z", "Filled"),
		tradeRaw("ord-2", "SELL", "7203", "10", "2600", "2024-03-05T12:00:00Z", "Filled"),
	}

	result := Normalize(raws)
	require.Len(t, result.Entries, 2)

	entry, exit := result.Entries[0], result.Entries[1]
	assert.Equal(t, KindTradeEntry, entry.Kind)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(-25000)), "buys consume cash")
	assert.Equal(t, "7203", entry.PositionRef)
	assert.Equal(t, StatusSettled, entry.Status)

	assert.Equal(t, KindTradeExit, exit.Kind)
	assert.True(t, exit.Amount.Equal(decimal.NewFromInt(26000)), "sells free cash")
}

func TestNormalizeTradeStatuses(t *testing.T) {
	tests := []struct {
		status    string
		filledQty string
		expected  Status
	}{
		{"Filled", "10", StatusSettled},
		{"Working", "0", StatusPending},
		{"PartialFilled", "4", StatusSettled},
		{"PendingCancel", "0", StatusPending},
		{"Cancelled", "0", StatusFailed},
		{"Rejected", "0", StatusFailed},
		{"Failed", "0", StatusFailed},
	}
	for _, tt := range tests {
		result := Normalize([]broker.RawRecord{
			tradeRaw("ord-1", "BUY", "7203", tt.filledQty, "2500", "2024-03-01T12:00:00Z", tt.status),
		})
		require.Len(t, result.Entries, 1)
		assert.Equalf(t, tt.expected, result.Entries[0].Status, "status %q filled %s", tt.status, tt.filledQty)
	}
}

func TestNormalizeMalformedRowsBecomeUnknown(t *testing.T) {
	tests := map[string]broker.RawRecord{
		"missing_id":         {Source: broker.RawSourceTransfers, Kind: "DEPOSIT", Amount: "10", Currency: "JPY", Timestamp: "2024-03-01T10:00:00Z", Status: "COMPLETED"},
		"bad_timestamp":      depositRaw("tr-1", "10", "yesterday", "COMPLETED"),
		"bad_amount":         depositRaw("tr-2", "lots", "2024-03-01T10:00:00Z", "COMPLETED"),
		"unknown_kind":       {Source: broker.RawSourceTransfers, ID: "tr-3", Kind: "DIVIDEND", Amount: "10", Currency: "JPY", Timestamp: "2024-03-01T10:00:00Z", Status: "COMPLETED"},
		"unknown_status":     depositRaw("tr-4", "10", "2024-03-01T10:00:00Z", "ON_HOLD"),
		"trade_no_symbol":    {Source: broker.RawSourceOrders, ID: "ord-1", Kind: "BUY", Timestamp: "2024-03-01T10:00:00Z", Status: "Filled"},
		"trade_bad_fill_qty": tradeRaw("ord-2", "BUY", "7203", "many", "2500", "2024-03-01T10:00:00Z", "Filled"),
		"trade_odd_status":   tradeRaw("ord-3", "BUY", "7203", "10", "2500", "2024-03-01T10:00:00Z", "Settling"),
	}
	for name, raw := range tests {
		result := Normalize([]broker.RawRecord{raw})
		require.Lenf(t, result.Entries, 1, "%s: record must not be dropped", name)
		entry := result.Entries[0]
		assert.Equalf(t, StatusUnknown, entry.Status, "%s", name)
		assert.NotEmptyf(t, entry.ID, "%s: unknown entries still need an ID", name)
		assert.NotEmptyf(t, entry.Note, "%s: unknown entries carry the cause", name)
		assert.Equalf(t, 1, result.Unknown, "%s", name)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	result := Normalize(nil)
	assert.Empty(t, result.Entries)
	assert.Zero(t, result.Mapped)
	assert.Zero(t, result.Unknown)
	assert.Nil(t, result.Warning, "emptiness alone is not a normalizer warning; the facade judges it against expectations")
}

func TestIncompleteDataWarningError(t *testing.T) {
	w := &IncompleteDataWarning{UnknownRecords: 2, EmptySources: []string{"transfers"}, Reason: "activity was expected for the period"}
	msg := w.Error()
	assert.Contains(t, msg, "2 record(s)")
	assert.Contains(t, msg, "transfers")
	assert.Contains(t, msg, "expected")

	assert.Contains(t, (&IncompleteDataWarning{}).Error(), "may be incomplete")
}

func TestPairViolations(t *testing.T) {
	ok := []Entry{
		{ID: "1", Kind: KindTradeEntry, Symbol: "7203", PositionRef: "pos-1"},
		{ID: "2", Kind: KindTradeExit, Symbol: "7203", PositionRef: "pos-1"},
	}
	assert.Empty(t, PairViolations(ok))

	mixed := []Entry{
		{ID: "1", Kind: KindTradeEntry, Symbol: "7203", PositionRef: "pos-1"},
		{ID: "2", Kind: KindTradeExit, Symbol: "AAPL", PositionRef: "pos-1"},
	}
	violations := PairViolations(mixed)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "pos-1")
}
