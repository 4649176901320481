package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"wbjapi/pkg/broker"
)

// Result is one completed normalisation pass. It is an immutable snapshot:
// reconciliation reads a Result, never a pass in progress.
type Result struct {
	Entries []Entry
	Mapped  int
	Unknown int
	Warning *IncompleteDataWarning
}

// timestampLayouts covers the formats Webull responses have been seen to
// use for activity timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02 15:04:05",
}

// Normalize maps raw upstream activity records onto the unified ledger
// model. Every input record yields exactly one entry: rows that cannot be
// mapped become unknown-status entries carrying a note, never silent drops.
// Output is ordered by timestamp ascending with ID as the tiebreak.
func Normalize(raws []broker.RawRecord) Result {
	result := Result{Entries: make([]Entry, 0, len(raws))}

	for i, raw := range raws {
		entry, err := mapRecord(raw)
		if err != nil {
			result.Unknown++
			result.Entries = append(result.Entries, unknownEntry(raw, i, err))
			continue
		}
		result.Mapped++
		result.Entries = append(result.Entries, entry)
	}

	sort.SliceStable(result.Entries, func(i, j int) bool {
		a, b := result.Entries[i], result.Entries[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})

	if result.Unknown > 0 {
		result.Warning = &IncompleteDataWarning{UnknownRecords: result.Unknown}
	}
	return result
}

func mapRecord(raw broker.RawRecord) (Entry, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return Entry{}, fmt.Errorf("missing record id")
	}
	timestamp, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return Entry{}, err
	}

	switch strings.ToUpper(strings.TrimSpace(raw.Kind)) {
	case "DEPOSIT":
		return mapTransfer(raw, KindDeposit, timestamp, false)
	case "WITHDRAWAL":
		return mapTransfer(raw, KindWithdrawal, timestamp, true)
	case "BUY":
		return mapTrade(raw, KindTradeEntry, timestamp)
	case "SELL":
		return mapTrade(raw, KindTradeExit, timestamp)
	default:
		return Entry{}, fmt.Errorf("unrecognised record kind %q", raw.Kind)
	}
}

func mapTransfer(raw broker.RawRecord, kind Kind, timestamp time.Time, negate bool) (Entry, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw.Amount))
	if err != nil {
		return Entry{}, fmt.Errorf("unparseable amount %q", raw.Amount)
	}
	amount = amount.Abs()
	if negate {
		amount = amount.Neg()
	}
	status, err := transferStatus(raw.Status)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:        raw.ID,
		Kind:      kind,
		Amount:    amount,
		Currency:  strings.ToUpper(raw.Currency),
		Timestamp: timestamp,
		Status:    status,
	}, nil
}

func mapTrade(raw broker.RawRecord, kind Kind, timestamp time.Time) (Entry, error) {
	if strings.TrimSpace(raw.Symbol) == "" {
		return Entry{}, fmt.Errorf("trade record missing symbol")
	}
	filledQty, err := decimal.NewFromString(strings.TrimSpace(raw.Fields["filled_qty"]))
	if err != nil {
		return Entry{}, fmt.Errorf("unparseable filled_qty %q", raw.Fields["filled_qty"])
	}
	avgPrice, err := decimal.NewFromString(strings.TrimSpace(raw.Fields["avg_filled_price"]))
	if err != nil {
		return Entry{}, fmt.Errorf("unparseable avg_filled_price %q", raw.Fields["avg_filled_price"])
	}

	// Cash effect of the filled portion: buys consume cash, sells free it.
	amount := filledQty.Mul(avgPrice)
	if kind == KindTradeEntry {
		amount = amount.Neg()
	}

	status, err := tradeStatus(raw.Status, filledQty)
	if err != nil {
		return Entry{}, err
	}
	positionRef := raw.PositionRef
	if positionRef == "" {
		positionRef = raw.Symbol
	}
	return Entry{
		ID:          raw.ID,
		Kind:        kind,
		Symbol:      raw.Symbol,
		Amount:      amount,
		Currency:    strings.ToUpper(raw.Currency),
		Timestamp:   timestamp,
		Status:      status,
		PositionRef: positionRef,
	}, nil
}

func unknownEntry(raw broker.RawRecord, index int, cause error) Entry {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = fmt.Sprintf("%s-unmapped-%d", raw.Source, index)
	}
	timestamp, _ := parseTimestamp(raw.Timestamp)
	return Entry{
		ID:        id,
		Kind:      kindOrEmpty(raw.Kind),
		Symbol:    raw.Symbol,
		Currency:  strings.ToUpper(raw.Currency),
		Timestamp: timestamp,
		Status:    StatusUnknown,
		Note:      cause.Error(),
	}
}

// kindOrEmpty preserves a recognisable kind on unknown entries where
// possible so reports stay readable.
func kindOrEmpty(kind string) Kind {
	switch strings.ToUpper(strings.TrimSpace(kind)) {
	case "DEPOSIT":
		return KindDeposit
	case "WITHDRAWAL":
		return KindWithdrawal
	case "BUY":
		return KindTradeEntry
	case "SELL":
		return KindTradeExit
	default:
		return ""
	}
}

func parseTimestamp(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

func transferStatus(status string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETED":
		return StatusSettled, nil
	case "PENDING":
		return StatusPending, nil
	case "FAILED":
		return StatusFailed, nil
	default:
		return StatusUnknown, fmt.Errorf("unrecognised transfer status %q", status)
	}
}

func tradeStatus(status string, filledQty decimal.Decimal) (Status, error) {
	switch strings.TrimSpace(status) {
	case "Filled":
		return StatusSettled, nil
	case "Working", "PendingCancel", "PartialFilled":
		if filledQty.IsZero() {
			return StatusPending, nil
		}
		// Partially executed: the filled portion has settled cash effect.
		return StatusSettled, nil
	case "Cancelled", "Rejected", "Failed":
		return StatusFailed, nil
	default:
		return StatusUnknown, fmt.Errorf("unrecognised order status %q", status)
	}
}
