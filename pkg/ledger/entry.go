// Package ledger normalises heterogeneous brokerage activity records
// (deposits, withdrawals, trade legs) into a single entry model with
// consistent timestamps and statuses. Records the upstream API mangles are
// kept as unknown-status entries instead of being dropped, so downstream
// reconciliation can see exactly how much data it cannot trust.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a ledger entry.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindTradeEntry Kind = "trade_entry"
	KindTradeExit  Kind = "trade_exit"
)

// Status is the settlement state of an entry. Unknown marks records the
// upstream returned in a shape we could not fully map.
type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
	StatusFailed  Status = "failed"
	StatusUnknown Status = "unknown"
)

// Entry is one normalised money or security movement. Amount is the signed
// cash effect: deposits and trade exits are positive, withdrawals and trade
// entries negative.
type Entry struct {
	ID          string
	Kind        Kind
	Symbol      string
	Amount      decimal.Decimal
	Currency    string
	Timestamp   time.Time
	Status      Status
	PositionRef string
	Note        string // populated for unknown entries with the mapping failure
}

// IncompleteDataWarning is a non-fatal signal that the upstream returned
// partial, malformed or implausibly empty data. It travels alongside results
// rather than aborting them, and also satisfies error for callers that want
// to log it as one.
type IncompleteDataWarning struct {
	UnknownRecords int
	EmptySources   []string
	Reason         string
}

func (w *IncompleteDataWarning) Error() string {
	parts := make([]string, 0, 3)
	if w.UnknownRecords > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) could not be mapped", w.UnknownRecords))
	}
	if len(w.EmptySources) > 0 {
		parts = append(parts, fmt.Sprintf("source(s) returned empty: %s", strings.Join(w.EmptySources, ", ")))
	}
	if w.Reason != "" {
		parts = append(parts, w.Reason)
	}
	if len(parts) == 0 {
		parts = append(parts, "upstream data may be incomplete")
	}
	return "ledger: incomplete data: " + strings.Join(parts, "; ")
}

// PairViolations checks the trade-pair invariant: trade_entry/trade_exit
// entries sharing a position reference must agree on symbol and have
// opposite holdings effects. It returns one message per violating ref.
func PairViolations(entries []Entry) []string {
	type pairInfo struct {
		symbol    string
		entrySeen bool
		exitSeen  bool
	}
	pairs := make(map[string]*pairInfo)
	var violations []string
	for _, entry := range entries {
		if entry.Kind != KindTradeEntry && entry.Kind != KindTradeExit {
			continue
		}
		if entry.PositionRef == "" {
			continue
		}
		info, ok := pairs[entry.PositionRef]
		if !ok {
			info = &pairInfo{symbol: entry.Symbol}
			pairs[entry.PositionRef] = info
		}
		if info.symbol != entry.Symbol {
			violations = append(violations, fmt.Sprintf("position %s mixes symbols %s and %s", entry.PositionRef, info.symbol, entry.Symbol))
			continue
		}
		if entry.Kind == KindTradeEntry {
			info.entrySeen = true
		} else {
			info.exitSeen = true
		}
	}
	return violations
}
