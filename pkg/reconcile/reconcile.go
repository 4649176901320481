// Package reconcile cross-checks normalised ledger entries against an
// independently observed balance delta. Reconcile is a pure function:
// identical inputs always yield an identical Report.
package reconcile

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"wbjapi/pkg/ledger"
)

// Period is a half-open reconciliation window [From, To).
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.To)
}

// Discrepancy references a ledger entry excluded from the observed sum,
// with the reason it could not be matched.
type Discrepancy struct {
	EntryID string          `json:"entry_id"`
	Kind    ledger.Kind     `json:"kind"`
	Status  ledger.Status   `json:"status"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
}

// Report is the immutable outcome of one reconciliation run.
type Report struct {
	Period        Period          `json:"period"`
	Currency      string          `json:"currency"`
	ExpectedDelta decimal.Decimal `json:"expected_delta"`
	ObservedDelta decimal.Decimal `json:"observed_delta"`
	Entries       []ledger.Entry  `json:"entries"`
	Discrepancies []Discrepancy   `json:"discrepancies"`
	Balanced      bool            `json:"balanced"`
	GeneratedAt   time.Time       `json:"generated_at,omitempty"`
}

// Difference returns expected minus observed.
func (r Report) Difference() decimal.Decimal {
	return r.ExpectedDelta.Sub(r.ObservedDelta)
}

// Reconcile sums the settled entries of the given currency inside the
// period and compares the sum against expectedDelta.
//
// Entries that cannot contribute to the sum are never swept into
// "matched": pending and failed entries inside the period, entries in a
// different currency inside the period, and every unknown-status entry
// regardless of period (its timestamp may itself be unparseable) are all
// listed as discrepancies. Discrepancies keep the input order, which the
// normalizer has already made deterministic.
//
// Trade-pair violations are checked over the full input, not just the
// period: an entry and its exit can straddle the window boundary. Each
// violation appears once, after the per-entry discrepancies.
func Reconcile(period Period, entries []ledger.Entry, currency string, expectedDelta decimal.Decimal) Report {
	observed := decimal.Zero
	var inPeriod []ledger.Entry
	var discrepancies []Discrepancy

	for _, entry := range entries {
		if entry.Status == ledger.StatusUnknown {
			discrepancies = append(discrepancies, Discrepancy{
				EntryID: entry.ID,
				Kind:    entry.Kind,
				Status:  entry.Status,
				Amount:  entry.Amount,
				Reason:  "status unknown, excluded from observed sum",
			})
			continue
		}
		if !period.Contains(entry.Timestamp) {
			continue
		}
		inPeriod = append(inPeriod, entry)
		switch {
		case entry.Currency != currency:
			discrepancies = append(discrepancies, Discrepancy{
				EntryID: entry.ID,
				Kind:    entry.Kind,
				Status:  entry.Status,
				Amount:  entry.Amount,
				Reason:  fmt.Sprintf("currency %s outside reconciled currency %s", entry.Currency, currency),
			})
		case entry.Status == ledger.StatusSettled:
			observed = observed.Add(entry.Amount)
		default:
			discrepancies = append(discrepancies, Discrepancy{
				EntryID: entry.ID,
				Kind:    entry.Kind,
				Status:  entry.Status,
				Amount:  entry.Amount,
				Reason:  fmt.Sprintf("status %s, not settled within the period", entry.Status),
			})
		}
	}

	for _, violation := range ledger.PairViolations(entries) {
		discrepancies = append(discrepancies, Discrepancy{
			Reason: "trade pair invariant: " + violation,
		})
	}

	return Report{
		Period:        period,
		Currency:      currency,
		ExpectedDelta: expectedDelta,
		ObservedDelta: observed,
		Entries:       inPeriod,
		Discrepancies: discrepancies,
		Balanced:      observed.Equal(expectedDelta) && len(discrepancies) == 0,
	}
}
