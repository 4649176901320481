package wbjapi

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"wbjapi/pkg/broker"
	"wbjapi/pkg/ledger"
	"wbjapi/pkg/reconcile"
)

// History is the normalised account activity for a period.
type History struct {
	AccountID string
	Entries   []ledger.Entry
	Mapped    int
	Unknown   int
	// Warning is non-nil when records could not be mapped or when a source
	// came back empty against a declared expectation of activity. It never
	// aborts the result.
	Warning *ledger.IncompleteDataWarning
	Raws    []broker.RawRecord
}

type historyQuery struct {
	expectActivity bool
}

// HistoryOption tunes one history fetch.
type HistoryOption func(*historyQuery)

// ExpectActivity declares that the caller knows the period had activity,
// for example from an observed balance change. An empty upstream answer is
// then reported as incomplete data rather than a quiet "no activity".
func ExpectActivity() HistoryOption {
	return func(q *historyQuery) { q.expectActivity = true }
}

// GetTransactionHistory fetches order and transfer activity for [from, to)
// and normalises it into ledger entries. It drives the transport adapter
// and the ledger normalizer. Malformed upstream rows are never dropped:
// they come back as unknown-status entries and are counted in Unknown.
func (c *Client) GetTransactionHistory(ctx context.Context, from, to time.Time, opts ...HistoryOption) (*History, error) {
	var query historyQuery
	for _, opt := range opts {
		opt(&query)
	}

	accountID, err := c.resolveAccount(ctx)
	if err != nil {
		return nil, err
	}

	orderRaws, err := c.provider.OrderHistory(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}
	transferRaws, err := c.provider.TransferHistory(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	raws := make([]broker.RawRecord, 0, len(orderRaws)+len(transferRaws))
	raws = append(raws, orderRaws...)
	raws = append(raws, transferRaws...)

	result := ledger.Normalize(raws)
	hist := &History{
		AccountID: accountID,
		Entries:   result.Entries,
		Mapped:    result.Mapped,
		Unknown:   result.Unknown,
		Warning:   result.Warning,
		Raws:      raws,
	}

	if query.expectActivity {
		var empty []string
		if len(orderRaws) == 0 {
			empty = append(empty, broker.RawSourceOrders)
		}
		if len(transferRaws) == 0 {
			empty = append(empty, broker.RawSourceTransfers)
		}
		if len(empty) > 0 {
			if hist.Warning == nil {
				hist.Warning = &ledger.IncompleteDataWarning{}
			}
			hist.Warning.EmptySources = append(hist.Warning.EmptySources, empty...)
			hist.Warning.Reason = "activity was expected for the period"
		}
	}
	if hist.Warning != nil {
		logx.WithContext(ctx).Errorf("wbjapi: %v", hist.Warning)
	}

	if c.archiver != nil {
		rawByID := make(map[string]broker.RawRecord, len(raws))
		for _, raw := range raws {
			if raw.ID != "" {
				rawByID[raw.ID] = raw
			}
		}
		if err := c.archiver.SaveEntries(ctx, accountID, hist.Entries, rawByID); err != nil {
			logx.WithContext(ctx).Errorf("wbjapi: archive ledger entries: %v", err)
		}
	}
	return hist, nil
}

// ReconcilePeriod fetches the period's history and cross-checks the
// settled entries against expectedDelta for the given currency. A non-zero
// expectation implies the period had activity, so an empty upstream answer
// surfaces in the history warning and leaves the report unbalanced. The
// report is written through the configured report writer when one is set.
func (c *Client) ReconcilePeriod(ctx context.Context, from, to time.Time, currency string, expectedDelta decimal.Decimal) (*reconcile.Report, *History, error) {
	var opts []HistoryOption
	if !expectedDelta.IsZero() {
		opts = append(opts, ExpectActivity())
	}
	hist, err := c.GetTransactionHistory(ctx, from, to, opts...)
	if err != nil {
		return nil, nil, err
	}

	report := reconcile.Reconcile(reconcile.Period{From: from, To: to}, hist.Entries, currency, expectedDelta)
	if c.reports != nil {
		path, err := c.reports.WriteReport(&report)
		if err != nil {
			logx.WithContext(ctx).Errorf("wbjapi: persist reconciliation report: %v", err)
		} else {
			logx.WithContext(ctx).Infof("wbjapi: reconciliation report written to %s", path)
		}
	}
	return &report, hist, nil
}
