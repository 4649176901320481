package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	cachekeys "wbjapi/internal/cache"
	"wbjapi/pkg/broker"
	"wbjapi/pkg/ledger"
)

// Schema, applied by the caller's migrations:
//
//	CREATE TABLE ledger_entries (
//	    account_id   text        NOT NULL,
//	    id           text        NOT NULL,
//	    kind         text        NOT NULL,
//	    symbol       text        NOT NULL DEFAULT '',
//	    amount       numeric     NOT NULL,
//	    currency     text        NOT NULL,
//	    ts           timestamptz NOT NULL,
//	    status       text        NOT NULL,
//	    position_ref text        NOT NULL DEFAULT '',
//	    note         text        NOT NULL DEFAULT '',
//	    raw          bytea,
//	    PRIMARY KEY (account_id, id)
//	);

type entryRow struct {
	ID          string    `db:"id"`
	Kind        string    `db:"kind"`
	Symbol      string    `db:"symbol"`
	Amount      string    `db:"amount"`
	Currency    string    `db:"currency"`
	Ts          time.Time `db:"ts"`
	Status      string    `db:"status"`
	PositionRef string    `db:"position_ref"`
	Note        string    `db:"note"`
}

func (r entryRow) toEntry() (ledger.Entry, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("store: bad amount %q for entry %s: %w", r.Amount, r.ID, err)
	}
	return ledger.Entry{
		ID:          r.ID,
		Kind:        ledger.Kind(r.Kind),
		Symbol:      r.Symbol,
		Amount:      amount,
		Currency:    r.Currency,
		Timestamp:   r.Ts,
		Status:      ledger.Status(r.Status),
		PositionRef: r.PositionRef,
		Note:        r.Note,
	}, nil
}

// SaveEntries upserts normalised entries for an account. rawByID carries
// the upstream records the entries came from, keyed by entry ID: when an
// entry's record is present it is msgpack-encoded and stored alongside the
// entry for audit.
func (s *Store) SaveEntries(ctx context.Context, accountID string, entries []ledger.Entry, rawByID map[string]broker.RawRecord) error {
	const q = `
INSERT INTO ledger_entries
    (account_id, id, kind, symbol, amount, currency, ts, status, position_ref, note, raw)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (account_id, id) DO UPDATE SET
    kind = EXCLUDED.kind,
    symbol = EXCLUDED.symbol,
    amount = EXCLUDED.amount,
    currency = EXCLUDED.currency,
    ts = EXCLUDED.ts,
    status = EXCLUDED.status,
    position_ref = EXCLUDED.position_ref,
    note = EXCLUDED.note,
    raw = EXCLUDED.raw`

	for _, entry := range entries {
		var raw []byte
		if rec, ok := rawByID[entry.ID]; ok {
			encoded, err := msgpack.Marshal(rec)
			if err != nil {
				return fmt.Errorf("store: encode raw payload for entry %s: %w", entry.ID, err)
			}
			raw = encoded
		}
		_, err := s.conn.ExecCtx(ctx, q,
			accountID, entry.ID, string(entry.Kind), entry.Symbol,
			entry.Amount.String(), entry.Currency, entry.Timestamp.UTC(),
			string(entry.Status), entry.PositionRef, entry.Note, raw)
		if err != nil {
			return fmt.Errorf("store: save entry %s: %w", entry.ID, err)
		}
	}
	return nil
}

// EntriesBetween returns archived entries for [from, to) ordered by
// timestamp then id, matching the normalizer's ordering.
func (s *Store) EntriesBetween(ctx context.Context, accountID string, from, to time.Time) ([]ledger.Entry, error) {
	key := cachekeys.LedgerPeriodKey(accountID, from, to)
	var cached []ledger.Entry
	if s.getCache(ctx, key, &cached) {
		return cached, nil
	}

	const q = `
SELECT id, kind, symbol, amount::text AS amount, currency, ts, status, position_ref, note
FROM ledger_entries
WHERE account_id = $1 AND ts >= $2 AND ts < $3
ORDER BY ts ASC, id ASC`

	var rows []entryRow
	if err := s.conn.QueryRowsCtx(ctx, &rows, q, accountID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("store: query entries: %w", err)
	}

	entries := make([]ledger.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	s.setCache(ctx, key, cachekeys.LedgerTTL(s.ttl), entries)
	return entries, nil
}

// RawPayload returns the msgpack-decoded upstream record an entry was
// derived from, or nil when none was archived.
func (s *Store) RawPayload(ctx context.Context, accountID, entryID string) (*broker.RawRecord, error) {
	const q = `SELECT raw FROM ledger_entries WHERE account_id = $1 AND id = $2`

	var raw []byte
	if err := s.conn.QueryRowCtx(ctx, &raw, q, accountID, entryID); err != nil {
		return nil, fmt.Errorf("store: query raw payload for %s: %w", entryID, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var rec broker.RawRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("store: decode raw payload for %s: %w", entryID, err)
	}
	return &rec, nil
}
