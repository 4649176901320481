//go:build integration
// +build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"wbjapi/internal/cache"
	"wbjapi/internal/config"
	"wbjapi/internal/store"
	"wbjapi/pkg/broker"
	"wbjapi/pkg/ledger"
)

func newIntegrationStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := os.Getenv("WBJAPI_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Postgres not configured (WBJAPI_POSTGRES_DSN empty)")
	}
	conn := sqlx.NewSqlConn("pgx", dsn)
	return store.New(conn, nil, cache.NewTTLSet(config.CacheTTL{Short: 10, Medium: 60, Long: 300}))
}

func TestSaveAndLoadEntries(t *testing.T) {
	s := newIntegrationStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	accountID := "IT-" + time.Now().UTC().Format("20060102150405")
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		{
			ID:        "tr-1",
			Kind:      ledger.KindDeposit,
			Amount:    decimal.NewFromInt(100000),
			Currency:  "JPY",
			Timestamp: at,
			Status:    ledger.StatusSettled,
		},
		{
			ID:          "ord-1",
			Kind:        ledger.KindTradeEntry,
			Symbol:      "7203",
			Amount:      decimal.NewFromInt(-25000),
			Currency:    "JPY",
			Timestamp:   at.Add(time.Hour),
			Status:      ledger.StatusSettled,
			PositionRef: "7203",
		},
	}
	raws := map[string]broker.RawRecord{
		"tr-1": {
			Source:    broker.RawSourceTransfers,
			ID:        "tr-1",
			Kind:      "DEPOSIT",
			Amount:    "100000",
			Currency:  "JPY",
			Timestamp: at.Format(time.RFC3339),
			Status:    "COMPLETED",
		},
	}

	require.NoError(t, s.SaveEntries(ctx, accountID, entries, raws))

	loaded, err := s.EntriesBetween(ctx, accountID, at.Add(-time.Hour), at.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "tr-1", loaded[0].ID)
	assert.True(t, loaded[0].Amount.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, "ord-1", loaded[1].ID)
	assert.Equal(t, "7203", loaded[1].PositionRef)

	raw, err := s.RawPayload(ctx, accountID, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, "DEPOSIT", raw.Kind)
	assert.Equal(t, "100000", raw.Amount)
}

func TestSaveEntriesIsIdempotent(t *testing.T) {
	s := newIntegrationStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	accountID := "IT-UPSERT-" + time.Now().UTC().Format("20060102150405")
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	entry := ledger.Entry{
		ID:        "tr-1",
		Kind:      ledger.KindDeposit,
		Amount:    decimal.NewFromInt(100000),
		Currency:  "JPY",
		Timestamp: at,
		Status:    ledger.StatusPending,
	}

	require.NoError(t, s.SaveEntries(ctx, accountID, []ledger.Entry{entry}, nil))
	entry.Status = ledger.StatusSettled
	require.NoError(t, s.SaveEntries(ctx, accountID, []ledger.Entry{entry}, nil))

	loaded, err := s.EntriesBetween(ctx, accountID, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, ledger.StatusSettled, loaded[0].Status)
}
