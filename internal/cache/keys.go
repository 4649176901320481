// Package cache names the Redis keys and TTL classes used by the optional
// ledger archive and quote caching.
package cache

import (
	"strings"
	"time"

	"wbjapi/internal/config"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "wbjapi"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// QuoteKey returns the market snapshot key scoped by provider.
func QuoteKey(provider, symbol string) string {
	return formatKey("quote", provider, symbol)
}

// LedgerEntryKey caches a normalised ledger entry by its upstream ID.
func LedgerEntryKey(accountID, entryID string) string {
	return formatKey("ledger", accountID, entryID)
}

// LedgerPeriodKey caches the entry IDs of a reconciled period.
func LedgerPeriodKey(accountID string, from, to time.Time) string {
	return formatKey("ledger", accountID, "period",
		from.UTC().Format("20060102T150405"), to.UTC().Format("20060102T150405"))
}

// QuoteTTL returns the short-lived TTL for quote snapshots.
func QuoteTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}

// LedgerTTL returns the TTL for archived ledger entries.
func LedgerTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}
