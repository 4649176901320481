// Package store is the optional persisted ledger archive. The core client
// never requires it; callers that want an audit trail across process
// restarts wire one in and the facade writes through it.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "wbjapi/internal/cache"
	"wbjapi/internal/config"
)

// Store archives normalised ledger entries in Postgres together with the
// msgpack-encoded raw upstream payload each entry was derived from, and
// serves hot reads through the go-zero cache layer.
type Store struct {
	conn  sqlx.SqlConn
	cache cache.Cache
	ttl   cachekeys.TTLSet
}

// Open connects to Postgres using the configured DSN and applies the
// configured pool limits.
func Open(cfg *config.Config, c cache.Cache) *Store {
	conn := sqlx.NewSqlConn("pgx", cfg.Postgres.DSN)
	if db, err := conn.RawDB(); err == nil {
		applyPoolLimits(db, cfg.Postgres)
	} else {
		logx.Errorf("store: raw db handle unavailable, pool limits not applied: %v", err)
	}
	return New(conn, c, cachekeys.NewTTLSet(cfg.TTL))
}

// applyPoolLimits enforces the configured connection limits. Non-positive
// values keep the driver defaults.
func applyPoolLimits(db *sql.DB, cfg config.PostgresConf) {
	if cfg.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
}

// New wires a Store over an existing connection. cache may be nil.
func New(conn sqlx.SqlConn, c cache.Cache, ttl cachekeys.TTLSet) *Store {
	return &Store{conn: conn, cache: c, ttl: ttl}
}

func (s *Store) getCache(ctx context.Context, key string, v interface{}) bool {
	if s.cache == nil {
		return false
	}
	if err := s.cache.GetCtx(ctx, key, v); err != nil {
		if !s.cache.IsNotFound(err) {
			logx.WithContext(ctx).Errorf("get cache %s: %v", key, err)
		}
		return false
	}
	return true
}

func (s *Store) setCache(ctx context.Context, key string, ttl time.Duration, v interface{}) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, v, ttl); err != nil {
		logx.WithContext(ctx).Errorf("set cache %s: %v", key, err)
	}
}
