// Package storage persists reading progress and generated stories behind a
// small key-value port, with Redis, SQLite and in-memory backends.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// KV is the persistence port. Get reports found=false for a missing key
// rather than an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	RedisURL   string
	SQLitePath string
	TTL        time.Duration // Redis key expiry; zero keeps keys forever
}

// Open connects the configured backend.
func Open(opts Options, logger *slog.Logger) (KV, error) {
	switch opts.Backend {
	case BackendRedis:
		return NewRedisKV(opts.RedisURL, opts.TTL, logger)
	case BackendSQLite:
		return OpenSQLiteKV(opts.SQLitePath, logger)
	case BackendMemory, "":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
