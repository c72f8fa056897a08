package database

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Options struct {
	Backend     string
	FilePath    string
	DBPath      string
	RedisAddr   string
	RedisPrefix string
}

// Open initializes the configured cursor store.
func Open(ctx context.Context, opts Options) (CursorStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		return NewFileStore(opts.FilePath)
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.DBPath)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown state backend: %s", opts.Backend)
	}
}
