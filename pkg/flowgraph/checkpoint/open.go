package checkpoint

import (
	"context"
	"fmt"
	"strings"
)

// Open selects a Store from a DSN:
//
//	memory://                 MemoryStore
//	sqlite://path/to/file.db  SQLiteStore (also a bare file path)
//	redis://host:6379/0       RedisStore
//	postgres://user@host/db   PostgresStore (also postgresql://)
func Open(ctx context.Context, dsn string) (Store, error) {
	var (
		store Store
		err   error
	)

	switch {
	case dsn == "" || dsn == "memory://":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		store, err = asStore(NewSQLiteStore(strings.TrimPrefix(dsn, "sqlite://")))
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		store, err = asStore(NewRedisStoreFromURL(ctx, dsn))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		store, err = asStore(NewPostgresStore(ctx, dsn))
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("unsupported checkpoint store: %s", dsn)
	default:
		store, err = asStore(NewSQLiteStore(dsn))
	}

	if err != nil {
		return nil, err
	}
	return store, nil
}

// asStore keeps a failed constructor's typed nil out of the interface.
func asStore[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
