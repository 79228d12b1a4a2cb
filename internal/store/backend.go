package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Snapshot backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config selects where snapshots live. The event log is always SQLite at
// Path.
type Config struct {
	Backend     string `koanf:"backend" validate:"oneof=sqlite badger redis"`
	Path        string `koanf:"path"`
	BadgerDir   string `koanf:"badger_dir"`
	RedisAddr   string `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB     int    `koanf:"redis_db" validate:"gte=0"`
	RedisPrefix string `koanf:"redis_prefix"`
}

// Backend bundles the opened event log and snapshot repo.
type Backend struct {
	Store     *Store
	Snapshots SnapshotRepo
	Events    EventRepo

	closers []func() error
}

// OpenBackend opens the SQLite store at cfg.Path (resolving DefaultDBPath
// when empty) and the configured snapshot backend.
func OpenBackend(ctx context.Context, cfg Config) (*Backend, error) {
	path := cfg.Path
	if path == "" {
		var err error
		if path, err = DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	st, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	b := &Backend{Store: st, Events: st.EventRepo()}
	b.closers = append(b.closers, st.Close)

	switch cfg.Backend {
	case BackendSQLite, "":
		b.Snapshots = st.SnapshotRepo()
	case BackendBadger:
		db, err := OpenBadger(cfg.BadgerDir)
		if err != nil {
			b.Close()
			return nil, err
		}
		repo, err := NewBadgerSnapshotRepo(db)
		if err != nil {
			db.Close()
			b.Close()
			return nil, err
		}
		b.Snapshots = repo
		b.closers = append(b.closers, db.Close, repo.Close)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			b.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		repo, err := NewRedisSnapshotRepo(client, cfg.RedisPrefix)
		if err != nil {
			client.Close()
			b.Close()
			return nil, err
		}
		b.Snapshots = repo
		b.closers = append(b.closers, client.Close)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
	return b, nil
}

// Close closes everything in reverse open order.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
