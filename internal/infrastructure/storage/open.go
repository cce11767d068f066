// Package storage selects and opens the configured counter store.
package storage

import (
	"context"
	"fmt"

	"bizdesk/internal/config"
	"bizdesk/internal/core/numerator"
	"bizdesk/internal/infrastructure/storage/memory"
	"bizdesk/internal/infrastructure/storage/postgres"
	"bizdesk/internal/infrastructure/storage/redis"
	"bizdesk/internal/infrastructure/storage/sqlite"
	"bizdesk/internal/infrastructure/storage/zookeeper"
	"bizdesk/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Backend is an opened counter store and its connection.
type Backend struct {
	Driver   string
	Counters numerator.Store

	// Postgres is set only for the postgres driver; document
	// repositories, the audit log and idempotency keys live there.
	Postgres *postgres.TxManager

	ping  pinger
	close func()
}

// Ping checks the underlying connection.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping.Ping(ctx)
}

// Close releases the connection.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects to the store named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (*Backend, error) {
	b := &Backend{Driver: cfg.Driver}

	switch cfg.Driver {
	case config.DriverMemory:
		s := memory.New()
		b.Counters, b.ping = s, s
		logger.Warn(ctx, "memory counter store selected; numbers are lost on restart", "component", "storage")

	case config.DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.Postgres.URL)
		if cfg.Postgres.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Postgres.MaxConns
		}
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		txm := postgres.NewTxManager(pool)
		if err := postgres.EnsureSchema(ctx, txm); err != nil {
			pool.Close()
			return nil, err
		}
		b.Counters, b.ping, b.Postgres = postgres.NewCounterStore(txm), txm, txm
		b.close = pool.Close

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.Counters, b.ping = s, s
		b.close = func() { _ = s.Close() }

	case config.DriverRedis:
		s, err := redis.Connect(ctx, redis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		b.Counters, b.ping = s, s
		b.close = func() { _ = s.Close() }

	case config.DriverZooKeeper:
		s, err := zookeeper.Connect(ctx, zookeeper.Config{
			Servers:        cfg.ZooKeeper.Servers,
			Root:           cfg.ZooKeeper.Root,
			SessionTimeout: cfg.ZooKeeper.SessionTimeout,
		})
		if err != nil {
			return nil, err
		}
		b.Counters, b.ping = s, s
		b.close = func() { _ = s.Close() }

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	logger.Info(ctx, "counter store ready", "component", "storage", "driver", cfg.Driver)
	return b, nil
}
