// Package store opens the configured roster store backend.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/store/memory"
	"github.com/JonMunkholm/roster/internal/store/postgres"
	"github.com/JonMunkholm/roster/internal/store/redisstore"
)

// Open connects to the backend named by cfg.Store.Driver and returns the
// store plus a function releasing its connections. Every call on the
// returned store is bounded by cfg.Store.Timeout.
func Open(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	st, closeFn, err := open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return WithTimeout(st, cfg.Store.Timeout), closeFn, nil
}

func open(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	collection := cfg.Store.Collection()

	switch strings.ToLower(cfg.Store.Driver) {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, collection)
	case config.DriverRedis:
		return openRedis(ctx, cfg, collection)
	case config.DriverMemory:
		slog.Warn("using in-memory store; records are lost on exit")
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, collection string) (core.Store, func(), error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"), "collection", collection)
	} else {
		slog.Info("connected to database", "collection", collection)
	}

	st := postgres.New(pool, collection)
	if err := st.EnsureSchema(pingCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}

func openRedis(ctx context.Context, cfg *config.Config, collection string) (core.Store, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.Redis.Addr, err)
	}

	slog.Info("connected to redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB, "collection", collection)
	return redisstore.New(client, collection), func() { client.Close() }, nil
}
