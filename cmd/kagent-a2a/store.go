// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/go-a2a/kagent-a2a/internal/config"
	"github.com/go-a2a/kagent-a2a/server/task"
)

// openStore opens and initializes the task store selected by cfg. The
// returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (task.TaskStore, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	var store task.TaskStore
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return task.NewInMemoryTaskStore(), noop, nil

	case config.DriverSQLite, config.DriverPostgres:
		dialector := sqlite.Open(cfg.Store.DSN)
		if cfg.Store.Driver == config.DriverPostgres {
			dialector = postgres.Open(cfg.Store.DSN)
		}
		db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s database: %w", cfg.Store.Driver, err)
		}
		store, err = task.NewDatabaseTaskStore(task.DatabaseTaskStoreConfig{
			DB:          db,
			TableName:   cfg.Store.Table,
			CreateTable: true,
		})
		if err != nil {
			return nil, nil, err
		}

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = task.NewRedisTaskStore(client,
			task.WithPrefix(cfg.Redis.Prefix),
			task.WithTTL(cfg.Redis.TTL),
		)

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	lc, ok := store.(task.Lifecycle)
	if !ok {
		return store, noop, nil
	}
	if err := lc.Initialize(ctx); err != nil {
		_ = lc.Close(ctx)
		return nil, nil, fmt.Errorf("failed to initialize %s task store: %w", cfg.Store.Driver, err)
	}
	return store, lc.Close, nil
}
