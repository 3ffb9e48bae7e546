package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"gin-gonic-todos/internal/config"
	"gin-gonic-todos/internal/storage/localstore"
	"gin-gonic-todos/internal/storage/orm"
	"gin-gonic-todos/internal/storage/postgres"
	"gin-gonic-todos/internal/todo"
)

// openRepository connects the configured backend. The returned func releases
// it at process exit.
func openRepository(ctx context.Context, cfg config.StorageConfig, logger *log.Logger) (todo.Repository, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DSN, cfg.ConnectAttempts)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Connected to postgres")
		return postgres.New(pool), pool.Close, nil

	case config.BackendORM:
		db, err := orm.Open(cfg.ORMDialect, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		repo := orm.New(db)
		logger.Info("Opened orm backend", "dialect", cfg.ORMDialect)
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Error("Error closing orm backend", "err", err)
			}
		}, nil

	case config.BackendLocal:
		s, err := localstore.Open(cfg.LocalPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Opened local store", "path", s.Path())
		return s, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
