package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"gin-gonic-todos/internal/config"
)

func TestOpenRepository(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"local", config.StorageConfig{Backend: config.BackendLocal, LocalPath: filepath.Join(dir, "todos.json")}},
		{"local memory", config.StorageConfig{Backend: config.BackendLocal}},
		{"orm sqlite", config.StorageConfig{Backend: config.BackendORM, ORMDialect: "sqlite", DSN: filepath.Join(dir, "todos.db")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo, closeRepo, err := openRepository(ctx, tt.cfg, log.New(io.Discard))
			if err != nil {
				t.Fatalf("openRepository: %v", err)
			}
			defer closeRepo()

			created, err := repo.Create(ctx, "wired")
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, ok, err := repo.GetByID(ctx, created.ID); err != nil || !ok {
				t.Fatalf("GetByID: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestOpenRepositoryUnknown(t *testing.T) {
	_, _, err := openRepository(context.Background(), config.StorageConfig{Backend: "mongo"}, log.New(io.Discard))
	if err == nil {
		t.Fatal("openRepository: want error for unknown backend")
	}
}
