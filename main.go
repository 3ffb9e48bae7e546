package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"gin-gonic-todos/internal/api"
	"gin-gonic-todos/internal/config"
	"gin-gonic-todos/internal/logging"
	"gin-gonic-todos/internal/telemetry"
	"gin-gonic-todos/internal/usecase"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (default $TODOS_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config", "err", err)
	}
	logger := logging.New(os.Stderr, cfg.Log, "todos")

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", "err", err)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize tracing and metrics
	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("Error shutting down telemetry", "err", err)
		}
	}()

	// One backend connection for the life of the process
	repo, closeRepo, err := openRepository(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	repo = telemetry.InstrumentRepository(repo, cfg.Storage.Backend)

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(usecase.New(repo), logger, api.RouterOptions{
		BasePath:    cfg.Server.BasePath,
		ServiceName: cfg.Telemetry.ServiceName,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Server.Addr, "backend", cfg.Storage.Backend, "base_path", cfg.Server.BasePath)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
