package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tenzoki/voxelgrid/internal/api"
	"github.com/tenzoki/voxelgrid/internal/config"
	"github.com/tenzoki/voxelgrid/internal/coordinator"
	"github.com/tenzoki/voxelgrid/internal/parser"
	"github.com/tenzoki/voxelgrid/internal/parser/vasp"
	"github.com/tenzoki/voxelgrid/internal/resources"
	"github.com/tenzoki/voxelgrid/internal/tasks"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	app := &cli.App{
		Name:  "voxelgrid-server",
		Usage: "serves chunked voxel grid data parsed from scientific text formats",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file path"},
			&cli.StringFlag{Name: "resource-dir", Usage: "directory containing grid files (overrides config)"},
			&cli.StringFlag{Name: "addr", Usage: "HTTP bind address (overrides config)"},
			&cli.Int64Flag{Name: "max-concurrent-parses", Usage: "background parse concurrency limit (overrides config)"},
			&cli.Int64Flag{Name: "task-cache-entries", Usage: "bounded task cache size (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			return run(c, logger)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context, logger *slog.Logger) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(c, cfg)

	registry := parser.NewRegistry()
	registry.Register("vasp", vasp.New())

	store, err := tasks.NewStore(cfg.TaskCacheEntries, cfg.TaskTTL, logger)
	if err != nil {
		return fmt.Errorf("creating task store: %w", err)
	}
	defer store.Close()

	coord := coordinator.New(cfg.ResourceDir, registry, store, cfg.MaxConcurrentParses, logger)

	lister, err := resources.New(cfg.ResourceDir, registry.SupportedExtensions(), logger)
	if err != nil {
		return fmt.Errorf("starting resource listing: %w", err)
	}
	defer lister.Close()

	server := api.NewServer(logger, registry, coord, store, lister, cfg.ResourceDir)
	router := api.NewRouter(logger, server, cfg.GzipChunks)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // large chunk bodies can take a while to write
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting voxelgrid server", "addr", httpServer.Addr, "resource_dir", cfg.ResourceDir)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func applyFlagOverrides(c *cli.Context, cfg *config.Config) {
	if v := c.String("resource-dir"); v != "" {
		cfg.ResourceDir = v
	}
	if v := c.String("addr"); v != "" {
		cfg.Addr = v
	}
	if v := c.Int64("max-concurrent-parses"); v > 0 {
		cfg.MaxConcurrentParses = v
	}
	if v := c.Int64("task-cache-entries"); v > 0 {
		cfg.TaskCacheEntries = v
	}
}
