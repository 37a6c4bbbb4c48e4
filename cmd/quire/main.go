// Package main is the entry point for the quire page server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"quire/internal/cache"
	"quire/internal/config"
	"quire/internal/content"
	"quire/internal/database"
	"quire/internal/engine"
	"quire/internal/handlers"
	"quire/internal/middleware"
	"quire/internal/render"
	"quire/internal/router"
	"quire/internal/store"
	"quire/internal/store/litestore"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"driver", cfg.DBDriver,
	)

	nodes, closeDB, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open content store", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	eval := engine.New(engine.NewStoreResolver(nodes))
	eval.MaxDepth = cfg.RenderMaxDepth

	routes := router.Options{
		PagePathPrefix: cfg.PagePathPrefix,
		Parent: middleware.ParentRoute{
			Type:      cfg.ParentType,
			TypeParam: "parent_type",
			IDParam:   cfg.ParentParam,
		},
	}
	eval.DefinePagePath(router.PagePath(routes))

	svc := content.NewService(nodes, eval)

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(context.Background(), svc); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// The L2 page cache is optional; without Valkey every request renders.
	var pageCache *cache.PageCache
	if cfg.PageCacheEnabled() {
		var valkeyClient *redis.Client
		valkeyClient, err = cache.ConnectValkey(context.Background(), cache.ValkeyOptions{
			Host:     cfg.ValkeyHost,
			Port:     cfg.ValkeyPort,
			Password: cfg.ValkeyPassword,
			DB:       cfg.ValkeyDB,
		})
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()

		pageCache = cache.NewPageCache(valkeyClient, cfg.PageCacheTTL)
		svc.Invalidator = pageCache
		slog.Info("page cache enabled", "ttl", cfg.PageCacheTTL)
	} else {
		slog.Warn("valkey not configured, page cache disabled")
	}

	r := router.New(routes, router.Handlers{
		Pages:    handlers.NewPages(svc, render.New(eval, nil), pageCache),
		Layouts:  handlers.NewLayouts(svc),
		Partials: handlers.NewPartials(svc),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// openStore connects the configured database, applies migrations, and
// returns the node store with a function that closes the connection.
func openStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.DBDriver == config.DriverSQLite {
		gdb, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return litestore.New(gdb), closeDB, nil
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewNodeStore(db), func() { db.Close() }, nil
}
