package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cache-store-api/internal/auth"
	"cache-store-api/internal/cache"
	"cache-store-api/internal/config"
	"cache-store-api/internal/handlers"
	"cache-store-api/internal/logging"
	"cache-store-api/internal/metrics"
	"cache-store-api/internal/realtime"
	"cache-store-api/internal/routes"
	"cache-store-api/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

func main() {
	log := logging.Op()

	cfg, err := config.Load(os.Getenv("CACHE_CONFIG"))
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetLevelFromString(cfg.Log.Level)
	if logging.Level() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	auth.Configure(auth.Settings{
		Secret:           cfg.Auth.JWTSecret,
		Issuer:           cfg.Auth.Issuer,
		Audience:         cfg.Auth.Audience,
		TTL:              cfg.Auth.TokenTTL,
		ClientID:         cfg.Auth.ClientID,
		ClientSecretHash: cfg.Auth.ClientSecretHash,
	})
	if cfg.Auth.ClientID == "" || cfg.Auth.ClientSecretHash == "" {
		log.Warn("no API client configured, /api/login will reject every request")
	}

	store, namespace, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}

	pool := cache.NewPool(store, namespace)
	m := metrics.New("cache")
	m.RegisterPending("cache", pool.Pending)
	cacheHandler := handlers.NewCacheHandler(cache.NewSimpleCache(pool), namespace, realtime.GetHub(), m)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           routes.SetupRoutes(cacheHandler, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.Server.Addr, "backend", cfg.Storage.Backend, "namespace", namespace)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	if n := pool.Pending(); n > 0 {
		log.Warn("discarding uncommitted deferred writes", "pending", n)
	}
}
