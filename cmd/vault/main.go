// Command vault runs the long-running HTTP service exposing the vault
// aggregate's participant use cases and read views. Modeled on the
// teacher's simpler single-binary mains (cmd/derivatives) for the
// wiring order (logger, config, database, layers, server, graceful
// shutdown) generalized from gRPC to gin.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	vaulthttp "github.com/wyfcoding/vaultengine/internal/vault/interfaces/http"
	"github.com/wyfcoding/vaultengine/internal/vault/infrastructure/wiring"
	"github.com/wyfcoding/vaultengine/pkg/config"
	"github.com/wyfcoding/vaultengine/pkg/logger"
	"github.com/wyfcoding/vaultengine/pkg/metrics"
	"github.com/wyfcoding/vaultengine/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/vault.toml", "path to TOML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	slogger := logger.Get()

	layers, err := wiring.Build(cfg, slogger)
	if err != nil {
		slogger.Error("wire layers", "error", err)
		os.Exit(1)
	}

	if cfg.Metrics.Enabled {
		m := metrics.New(cfg.ServiceName)
		if err := m.Register(); err != nil {
			slogger.Error("register metrics", "error", err)
		} else {
			go func() {
				if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
					slogger.Error("metrics server stopped", "error", err)
				}
			}()
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.GinRecoveryMiddleware(), middleware.GinLoggingMiddleware(), middleware.GinCORSMiddleware())
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(float64(cfg.RateLimit.Burst), float64(cfg.RateLimit.QPS))
		router.Use(middleware.GinRateLimitMiddleware(limiter))
	}

	vaulthttp.New(layers.App).RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:         cfg.HTTP.Host + ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		slogger.Info("vault service started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slogger.Error("serve", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slogger.Info("shutting down vault service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slogger.Error("graceful shutdown failed", "error", err)
	}
}
