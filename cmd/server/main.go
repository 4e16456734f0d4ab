package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SwineCoder101/spl-playground/internal/auth"
	"github.com/SwineCoder101/spl-playground/internal/config"
	"github.com/SwineCoder101/spl-playground/internal/keys"
	"github.com/SwineCoder101/spl-playground/internal/ledger"
	"github.com/SwineCoder101/spl-playground/internal/pipeline"
	"github.com/SwineCoder101/spl-playground/internal/token"
	"github.com/SwineCoder101/spl-playground/internal/venue"
)

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	store, err := pipeline.NewGormStore(db)
	if err != nil {
		logger.Fatal("failed to initialize run store", zap.Error(err))
	}

	wallet, err := keys.Load(cfg.Wallet.KeypairPath)
	if err != nil {
		logger.Fatal("failed to load wallet", zap.Error(err))
	}

	client, err := ledger.NewRPCClient(cfg.Ledger, logger)
	if err != nil {
		logger.Fatal("failed to create ledger client", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(registry)

	issuer := token.NewIssuer(client, wallet, cfg.Retry, cfg.Pipeline.ConfirmTimeout, logger)
	provisioner := token.NewProvisioner(client, wallet, cfg.Retry, cfg.Pipeline.ConfirmTimeout, logger)
	allocator := token.NewAllocator(client, cfg.Retry, cfg.Pipeline.ConfirmTimeout, cfg.Pipeline.IntentWindow, logger)

	seeders := make(map[venue.Kind]venue.Seeder)
	if cfg.Venue.PoolAddress != "" {
		poolCfg := cfg.Venue
		poolCfg.Kind = venue.KindPool
		seeder, err := venue.New(poolCfg, client, wallet, cfg.Retry, logger)
		if err != nil {
			logger.Fatal("failed to build pool venue", zap.Error(err))
		}
		seeders[venue.KindPool] = seeder
	}
	if cfg.Venue.MarketAddress != "" {
		marketCfg := cfg.Venue
		marketCfg.Kind = venue.KindOrderBook
		seeder, err := venue.New(marketCfg, client, wallet, cfg.Retry, logger)
		if err != nil {
			logger.Fatal("failed to build order-book venue", zap.Error(err))
		}
		seeders[venue.KindOrderBook] = seeder
	}

	service := pipeline.NewService(store, issuer, provisioner, allocator, seeders, wallet.Address(), metrics, logger)
	handler := pipeline.NewHandler(service, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	if cfg.Security.JWTSecret != "" {
		api.Use(auth.Middleware(cfg.Security.JWTSecret, logger))
	} else {
		logger.Warn("API authentication disabled; set API_JWT_SECRET outside development")
	}
	handler.RegisterRoutes(api)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("launchpad API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.json"
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
