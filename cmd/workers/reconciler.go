package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SwineCoder101/spl-playground/internal/config"
	"github.com/SwineCoder101/spl-playground/internal/ledger"
	"github.com/SwineCoder101/spl-playground/internal/pipeline"
	"github.com/SwineCoder101/spl-playground/internal/reconcile"
)

// The reconciler worker settles launch runs whose allocation outcome was
// lost: it asks the ledger whether the mint actually landed and moves the run
// forward or back accordingly. It runs out of process so an API restart never
// interrupts a settlement pass.
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

	client, err := ledger.NewRPCClient(cfg.Ledger, logger)
	if err != nil {
		logger.Fatal("failed to create ledger client", zap.Error(err))
	}

	worker := reconcile.New(store, client, cfg.Reconcile.Schedule, 2*cfg.Pipeline.IntentWindow, logger)
	if err := worker.Start(); err != nil {
		logger.Fatal("failed to start reconciler", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("stopping reconciler")
	worker.Stop()
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
