package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
	"github.com/SwineCoder101/spl-playground/internal/venue"
)

// Config represents the application configuration. Every ledger address and
// path arrives here explicitly; nothing is an embedded constant.
type Config struct {
	Server    ServerConfig       `json:"server"`
	Database  DatabaseConfig     `json:"database"`
	Ledger    ledger.RPCConfig   `json:"ledger"`
	Retry     ledger.RetryConfig `json:"retry"`
	Wallet    WalletConfig       `json:"wallet"`
	Venue     venue.Config       `json:"venue"`
	Pipeline  PipelineConfig     `json:"pipeline"`
	Security  SecurityConfig     `json:"security"`
	Logging   LoggingConfig      `json:"logging"`
	Reconcile ReconcileConfig    `json:"reconcile"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DatabaseConfig represents Postgres configuration for the run store.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// WalletConfig locates the signing key material.
type WalletConfig struct {
	KeypairPath string `json:"keypair_path"`
}

// PipelineConfig bounds per-step ledger interactions.
type PipelineConfig struct {
	ConfirmTimeout time.Duration `json:"confirm_timeout"`
	// IntentWindow bounds how far back the double-mint guard searches for a
	// prior allocation with the same destination and amount.
	IntentWindow time.Duration `json:"intent_window"`
}

// SecurityConfig holds API authentication settings. An empty secret disables
// the auth middleware; only acceptable on development clusters.
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig selects logger construction.
type LoggingConfig struct {
	Level string `json:"level"` // "debug" enables development logging
}

// ReconcileConfig drives the ambiguous-run reconciliation worker.
type ReconcileConfig struct {
	Schedule string `json:"schedule"` // cron expression
}

// Load builds configuration from an optional JSON file, a .env file when
// present, and environment variable overrides.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "spl_launchpad",
			SSLMode: "disable",
		},
		Ledger: ledger.RPCConfig{
			Commitment:   "confirmed",
			PollInterval: 2 * time.Second,
			HTTPTimeout:  30 * time.Second,
		},
		Retry: ledger.DefaultRetryConfig(),
		Pipeline: PipelineConfig{
			ConfirmTimeout: 90 * time.Second,
			IntentWindow:   10 * time.Minute,
		},
		Venue: venue.Config{
			Kind:           venue.KindPool,
			OrderLevels:    4,
			BatchOrders:    true,
			ConfirmTimeout: 90 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Schedule: "*/2 * * * *",
		},
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if endpoint := os.Getenv("LEDGER_RPC_URL"); endpoint != "" {
		config.Ledger.Endpoint = endpoint
	}
	if commitment := os.Getenv("LEDGER_COMMITMENT"); commitment != "" {
		config.Ledger.Commitment = commitment
	}
	if path := os.Getenv("WALLET_KEYPAIR_PATH"); path != "" {
		config.Wallet.KeypairPath = path
	}
	if pool := os.Getenv("VENUE_POOL_ADDRESS"); pool != "" {
		config.Venue.PoolAddress = ledger.Address(pool)
	}
	if market := os.Getenv("VENUE_MARKET_ADDRESS"); market != "" {
		config.Venue.MarketAddress = ledger.Address(market)
	}
	if secret := os.Getenv("API_JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Validate rejects configurations that would only fail later mid-pipeline.
func (c *Config) Validate() error {
	if c.Ledger.Endpoint == "" {
		return fmt.Errorf("config: ledger RPC endpoint is required")
	}
	if c.Wallet.KeypairPath == "" {
		return fmt.Errorf("config: wallet keypair path is required")
	}
	if c.Venue.PoolAddress == "" && c.Venue.MarketAddress == "" {
		return fmt.Errorf("config: at least one venue address (pool or market) is required")
	}
	return nil
}

// GetDatabaseURL returns the database connection string.
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server listen address.
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
