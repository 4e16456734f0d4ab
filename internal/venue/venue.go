package venue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/keys"
	"github.com/SwineCoder101/spl-playground/internal/ledger"
	"github.com/SwineCoder101/spl-playground/internal/token"
)

// Kind selects the trading venue variant.
type Kind string

const (
	// KindPool seeds an automated-market-maker pool.
	KindPool Kind = "pool"
	// KindOrderBook seeds an order-book market.
	KindOrderBook Kind = "order-book"
)

// ParseKind validates a venue kind from configuration or user input.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPool, KindOrderBook:
		return Kind(s), nil
	default:
		return "", ledger.Errorf(ledger.KindInvalidParameter, "venue.ParseKind",
			"unknown venue kind %q, want %q or %q", s, KindPool, KindOrderBook)
	}
}

// SeedRequest carries the liquidity bootstrap parameters. Symbol is a display
// label only, not ledger-enforced. Amount is in base units.
type SeedRequest struct {
	Asset       *token.Asset
	Symbol      string
	Amount      uint64
	SlippagePct float64
}

// OrderStatus describes one order's outcome within a seed.
type OrderStatus string

const (
	OrderPlaced  OrderStatus = "placed"
	OrderFailed  OrderStatus = "failed"
	OrderSkipped OrderStatus = "skipped"
)

// OrderOutcome reports one order of an order-book seed. Outcomes are never
// collapsed into a single boolean: a partially placed seed lists exactly
// which orders landed.
type OrderOutcome struct {
	Order     ledger.OrderSpec `json:"order"`
	Status    OrderStatus      `json:"status"`
	Signature ledger.Signature `json:"signature,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// SeedResult is the confirmation of a liquidity seed. Pool seeds carry a
// single signature; order-book seeds additionally carry per-order outcomes.
type SeedResult struct {
	Signature ledger.Signature `json:"signature"`
	Orders    []OrderOutcome   `json:"orders,omitempty"`
}

// Seeder is the capability the pipeline depends on. It never assumes the
// market or pool exists; a missing venue is a configuration error, reported
// as VenueNotFound and not retried.
type Seeder interface {
	Seed(ctx context.Context, req SeedRequest) (*SeedResult, error)
}

// Config selects and parameterizes the venue adapter.
type Config struct {
	Kind Kind `json:"kind"`
	// PoolAddress is the AMM pool to seed (pool kind).
	PoolAddress ledger.Address `json:"pool_address"`
	// MarketAddress is the order-book market to seed (order-book kind).
	MarketAddress ledger.Address `json:"market_address"`
	// OrderLevels is how many price levels an order-book seed spreads across.
	OrderLevels int `json:"order_levels"`
	// BatchOrders submits all orders as one transaction when the venue
	// supports batching.
	BatchOrders    bool          `json:"batch_orders"`
	ConfirmTimeout time.Duration `json:"confirm_timeout"`
}

// New builds the venue adapter for the configured kind.
func New(cfg Config, client ledger.Client, owner *keys.KeyPair, retry ledger.RetryConfig, logger *zap.Logger) (Seeder, error) {
	switch cfg.Kind {
	case KindPool:
		if cfg.PoolAddress == "" {
			return nil, ledger.Errorf(ledger.KindInvalidParameter, "venue.New", "pool address is required")
		}
		return NewPoolVenue(client, owner, cfg.PoolAddress, retry, cfg.ConfirmTimeout, logger), nil
	case KindOrderBook:
		if cfg.MarketAddress == "" {
			return nil, ledger.Errorf(ledger.KindInvalidParameter, "venue.New", "market address is required")
		}
		return NewOrderBookVenue(client, owner, cfg.MarketAddress, cfg.OrderLevels, cfg.BatchOrders, retry, cfg.ConfirmTimeout, logger), nil
	default:
		return nil, ledger.E(ledger.KindInvalidParameter, "venue.New", fmt.Errorf("unknown venue kind %q", cfg.Kind))
	}
}
