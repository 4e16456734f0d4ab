package venue

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SwineCoder101/spl-playground/internal/keys"
	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

// levelSpreadPct is the price step between consecutive ask levels of a seed.
const levelSpreadPct = 0.25

// OrderBookVenue seeds liquidity on an order-book market by resting asks
// around the current book. Where the venue supports batching, all orders go
// out as one transaction; otherwise they are placed sequentially and a
// partial failure is reported per order.
type OrderBookVenue struct {
	client         ledger.Client
	owner          *keys.KeyPair
	market         ledger.Address
	levels         int
	batch          bool
	retry          ledger.RetryConfig
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// NewOrderBookVenue creates an order-book seeder for the given market.
func NewOrderBookVenue(client ledger.Client, owner *keys.KeyPair, market ledger.Address, levels int, batch bool, retry ledger.RetryConfig, confirmTimeout time.Duration, logger *zap.Logger) *OrderBookVenue {
	if levels <= 0 {
		levels = 4
	}
	return &OrderBookVenue{
		client:         client,
		owner:          owner,
		market:         market,
		levels:         levels,
		batch:          batch,
		retry:          retry,
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}
}

// Seed loads the current book, builds the ask ladder implementing the
// liquidity intent, and submits it.
func (v *OrderBookVenue) Seed(ctx context.Context, req SeedRequest) (*SeedResult, error) {
	const op = "venue.OrderBookSeed"

	if req.Amount == 0 {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "seed amount must be positive")
	}
	if req.SlippagePct < 0 {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "slippage bound must not be negative")
	}

	holding := ledger.HoldingAddress(v.owner.Address(), req.Asset.Mint)

	var (
		state   *ledger.MarketState
		account *ledger.AccountInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		state, err = v.client.GetMarketState(gctx, v.market)
		return err
	})
	g.Go(func() error {
		var err error
		account, err = v.client.GetAccount(gctx, holding)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if state == nil {
		return nil, ledger.Errorf(ledger.KindVenueNotFound, op, "no market at %s", v.market)
	}
	if account == nil || account.Amount < req.Amount {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op,
			"holding account %s does not cover seed amount %d", holding, req.Amount)
	}

	ref, err := referencePrice(state, req.SlippagePct, op)
	if err != nil {
		return nil, err
	}

	orders := v.buildOrders(ref, req.Amount)

	if v.batch {
		return v.seedBatched(ctx, req, orders)
	}
	return v.seedSequential(ctx, req, orders)
}

// referencePrice derives the price the ladder is anchored on and enforces the
// slippage bound against the book's last traded price. A bound of zero means
// any observed price movement fails the seed.
func referencePrice(state *ledger.MarketState, slippagePct float64, op string) (float64, error) {
	var ref float64
	switch {
	case len(state.Bids) > 0 && len(state.Asks) > 0:
		ref = (state.Bids[0].Price + state.Asks[0].Price) / 2
	case len(state.Asks) > 0:
		ref = state.Asks[0].Price
	case len(state.Bids) > 0:
		ref = state.Bids[0].Price
	default:
		ref = state.LastPrice
	}
	if ref <= 0 {
		return 0, ledger.Errorf(ledger.KindRejected, op, "market %s has no reference price", state.Address)
	}

	if state.LastPrice > 0 {
		deviationPct := math.Abs(ref-state.LastPrice) / state.LastPrice * 100
		if deviationPct > slippagePct {
			return 0, ledger.Errorf(ledger.KindSlippageExceeded, op,
				"price moved %.4f%%, bound is %.4f%%", deviationPct, slippagePct)
		}
	}
	return ref, nil
}

// buildOrders spreads the seed amount across ask levels above the reference
// price, remainder on the first level.
func (v *OrderBookVenue) buildOrders(ref float64, amount uint64) []ledger.OrderSpec {
	per := amount / uint64(v.levels)
	rem := amount % uint64(v.levels)

	orders := make([]ledger.OrderSpec, 0, v.levels)
	for i := 0; i < v.levels; i++ {
		size := per
		if i == 0 {
			size += rem
		}
		if size == 0 {
			continue
		}
		price := ref * (1 + levelSpreadPct*float64(i+1)/100)
		orders = append(orders, ledger.OrderSpec{Side: "ask", Price: price, Size: size})
	}
	return orders
}

func (v *OrderBookVenue) seedBatched(ctx context.Context, req SeedRequest, orders []ledger.OrderSpec) (*SeedResult, error) {
	pending, err := v.client.Submit(ctx, ledger.PlaceOrdersIntent{
		Market: v.market,
		Owner:  v.owner.Address(),
		Orders: orders,
	})
	if err != nil {
		return nil, err
	}
	receipt, err := v.client.Confirm(ctx, pending, v.confirmTimeout)
	if err != nil {
		return nil, err
	}

	outcomes := make([]OrderOutcome, len(orders))
	for i, o := range orders {
		outcomes[i] = OrderOutcome{Order: o, Status: OrderPlaced, Signature: receipt.Signature}
	}

	v.logger.Info("order-book liquidity provided",
		zap.String("symbol", req.Symbol),
		zap.String("market", string(v.market)),
		zap.Int("orders", len(orders)),
		zap.String("signature", string(receipt.Signature)))

	return &SeedResult{Signature: receipt.Signature, Orders: outcomes}, nil
}

// seedSequential places orders one transaction at a time. On the first
// failure the remaining orders are marked skipped and the partial result is
// returned alongside the error so the caller can see exactly which orders
// rest on the book.
func (v *OrderBookVenue) seedSequential(ctx context.Context, req SeedRequest, orders []ledger.OrderSpec) (*SeedResult, error) {
	outcomes := make([]OrderOutcome, len(orders))
	result := &SeedResult{Orders: outcomes}

	for i, o := range orders {
		pending, err := v.client.Submit(ctx, ledger.PlaceOrdersIntent{
			Market: v.market,
			Owner:  v.owner.Address(),
			Orders: []ledger.OrderSpec{o},
		})
		var receipt *ledger.Receipt
		if err == nil {
			receipt, err = v.client.Confirm(ctx, pending, v.confirmTimeout)
		}
		if err != nil {
			outcomes[i] = OrderOutcome{Order: o, Status: OrderFailed, Error: err.Error()}
			for j := i + 1; j < len(orders); j++ {
				outcomes[j] = OrderOutcome{Order: orders[j], Status: OrderSkipped}
			}
			v.logger.Warn("order-book seed partially placed",
				zap.String("market", string(v.market)),
				zap.Int("placed", i),
				zap.Int("total", len(orders)),
				zap.Error(err))
			return result, fmt.Errorf("order %d of %d: %w", i+1, len(orders), err)
		}
		outcomes[i] = OrderOutcome{Order: o, Status: OrderPlaced, Signature: receipt.Signature}
		result.Signature = receipt.Signature
	}

	v.logger.Info("order-book liquidity provided",
		zap.String("symbol", req.Symbol),
		zap.String("market", string(v.market)),
		zap.Int("orders", len(orders)))

	return result, nil
}
