package venue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/keys"
	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

// PoolVenue provides liquidity to an automated-market-maker pool. The
// slippage bound is passed through to the pool program, which enforces it;
// this adapter's job is to surface a slippage rejection distinctly from a
// generic one.
type PoolVenue struct {
	client         ledger.Client
	owner          *keys.KeyPair
	pool           ledger.Address
	retry          ledger.RetryConfig
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// NewPoolVenue creates an AMM pool seeder for the given pool address.
func NewPoolVenue(client ledger.Client, owner *keys.KeyPair, pool ledger.Address, retry ledger.RetryConfig, confirmTimeout time.Duration, logger *zap.Logger) *PoolVenue {
	return &PoolVenue{
		client:         client,
		owner:          owner,
		pool:           pool,
		retry:          retry,
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}
}

// Seed submits a liquidity-provision transaction against the pool.
func (v *PoolVenue) Seed(ctx context.Context, req SeedRequest) (*SeedResult, error) {
	const op = "venue.PoolSeed"

	if req.Amount == 0 {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "seed amount must be positive")
	}
	if req.SlippagePct < 0 {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "slippage bound must not be negative")
	}

	var state *ledger.MarketState
	err := ledger.Retry(ctx, v.retry, v.logger, op, func() error {
		var stateErr error
		state, stateErr = v.client.GetMarketState(ctx, v.pool)
		return stateErr
	})
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ledger.Errorf(ledger.KindVenueNotFound, op, "no pool at %s", v.pool)
	}

	pending, err := v.client.Submit(ctx, ledger.AddLiquidityIntent{
		Pool:        v.pool,
		Mint:        req.Asset.Mint,
		Owner:       v.owner.Address(),
		Amount:      req.Amount,
		SlippagePct: req.SlippagePct,
	})
	if err != nil {
		return nil, err
	}

	receipt, err := v.client.Confirm(ctx, pending, v.confirmTimeout)
	if err != nil {
		return nil, err
	}

	v.logger.Info("pool liquidity provided",
		zap.String("symbol", req.Symbol),
		zap.String("pool", string(v.pool)),
		zap.Uint64("amount", req.Amount),
		zap.String("signature", string(receipt.Signature)))

	return &SeedResult{Signature: receipt.Signature}, nil
}
