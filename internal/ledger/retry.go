package ledger

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryConfig bounds the exponential backoff applied to retry-safe calls.
type RetryConfig struct {
	InitialInterval time.Duration `json:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval"`
	MaxElapsed      time.Duration `json:"max_elapsed"`
}

// DefaultRetryConfig returns the backoff bounds used when none are configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsed:      2 * time.Minute,
	}
}

// Retry runs fn with bounded exponential backoff. Only failures classified
// retry-safe (see Retryable) are retried; anything else aborts immediately.
// Callers must only pass operations that are safe to re-submit, i.e. ones
// where a failure proves the transaction never reached the ledger.
func Retry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = cfg.MaxElapsed

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		logger.Warn("retrying ledger call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return err
	}, backoff.WithContext(bo, ctx))
}
