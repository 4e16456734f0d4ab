package token

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/keys"
	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

// MaxDecimals is the highest decimal precision the ledger's token program
// accepts for a new mint.
const MaxDecimals = 9

// Issuer creates new asset classes on the ledger.
type Issuer struct {
	client         ledger.Client
	payer          *keys.KeyPair
	retry          ledger.RetryConfig
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// NewIssuer creates an asset issuer signing with the given key pair.
func NewIssuer(client ledger.Client, payer *keys.KeyPair, retry ledger.RetryConfig, confirmTimeout time.Duration, logger *zap.Logger) *Issuer {
	return &Issuer{
		client:         client,
		payer:          payer,
		retry:          retry,
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}
}

// Issue creates a new asset class with the given decimal precision and mint
// authority. Mint addresses are not idempotent: a rejected creation is never
// retried, because a blind retry would create a second, distinct asset. Only
// submission failures that prove the transaction never reached the ledger are
// retried with backoff.
func (i *Issuer) Issue(ctx context.Context, decimals uint8, authority ledger.Address) (*Asset, error) {
	const op = "token.Issue"

	if decimals > MaxDecimals {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op,
			"decimals %d exceeds ledger maximum %d", decimals, MaxDecimals)
	}
	if authority == "" {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "mint authority is required")
	}

	intent := ledger.CreateMintIntent{
		Payer:     i.payer.Address(),
		Authority: authority,
		Decimals:  decimals,
	}

	var pending *ledger.Pending
	err := ledger.Retry(ctx, i.retry, i.logger, op, func() error {
		var submitErr error
		pending, submitErr = i.client.Submit(ctx, intent)
		return submitErr
	})
	if err != nil {
		return nil, err
	}

	receipt, err := i.client.Confirm(ctx, pending, i.confirmTimeout)
	if err != nil {
		if ledger.KindOf(err) == ledger.KindUnreachable && pending.NewAddress != "" {
			// Once submitted the mint may or may not exist. Hand back the
			// ledger-assigned address so the caller can reconcile against it
			// instead of blindly reissuing a second, distinct asset.
			return &Asset{Mint: pending.NewAddress, Decimals: decimals, Authority: authority},
				ledger.Errorf(ledger.KindAmbiguous, op,
					"confirmation lost for mint %s (tx %s)", pending.NewAddress, pending.Signature)
		}
		return nil, err
	}

	if pending.NewAddress == "" {
		return nil, ledger.Errorf(ledger.KindRejected, op,
			"confirmed transaction %s carries no mint address", receipt.Signature)
	}

	i.logger.Info("asset created",
		zap.String("mint", string(pending.NewAddress)),
		zap.Uint8("decimals", decimals),
		zap.String("signature", string(receipt.Signature)))

	return &Asset{Mint: pending.NewAddress, Decimals: decimals, Authority: authority}, nil
}
