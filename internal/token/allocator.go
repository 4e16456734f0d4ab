package token

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

// Allocator mints initial supply into holding accounts. Minting is not
// idempotent, so the allocator never blindly re-submits: before any retry it
// checks the ledger for a confirmed transaction with the same logical intent.
type Allocator struct {
	client         ledger.Client
	retry          ledger.RetryConfig
	confirmTimeout time.Duration
	// intentWindow bounds how far back FindTransaction looks for a prior
	// allocation with the same destination and amount.
	intentWindow time.Duration
	logger       *zap.Logger
}

// NewAllocator creates a supply allocator.
func NewAllocator(client ledger.Client, retry ledger.RetryConfig, confirmTimeout, intentWindow time.Duration, logger *zap.Logger) *Allocator {
	if intentWindow <= 0 {
		intentWindow = 10 * time.Minute
	}
	return &Allocator{
		client:         client,
		retry:          retry,
		confirmTimeout: confirmTimeout,
		intentWindow:   intentWindow,
		logger:         logger,
	}
}

// Allocate mints amount base units into the destination account, authorized
// by the mint authority. Amount is in base units; callers convert display
// amounts with ToBaseUnits. On a lost acknowledgement the allocator reports
// AmbiguousOutcome rather than risking a double mint.
func (a *Allocator) Allocate(ctx context.Context, dest *HoldingAccount, amount uint64, authority ledger.Address) (*Allocation, error) {
	const op = "token.Allocate"

	if dest == nil || dest.Address == "" {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "destination account is required")
	}
	if amount == 0 {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "amount must be positive")
	}

	intent := ledger.MintToIntent{
		Mint:        dest.Mint,
		Destination: dest.Address,
		Authority:   authority,
		Amount:      amount,
	}
	startedAt := time.Now()

	pending, err := a.submitGuarded(ctx, intent, startedAt)
	if err != nil {
		return nil, err
	}

	receipt, err := a.client.Confirm(ctx, pending, a.confirmTimeout)
	if err != nil {
		if ledger.KindOf(err) != ledger.KindUnreachable {
			return nil, err
		}
		// Submission went out but the acknowledgement was lost. Check the
		// ledger before deciding anything.
		found, findErr := a.client.FindTransaction(ctx, ledger.TxQuery{
			Destination: dest.Address,
			Amount:      amount,
			After:       startedAt,
		})
		if findErr != nil || found == nil {
			return nil, ledger.Errorf(ledger.KindAmbiguous, op,
				"confirmation lost for %s and outcome could not be established", pending.Signature)
		}
		a.logger.Info("allocation recovered from ledger after lost acknowledgement",
			zap.String("signature", string(found.Signature)))
		receipt = found
	}

	a.logger.Info("supply allocated",
		zap.String("destination", string(dest.Address)),
		zap.Uint64("amount", amount),
		zap.String("signature", string(receipt.Signature)))

	return &Allocation{
		Signature:   receipt.Signature,
		Destination: dest.Address,
		Amount:      amount,
		Slot:        receipt.Slot,
	}, nil
}

// submitGuarded submits the mint intent, retrying transport failures only
// after proving no confirmed transaction with the same intent already exists.
// If a prior confirmed allocation is found, or the check itself cannot be
// completed, the outcome is ambiguous and the caller must reconcile manually.
func (a *Allocator) submitGuarded(ctx context.Context, intent ledger.MintToIntent, startedAt time.Time) (*ledger.Pending, error) {
	const op = "token.Allocate"

	var pending *ledger.Pending
	err := ledger.Retry(ctx, a.retry, a.logger, op, func() error {
		var submitErr error
		pending, submitErr = a.client.Submit(ctx, intent)
		if submitErr == nil || !ledger.Retryable(submitErr) {
			return submitErr
		}

		found, findErr := a.client.FindTransaction(ctx, ledger.TxQuery{
			Destination: intent.Destination,
			Amount:      intent.Amount,
			After:       startedAt.Add(-a.intentWindow),
		})
		if findErr != nil {
			return ledger.Errorf(ledger.KindAmbiguous, op,
				"submit failed and prior outcome could not be established: %v", submitErr)
		}
		if found != nil {
			return ledger.Errorf(ledger.KindAmbiguous, op,
				"a confirmed allocation %s already matches this intent; refusing to re-mint", found.Signature)
		}
		return submitErr
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}
