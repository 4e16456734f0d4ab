package token

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/keys"
	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

// Provisioner ensures holding accounts exist, creating them idempotently.
type Provisioner struct {
	client         ledger.Client
	payer          *keys.KeyPair
	retry          ledger.RetryConfig
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// NewProvisioner creates an account provisioner paying with the given key pair.
func NewProvisioner(client ledger.Client, payer *keys.KeyPair, retry ledger.RetryConfig, confirmTimeout time.Duration, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		client:         client,
		payer:          payer,
		retry:          retry,
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}
}

// EnsureAccount returns the canonical holding account for (owner, asset),
// creating it if absent. Concurrent callers for the same pair may race; a
// created-by-someone-else outcome resolves to success by re-query, never to
// an error. The whole operation is safe to retry because the account address
// is derived deterministically from the pair.
func (p *Provisioner) EnsureAccount(ctx context.Context, owner ledger.Address, asset *Asset) (*HoldingAccount, error) {
	const op = "token.EnsureAccount"

	if owner == "" || asset == nil || asset.Mint == "" {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "owner and asset are required")
	}

	addr := ledger.HoldingAddress(owner, asset.Mint)

	existing, err := p.lookup(ctx, addr)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &HoldingAccount{Address: addr, Owner: owner, Mint: asset.Mint}, nil
	}

	intent := ledger.CreateAccountIntent{
		Payer:   p.payer.Address(),
		Owner:   owner,
		Mint:    asset.Mint,
		Account: addr,
	}

	err = ledger.Retry(ctx, p.retry, p.logger, op, func() error {
		pending, submitErr := p.client.Submit(ctx, intent)
		if submitErr != nil {
			return submitErr
		}
		_, confirmErr := p.client.Confirm(ctx, pending, p.confirmTimeout)
		return confirmErr
	})
	if err != nil && ledger.KindOf(err) == ledger.KindRejected {
		// Another caller may have created the account between our lookup and
		// the submission. If it exists now, that is success.
		raced, lookupErr := p.lookup(ctx, addr)
		if lookupErr == nil && raced != nil {
			p.logger.Debug("holding account created concurrently",
				zap.String("account", string(addr)))
			return &HoldingAccount{Address: addr, Owner: owner, Mint: asset.Mint}, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("holding account created",
		zap.String("account", string(addr)),
		zap.String("owner", string(owner)),
		zap.String("mint", string(asset.Mint)))

	return &HoldingAccount{Address: addr, Owner: owner, Mint: asset.Mint}, nil
}

func (p *Provisioner) lookup(ctx context.Context, addr ledger.Address) (*ledger.AccountInfo, error) {
	const op = "token.EnsureAccount"

	var info *ledger.AccountInfo
	err := ledger.Retry(ctx, p.retry, p.logger, op, func() error {
		var lookupErr error
		info, lookupErr = p.client.GetAccount(ctx, addr)
		return lookupErr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
