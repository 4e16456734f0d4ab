package reconcile

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
	"github.com/SwineCoder101/spl-playground/internal/pipeline"
)

// Reconciler settles runs parked in the ambiguous state: a non-idempotent
// submission (mint creation or supply allocation) went out but its
// acknowledgement was lost, so only the ledger can say what happened. Each
// pass re-queries the ledger and either moves the run forward (the
// transaction landed) or rewinds it to a resumable state (provably absent
// after the grace window).
type Reconciler struct {
	store  pipeline.Store
	client ledger.Client
	cron   *cron.Cron
	logger *zap.Logger

	schedule string
	// grace is how long an unfound allocation stays parked before the run is
	// rewound. Covers ledger indexing lag after the acknowledgement was lost.
	grace     time.Duration
	batchSize int
}

// New creates a reconciler polling on the given cron schedule.
func New(store pipeline.Store, client ledger.Client, schedule string, grace time.Duration, logger *zap.Logger) *Reconciler {
	if grace <= 0 {
		grace = 15 * time.Minute
	}
	return &Reconciler{
		store:     store,
		client:    client,
		cron:      cron.New(),
		logger:    logger,
		schedule:  schedule,
		grace:     grace,
		batchSize: 50,
	}
}

// Start schedules the reconciliation passes.
func (r *Reconciler) Start() error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := r.ReconcileOnce(ctx); err != nil {
			r.logger.Error("reconciliation pass failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("reconciler started", zap.String("schedule", r.schedule))
	return nil
}

// Stop halts scheduling and waits for a running pass to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// ReconcileOnce settles every currently ambiguous run.
func (r *Reconciler) ReconcileOnce(ctx context.Context) error {
	status := pipeline.StatusAmbiguous
	runs, err := r.store.List(ctx, &status, r.batchSize)
	if err != nil {
		return err
	}

	for i := range runs {
		if err := r.settle(ctx, &runs[i]); err != nil {
			r.logger.Warn("could not settle run",
				zap.String("run_id", runs[i].ID.String()),
				zap.Error(err))
		}
	}
	return nil
}

func (r *Reconciler) settle(ctx context.Context, run *pipeline.LaunchRun) error {
	switch {
	case run.PendingMintAddress != nil && run.MintAddress == nil:
		return r.settleIssuance(ctx, run)
	case run.HoldingAccount != nil && run.StepStartedAt != nil:
		return r.settleAllocation(ctx, run)
	default:
		// Parked without enough context to search; operator territory.
		return nil
	}
}

// settleIssuance resolves a lost mint-creation confirmation. The pending
// address was ledger-assigned at submission, so its account either exists
// (the creation landed) or provably never will.
func (r *Reconciler) settleIssuance(ctx context.Context, run *pipeline.LaunchRun) error {
	info, err := r.client.GetAccount(ctx, ledger.Address(*run.PendingMintAddress))
	if err != nil {
		return err
	}

	if info != nil {
		run.MintAddress = run.PendingMintAddress
		run.PendingMintAddress = nil
		run.Status = pipeline.StatusAssetCreated
		clearFailure(run)
		r.logger.Info("ambiguous issuance settled forward",
			zap.String("run_id", run.ID.String()),
			zap.String("mint", *run.MintAddress))
		return r.store.Save(ctx, run)
	}

	if run.StepStartedAt == nil || time.Since(*run.StepStartedAt) < r.grace {
		return nil
	}

	// The mint is provably absent, so reissuing cannot duplicate an asset.
	run.PendingMintAddress = nil
	run.Status = pipeline.StatusInit
	clearFailure(run)
	r.logger.Info("ambiguous issuance rewound for retry",
		zap.String("run_id", run.ID.String()))
	return r.store.Save(ctx, run)
}

func (r *Reconciler) settleAllocation(ctx context.Context, run *pipeline.LaunchRun) error {
	receipt, err := r.client.FindTransaction(ctx, ledger.TxQuery{
		Destination: ledger.Address(*run.HoldingAccount),
		Amount:      run.SupplyBaseUnits,
		After:       *run.StepStartedAt,
	})
	if err != nil {
		return err
	}

	if receipt != nil {
		sig := string(receipt.Signature)
		run.AllocationSignature = &sig
		run.Status = pipeline.StatusSupplyAllocated
		clearFailure(run)
		r.logger.Info("ambiguous allocation settled forward",
			zap.String("run_id", run.ID.String()),
			zap.String("signature", sig))
		return r.store.Save(ctx, run)
	}

	if time.Since(*run.StepStartedAt) < r.grace {
		// Too early to declare the allocation absent.
		return nil
	}

	run.Status = pipeline.StatusAccountReady
	clearFailure(run)
	r.logger.Info("ambiguous allocation rewound for retry",
		zap.String("run_id", run.ID.String()))
	return r.store.Save(ctx, run)
}

func clearFailure(run *pipeline.LaunchRun) {
	run.FailedStep = nil
	run.ErrorKind = nil
	run.ErrorMessage = nil
}
