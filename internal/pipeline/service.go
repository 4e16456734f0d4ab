package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
	"github.com/SwineCoder101/spl-playground/internal/token"
	"github.com/SwineCoder101/spl-playground/internal/venue"
)

// maxSymbolLen is the conventional upper bound for a ticker symbol.
const maxSymbolLen = 10

// AssetIssuer creates a new asset class.
type AssetIssuer interface {
	Issue(ctx context.Context, decimals uint8, authority ledger.Address) (*token.Asset, error)
}

// AccountProvisioner ensures the canonical holding account exists.
type AccountProvisioner interface {
	EnsureAccount(ctx context.Context, owner ledger.Address, asset *token.Asset) (*token.HoldingAccount, error)
}

// SupplyAllocator mints base units into a holding account.
type SupplyAllocator interface {
	Allocate(ctx context.Context, dest *token.HoldingAccount, amount uint64, authority ledger.Address) (*token.Allocation, error)
}

// Service runs issuance pipelines. Steps execute strictly sequentially: each
// ledger transaction must confirm before the next submits, because later
// steps consume identifiers produced by earlier ones. Independent runs for
// unrelated assets may execute concurrently; the only shared state is the
// ledger client, which is safe for concurrent use.
type Service struct {
	store       Store
	issuer      AssetIssuer
	provisioner AccountProvisioner
	allocator   SupplyAllocator
	seeders     map[venue.Kind]venue.Seeder
	owner       ledger.Address
	sm          *stateMachine
	metrics     *Metrics
	logger      *zap.Logger
}

// NewService wires the pipeline orchestrator. owner is the wallet address
// acting as payer, mint authority and liquidity provider.
func NewService(store Store, issuer AssetIssuer, provisioner AccountProvisioner, allocator SupplyAllocator, seeders map[venue.Kind]venue.Seeder, owner ledger.Address, metrics *Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		issuer:      issuer,
		provisioner: provisioner,
		allocator:   allocator,
		seeders:     seeders,
		owner:       owner,
		sm:          newStateMachine(),
		metrics:     metrics,
		logger:      logger,
	}
}

// Launch validates the request, records a new run and executes it to a
// terminal state. The returned Result reports every step with its ledger
// identifier even when the run halts partway.
func (s *Service) Launch(ctx context.Context, req Request) (*Result, error) {
	run, err := s.newRun(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("recording launch run: %w", err)
	}

	s.logger.Info("launch started",
		zap.String("run_id", run.ID.String()),
		zap.String("symbol", run.Symbol),
		zap.String("venue", run.VenueKind))

	return s.execute(ctx, run)
}

// Resume continues a halted run from its last confirmed step. Runs parked as
// ambiguous must be settled by the reconciler first; resuming them blindly
// could double-mint.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*Result, error) {
	run, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch run.Status {
	case StatusLiquiditySeeded:
		return s.buildResult(run), nil
	case StatusAmbiguous:
		return nil, ledger.Errorf(ledger.KindAmbiguous, "pipeline.Resume",
			"run %s has an unsettled ledger outcome; wait for reconciliation", id)
	case StatusFailed:
		run.Status = resumePosition(run)
		run.FailedStep = nil
		run.ErrorKind = nil
		run.ErrorMessage = nil
		if err := s.store.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("rewinding run %s: %w", id, err)
		}
	}

	s.logger.Info("launch resumed",
		zap.String("run_id", run.ID.String()),
		zap.String("from", string(run.Status)))

	return s.execute(ctx, run)
}

// Get returns the result view of a stored run.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*LaunchRun, *Result, error) {
	run, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, s.buildResult(run), nil
}

// List returns stored runs, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *RunStatus, limit int) ([]LaunchRun, error) {
	return s.store.List(ctx, status, limit)
}

func (s *Service) newRun(req Request) (*LaunchRun, error) {
	const op = "pipeline.Launch"

	if req.Name == "" || req.Symbol == "" {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "name and symbol are required")
	}
	if len(req.Symbol) > maxSymbolLen {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op,
			"symbol %q exceeds %d characters", req.Symbol, maxSymbolLen)
	}
	if req.ImageURI != "" {
		if _, err := url.ParseRequestURI(req.ImageURI); err != nil {
			return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "image URI %q is malformed", req.ImageURI)
		}
	}
	if _, ok := s.seeders[req.VenueKind]; !ok {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "no venue configured for kind %q", req.VenueKind)
	}
	if req.Decimals > token.MaxDecimals {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op,
			"decimals %d exceeds ledger maximum %d", req.Decimals, token.MaxDecimals)
	}
	if req.SlippagePct < 0 {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op, "slippage bound must not be negative")
	}

	supply, err := token.ToBaseUnits(req.Supply, req.Decimals)
	if err != nil {
		return nil, err
	}
	seed := supply
	if !req.SeedAmount.IsZero() {
		seed, err = token.ToBaseUnits(req.SeedAmount, req.Decimals)
		if err != nil {
			return nil, err
		}
	}
	if seed > supply {
		return nil, ledger.Errorf(ledger.KindInvalidParameter, op,
			"seed amount %s exceeds supply %s", req.SeedAmount, req.Supply)
	}

	return &LaunchRun{
		Name:            req.Name,
		Symbol:          req.Symbol,
		ImageURI:        req.ImageURI,
		SupplyBaseUnits: supply,
		SeedBaseUnits:   seed,
		Decimals:        req.Decimals,
		VenueKind:       string(req.VenueKind),
		SlippagePct:     req.SlippagePct,
		Status:          StatusInit,
	}, nil
}

// execute drives the run through the state machine until a terminal state.
// A step runs only when the previous step's result is confirmed; on failure
// the run halts immediately with completed steps and identifiers recorded.
func (s *Service) execute(ctx context.Context, run *LaunchRun) (*Result, error) {
	for {
		switch run.Status {
		case StatusInit:
			if err := s.issueAsset(ctx, run); err != nil {
				return s.buildResult(run), err
			}
		case StatusAssetCreated:
			if err := s.provisionAccount(ctx, run); err != nil {
				return s.buildResult(run), err
			}
		case StatusAccountReady:
			if err := s.allocateSupply(ctx, run); err != nil {
				return s.buildResult(run), err
			}
		case StatusSupplyAllocated:
			if err := s.seedLiquidity(ctx, run); err != nil {
				return s.buildResult(run), err
			}
		case StatusLiquiditySeeded:
			s.metrics.observeRun(StatusLiquiditySeeded)
			s.logger.Info("launch completed",
				zap.String("run_id", run.ID.String()),
				zap.String("mint", deref(run.MintAddress)))
			return s.buildResult(run), nil
		default:
			return s.buildResult(run), fmt.Errorf("run %s is in unexpected status %s", run.ID, run.Status)
		}
	}
}

func (s *Service) issueAsset(ctx context.Context, run *LaunchRun) error {
	started := time.Now()
	run.StepStartedAt = &started
	if err := s.store.Save(ctx, run); err != nil {
		return s.halt(ctx, run, StepIssueAsset, err, started)
	}

	asset, err := s.issuer.Issue(ctx, run.Decimals, s.owner)
	if err != nil {
		if ledger.KindOf(err) == ledger.KindAmbiguous && asset != nil {
			// The mint may exist under the returned address. Record it so the
			// reconciler can prove the outcome; never reissue blindly.
			pendingMint := string(asset.Mint)
			run.PendingMintAddress = &pendingMint
			return s.park(ctx, run, StepIssueAsset, err, started)
		}
		return s.halt(ctx, run, StepIssueAsset, err, started)
	}
	mint := string(asset.Mint)
	run.MintAddress = &mint
	s.metrics.observeStep(StepIssueAsset, StepSucceeded, started)
	return s.advance(ctx, run, StatusAssetCreated)
}

func (s *Service) provisionAccount(ctx context.Context, run *LaunchRun) error {
	started := time.Now()
	holding, err := s.provisioner.EnsureAccount(ctx, s.owner, s.runAsset(run))
	if err != nil {
		return s.halt(ctx, run, StepProvisionAccount, err, started)
	}
	addr := string(holding.Address)
	run.HoldingAccount = &addr
	s.metrics.observeStep(StepProvisionAccount, StepSucceeded, started)
	return s.advance(ctx, run, StatusAccountReady)
}

func (s *Service) allocateSupply(ctx context.Context, run *LaunchRun) error {
	started := time.Now()
	run.StepStartedAt = &started
	// Persist the window start before submitting, so the reconciler can
	// search even if this process dies mid-allocation.
	if err := s.store.Save(ctx, run); err != nil {
		return s.halt(ctx, run, StepAllocateSupply, err, started)
	}

	dest := &token.HoldingAccount{
		Address: ledger.Address(deref(run.HoldingAccount)),
		Owner:   s.owner,
		Mint:    ledger.Address(deref(run.MintAddress)),
	}
	alloc, err := s.allocator.Allocate(ctx, dest, run.SupplyBaseUnits, s.owner)
	if err != nil {
		if ledger.KindOf(err) == ledger.KindAmbiguous {
			return s.park(ctx, run, StepAllocateSupply, err, started)
		}
		return s.halt(ctx, run, StepAllocateSupply, err, started)
	}
	sig := string(alloc.Signature)
	run.AllocationSignature = &sig
	s.metrics.observeStep(StepAllocateSupply, StepSucceeded, started)
	return s.advance(ctx, run, StatusSupplyAllocated)
}

func (s *Service) seedLiquidity(ctx context.Context, run *LaunchRun) error {
	started := time.Now()
	seeder := s.seeders[venue.Kind(run.VenueKind)]

	res, err := seeder.Seed(ctx, venue.SeedRequest{
		Asset:       s.runAsset(run),
		Symbol:      run.Symbol,
		Amount:      run.SeedBaseUnits,
		SlippagePct: run.SlippagePct,
	})
	if res != nil && len(res.Orders) > 0 {
		if raw, marshalErr := json.Marshal(res.Orders); marshalErr == nil {
			run.OrderOutcomes = datatypes.JSON(raw)
		}
	}
	if err != nil {
		return s.halt(ctx, run, StepSeedLiquidity, err, started)
	}

	sig := string(res.Signature)
	run.VenueSignature = &sig
	now := time.Now()
	run.CompletedAt = &now
	s.metrics.observeStep(StepSeedLiquidity, StepSucceeded, started)
	return s.advance(ctx, run, StatusLiquiditySeeded)
}

// advance moves the run forward one state and persists it.
func (s *Service) advance(ctx context.Context, run *LaunchRun, to RunStatus) error {
	if !s.sm.canTransition(run.Status, to) {
		return fmt.Errorf("illegal transition %s -> %s for run %s", run.Status, to, run.ID)
	}
	run.Status = to
	return s.store.Save(ctx, run)
}

// halt records the failed step and stops the run. The failing step's error is
// returned so callers see the cause; completed identifiers stay on the run.
func (s *Service) halt(ctx context.Context, run *LaunchRun, step Step, cause error, started time.Time) error {
	kind := string(ledger.KindOf(cause))
	msg := cause.Error()
	stepName := string(step)
	run.FailedStep = &stepName
	run.ErrorKind = &kind
	run.ErrorMessage = &msg
	run.Status = StatusFailed

	s.metrics.observeStep(step, StepFailed, started)
	s.metrics.observeRun(StatusFailed)
	s.logger.Error("launch halted",
		zap.String("run_id", run.ID.String()),
		zap.String("step", stepName),
		zap.String("kind", kind),
		zap.Error(cause))

	if saveErr := s.store.Save(ctx, run); saveErr != nil {
		s.logger.Error("failed to persist halted run", zap.Error(saveErr))
	}
	return cause
}

// park moves a run whose step outcome cannot be established into the
// ambiguous state for the reconciler.
func (s *Service) park(ctx context.Context, run *LaunchRun, step Step, cause error, started time.Time) error {
	kind := string(ledger.KindAmbiguous)
	msg := cause.Error()
	stepName := string(step)
	run.FailedStep = &stepName
	run.ErrorKind = &kind
	run.ErrorMessage = &msg
	run.Status = StatusAmbiguous

	s.metrics.observeStep(step, StepFailed, started)
	s.metrics.observeRun(StatusAmbiguous)
	s.logger.Warn("launch parked for reconciliation",
		zap.String("run_id", run.ID.String()),
		zap.Error(cause))

	if saveErr := s.store.Save(ctx, run); saveErr != nil {
		s.logger.Error("failed to persist parked run", zap.Error(saveErr))
	}
	return cause
}

func (s *Service) runAsset(run *LaunchRun) *token.Asset {
	return &token.Asset{
		Mint:      ledger.Address(deref(run.MintAddress)),
		Decimals:  run.Decimals,
		Authority: s.owner,
	}
}

// resumePosition derives where a failed run restarts from its recorded
// identifiers, never from Init: restarting from Init would mint a second,
// distinct asset.
func resumePosition(run *LaunchRun) RunStatus {
	switch {
	case run.AllocationSignature != nil:
		return StatusSupplyAllocated
	case run.HoldingAccount != nil:
		return StatusAccountReady
	case run.MintAddress != nil:
		return StatusAssetCreated
	default:
		return StatusInit
	}
}

// buildResult assembles the per-step report from the run's recorded state.
func (s *Service) buildResult(run *LaunchRun) *Result {
	steps := []StepOutcome{
		stepOutcome(run, StepIssueAsset, run.MintAddress),
		stepOutcome(run, StepProvisionAccount, run.HoldingAccount),
		stepOutcome(run, StepAllocateSupply, run.AllocationSignature),
		stepOutcome(run, StepSeedLiquidity, run.VenueSignature),
	}
	return &Result{RunID: run.ID, Status: run.Status, Steps: steps}
}

func stepOutcome(run *LaunchRun, step Step, identifier *string) StepOutcome {
	if identifier != nil {
		return StepOutcome{Step: step, State: StepSucceeded, Identifier: *identifier}
	}
	if run.FailedStep != nil && *run.FailedStep == string(step) {
		return StepOutcome{
			Step:  step,
			State: StepFailed,
			Kind:  ledger.Kind(deref(run.ErrorKind)),
			Cause: deref(run.ErrorMessage),
		}
	}
	return StepOutcome{Step: step, State: StepSkipped}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
