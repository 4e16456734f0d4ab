package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
	"github.com/SwineCoder101/spl-playground/internal/token"
	"github.com/SwineCoder101/spl-playground/internal/venue"
)

// Step identifies one stage of the issuance pipeline.
type Step string

const (
	StepIssueAsset       Step = "issue_asset"
	StepProvisionAccount Step = "provision_account"
	StepAllocateSupply   Step = "allocate_supply"
	StepSeedLiquidity    Step = "seed_liquidity"
)

// RunStatus is the pipeline state machine position. Each non-terminal status
// names the last confirmed step, so a halted run can resume without redoing
// work the ledger has already seen.
type RunStatus string

const (
	StatusInit            RunStatus = "init"
	StatusAssetCreated    RunStatus = "asset_created"
	StatusAccountReady    RunStatus = "account_ready"
	StatusSupplyAllocated RunStatus = "supply_allocated"
	StatusLiquiditySeeded RunStatus = "liquidity_seeded"
	StatusFailed          RunStatus = "failed"
	// StatusAmbiguous parks a run whose allocation outcome could not be
	// established. The reconciler settles it against the ledger.
	StatusAmbiguous RunStatus = "ambiguous"
)

// Request carries everything a launch needs. No ambient globals: wallet path,
// venue addresses and cluster endpoint all arrive via configuration.
type Request struct {
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	ImageURI    string          `json:"image_uri"`
	Supply      decimal.Decimal `json:"supply"`
	Decimals    uint8           `json:"decimals"`
	VenueKind   venue.Kind      `json:"venue_kind"`
	SeedAmount  decimal.Decimal `json:"seed_amount"`
	SlippagePct float64         `json:"slippage_pct"`
}

// LaunchRun is the persisted record of one pipeline run. The ledger stays the
// system of record for balances; this row exists so an operator can inspect a
// halted run's completed steps and resume it instead of restarting from Init
// (which would create a second, distinct asset).
type LaunchRun struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`

	Name     string `json:"name" gorm:"not null"`
	Symbol   string `json:"symbol" gorm:"not null;index"`
	ImageURI string `json:"image_uri"`

	SupplyBaseUnits uint64  `json:"supply_base_units" gorm:"not null"`
	SeedBaseUnits   uint64  `json:"seed_base_units" gorm:"not null"`
	Decimals        uint8   `json:"decimals" gorm:"not null"`
	VenueKind       string  `json:"venue_kind" gorm:"not null"`
	SlippagePct     float64 `json:"slippage_pct"`

	Status RunStatus `json:"status" gorm:"default:'init';index"`

	// Step identifiers, set as each step confirms. PendingMintAddress is the
	// ledger-assigned mint of an issuance whose confirmation was lost; it is
	// promoted to MintAddress only once the reconciler proves it exists.
	MintAddress         *string        `json:"mint_address" gorm:"index"`
	PendingMintAddress  *string        `json:"pending_mint_address,omitempty"`
	HoldingAccount      *string        `json:"holding_account"`
	AllocationSignature *string        `json:"allocation_signature"`
	VenueSignature      *string        `json:"venue_signature"`
	OrderOutcomes       datatypes.JSON `json:"order_outcomes,omitempty"`

	// Failure report for a halted run.
	FailedStep   *string `json:"failed_step"`
	ErrorKind    *string `json:"error_kind"`
	ErrorMessage *string `json:"error_message"`

	// StepStartedAt is persisted before each non-idempotent submission; it
	// bounds the reconciler's search window and its rewind grace period.
	StepStartedAt *time.Time `json:"step_started_at"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (r *LaunchRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Asset reconstructs the issued asset from the run's recorded identifiers.
func (r *LaunchRun) Asset() *token.Asset {
	if r.MintAddress == nil {
		return nil
	}
	return &token.Asset{
		Mint:      ledger.Address(*r.MintAddress),
		Decimals:  r.Decimals,
		Authority: "", // authority is the run owner's key; not persisted
	}
}

// StepState describes one step's outcome inside a Result.
type StepState string

const (
	StepSucceeded StepState = "succeeded"
	StepFailed    StepState = "failed"
	StepSkipped   StepState = "skipped"
)

// StepOutcome reports one pipeline step with its ledger identifier or cause.
type StepOutcome struct {
	Step       Step        `json:"step"`
	State      StepState   `json:"state"`
	Identifier string      `json:"identifier,omitempty"`
	Kind       ledger.Kind `json:"kind,omitempty"`
	Cause      string      `json:"cause,omitempty"`
}

// Result is the aggregate outcome of a pipeline run: per-step status plus the
// identifiers an operator needs to resume, reverse or discard the run.
type Result struct {
	RunID  uuid.UUID     `json:"run_id"`
	Status RunStatus     `json:"status"`
	Steps  []StepOutcome `json:"steps"`
}

// Succeeded reports whether the run reached the terminal success state.
func (r *Result) Succeeded() bool { return r.Status == StatusLiquiditySeeded }

// HasSideEffects reports whether any step left a confirmed ledger mutation
// behind. Drives the CLI exit code: 1 for a clean halt, 2 when the operator
// must inspect or resume.
func (r *Result) HasSideEffects() bool {
	for _, s := range r.Steps {
		if s.State == StepSucceeded {
			return true
		}
	}
	return false
}
