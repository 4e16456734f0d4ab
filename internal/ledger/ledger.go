package ledger

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/mr-tron/base58"
)

// Address is a base58-encoded account identifier on the ledger.
type Address string

// Signature is a base58-encoded transaction signature, usable as a
// confirmation identifier once the transaction is finalized.
type Signature string

// Intent is a transaction the caller wants executed. The client is
// responsible for wire encoding; components only compose intents.
type Intent interface {
	IntentType() string
}

// CreateMintIntent creates a new asset class with fixed decimal precision.
type CreateMintIntent struct {
	Payer     Address `json:"payer"`
	Authority Address `json:"authority"`
	Decimals  uint8   `json:"decimals"`
}

func (CreateMintIntent) IntentType() string { return "create_mint" }

// CreateAccountIntent creates the canonical holding account for (owner, mint).
type CreateAccountIntent struct {
	Payer   Address `json:"payer"`
	Owner   Address `json:"owner"`
	Mint    Address `json:"mint"`
	Account Address `json:"account"`
}

func (CreateAccountIntent) IntentType() string { return "create_account" }

// MintToIntent mints base units into a holding account.
type MintToIntent struct {
	Mint        Address `json:"mint"`
	Destination Address `json:"destination"`
	Authority   Address `json:"authority"`
	Amount      uint64  `json:"amount"`
}

func (MintToIntent) IntentType() string { return "mint_to" }

// AddLiquidityIntent seeds an AMM pool with the given amount of the asset.
type AddLiquidityIntent struct {
	Pool        Address `json:"pool"`
	Mint        Address `json:"mint"`
	Owner       Address `json:"owner"`
	Amount      uint64  `json:"amount"`
	SlippagePct float64 `json:"slippage_pct"`
}

func (AddLiquidityIntent) IntentType() string { return "add_liquidity" }

// OrderSpec is a single order within a PlaceOrdersIntent.
type OrderSpec struct {
	Side  string  `json:"side"` // "bid" or "ask"
	Price float64 `json:"price"`
	Size  uint64  `json:"size"`
}

// PlaceOrdersIntent places one or more orders on an order-book market as a
// single batched transaction.
type PlaceOrdersIntent struct {
	Market Address     `json:"market"`
	Owner  Address     `json:"owner"`
	Orders []OrderSpec `json:"orders"`
}

func (PlaceOrdersIntent) IntentType() string { return "place_orders" }

// Pending is the handle returned by Submit before finality is known. For
// intents that create a new account, NewAddress carries the ledger-assigned
// address; it only becomes meaningful once the transaction is confirmed.
type Pending struct {
	Signature   Signature
	NewAddress  Address
	SubmittedAt time.Time
}

// Receipt is proof that a transaction reached a final, queryable state.
type Receipt struct {
	Signature   Signature
	Slot        uint64
	ConfirmedAt time.Time
}

// AccountInfo describes an existing ledger account. Lookups return nil (with
// a nil error) when the account does not exist.
type AccountInfo struct {
	Address Address
	Owner   Address
	Mint    Address
	Amount  uint64
}

// PriceLevel is one resting level of an order book.
type PriceLevel struct {
	Price float64
	Size  uint64
}

// MarketState is a snapshot of a venue. Order-book markets populate Bids and
// Asks; AMM pools populate LastPrice and the reserve amounts.
type MarketState struct {
	Address      Address
	Bids         []PriceLevel
	Asks         []PriceLevel
	LastPrice    float64
	BaseReserve  uint64
	QuoteReserve uint64
}

// TxQuery describes the logical intent of a previously submitted transaction,
// used to establish whether it landed when the acknowledgement was lost.
type TxQuery struct {
	Destination Address
	Amount      uint64
	After       time.Time
}

// Client is the capability for submitting and confirming transactions against
// the ledger. Implementations must be safe for concurrent use: independent
// pipelines share one client.
type Client interface {
	// Submit encodes and sends an intent, returning a pending handle. A
	// returned handle does not mean the transaction executed.
	Submit(ctx context.Context, intent Intent) (*Pending, error)

	// Confirm polls until the pending transaction reaches finality or the
	// timeout elapses. A timeout surfaces as KindUnreachable; the caller
	// decides whether that is retryable for its intent type.
	Confirm(ctx context.Context, p *Pending, timeout time.Duration) (*Receipt, error)

	// GetAccount returns account state, or nil when the account is absent.
	GetAccount(ctx context.Context, addr Address) (*AccountInfo, error)

	// GetMarketState returns venue state, or nil when no market or pool
	// exists at the address.
	GetMarketState(ctx context.Context, market Address) (*MarketState, error)

	// FindTransaction looks for a confirmed transaction matching the query,
	// or nil when none is found.
	FindTransaction(ctx context.Context, q TxQuery) (*Receipt, error)
}

// HoldingAddress derives the deterministic canonical holding account address
// for an (owner, mint) pair. Both sides of a provisioning race derive the
// same address, which is what makes get-or-create safe.
func HoldingAddress(owner, mint Address) Address {
	h := sha256.New()
	h.Write([]byte(owner))
	h.Write([]byte(mint))
	return Address(base58.Encode(h.Sum(nil)))
}
