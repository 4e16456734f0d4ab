package token

import (
	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

// Asset represents a created asset class. Decimals are fixed at creation and
// immutable for the asset's lifetime.
type Asset struct {
	Mint      ledger.Address `json:"mint"`
	Decimals  uint8          `json:"decimals"`
	Authority ledger.Address `json:"authority"`
}

// HoldingAccount is the canonical balance location for one (owner, mint)
// pair. At most one exists per pair.
type HoldingAccount struct {
	Address ledger.Address `json:"address"`
	Owner   ledger.Address `json:"owner"`
	Mint    ledger.Address `json:"mint"`
}

// Allocation records a confirmed mint-to event. It is identified by its
// ledger transaction signature; the ledger itself is the system of record.
type Allocation struct {
	Signature   ledger.Signature `json:"signature"`
	Destination ledger.Address   `json:"destination"`
	Amount      uint64           `json:"amount"`
	Slot        uint64           `json:"slot"`
}
