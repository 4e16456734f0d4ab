package token

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

// ToBaseUnits converts a display amount into base units for an asset with the
// given decimal precision. The ledger only deals in base units; every
// component downstream of this conversion treats amounts as opaque integers.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	const op = "token.ToBaseUnits"

	if amount.Sign() <= 0 {
		return 0, ledger.Errorf(ledger.KindInvalidParameter, op, "amount must be positive, got %s", amount)
	}

	scaled := amount.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, ledger.Errorf(ledger.KindInvalidParameter, op,
			"amount %s has more than %d decimal places", amount, decimals)
	}
	if scaled.Cmp(decimal.NewFromUint64(math.MaxUint64)) > 0 {
		return 0, ledger.Errorf(ledger.KindInvalidParameter, op, "amount %s overflows base units", amount)
	}

	return scaled.BigInt().Uint64(), nil
}

// FromBaseUnits converts base units back into a display amount.
func FromBaseUnits(baseUnits uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(baseUnits).Shift(-int32(decimals))
}
