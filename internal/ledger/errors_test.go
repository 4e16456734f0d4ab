package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsChains(t *testing.T) {
	err := Errorf(KindUnreachable, "ledger.Submit", "connection refused")
	assert.Equal(t, KindUnreachable, KindOf(err))

	wrapped := fmt.Errorf("seeding venue: %w", err)
	assert.Equal(t, KindUnreachable, KindOf(wrapped))
}

func TestKindOfDefaultsToRejected(t *testing.T) {
	// Unclassified errors must never look retry-safe.
	assert.Equal(t, KindRejected, KindOf(errors.New("something broke")))
	assert.False(t, Retryable(errors.New("something broke")))
}

func TestRetryableOnlyForUnreachable(t *testing.T) {
	kinds := []Kind{
		KindInvalidParameter, KindKeyLoad, KindRejected,
		KindAmbiguous, KindSlippageExceeded, KindVenueNotFound,
	}
	for _, k := range kinds {
		assert.False(t, Retryable(Errorf(k, "op", "boom")), string(k))
	}
	assert.True(t, Retryable(Errorf(KindUnreachable, "op", "boom")))
}

func TestErrorMessageCarriesOpAndKind(t *testing.T) {
	err := E(KindRejected, "token.Issue", errors.New("insufficient funds"))
	assert.Equal(t, "token.Issue: ledger_rejected: insufficient funds", err.Error())

	bare := &Error{Kind: KindKeyLoad, Op: "keys.Load"}
	assert.Equal(t, "keys.Load: key_load", bare.Error())
}

func TestHoldingAddressIsDeterministic(t *testing.T) {
	a := HoldingAddress("owner-1", "mint-1")
	b := HoldingAddress("owner-1", "mint-1")
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)

	assert.NotEqual(t, a, HoldingAddress("owner-2", "mint-1"))
	assert.NotEqual(t, a, HoldingAddress("owner-1", "mint-2"))
}
