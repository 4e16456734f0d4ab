package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger interaction failure. The pipeline uses the kind,
// never the message, to decide whether a step may be retried or resumed.
type Kind string

const (
	// KindInvalidParameter means caller input failed local validation; no
	// ledger call was made.
	KindInvalidParameter Kind = "invalid_parameter"
	// KindKeyLoad means the signing identity could not be loaded.
	KindKeyLoad Kind = "key_load"
	// KindUnreachable is a transport or timeout failure. Retry-eligible only
	// when we know the transaction never reached the ledger.
	KindUnreachable Kind = "ledger_unreachable"
	// KindRejected is a ledger-side refusal of a submitted transaction.
	KindRejected Kind = "ledger_rejected"
	// KindAmbiguous means confirmation could not be established after a
	// timeout on a non-idempotent call. Requires manual reconciliation.
	KindAmbiguous Kind = "ambiguous_outcome"
	// KindSlippageExceeded is a venue-side rejection for price movement
	// beyond the configured bound.
	KindSlippageExceeded Kind = "slippage_exceeded"
	// KindVenueNotFound means the configured market or pool does not exist.
	// Configuration error, never retried.
	KindVenueNotFound Kind = "venue_not_found"
)

// Error is the tagged failure returned by every ledger-facing component.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and the operation that produced it.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a tagged error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an error chain. Unknown errors map to
// KindRejected so nothing unclassified ever looks retry-safe.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindRejected
}

// Retryable reports whether the error may be retried with backoff. Only
// transport failures qualify; everything else either already landed or will
// fail the same way again.
func Retryable(err error) bool {
	return KindOf(err) == KindUnreachable
}
