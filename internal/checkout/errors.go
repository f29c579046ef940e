package checkout

import (
	"errors"
	"fmt"
)

// ErrEmptyCart rejects a commit before any network traffic happens.
var ErrEmptyCart = errors.New("cart is empty")

// ErrNetworkFailure marks a submission that never produced a backend verdict.
// The cart is left intact so the operator can retry.
var ErrNetworkFailure = errors.New("could not reach the sales backend")

// ErrCommitInFlight guards the single-flight rule: one submission per cart at
// a time.
var ErrCommitInFlight = errors.New("a commit is already in progress for this cart")

// ErrSnapshotNotFound is returned when a settled transaction snapshot has
// already been discarded.
var ErrSnapshotNotFound = errors.New("transaction snapshot not found")

// InsufficientStockError identifies the first cart line whose quantity exceeds
// the known stock level.
type InsufficientStockError struct {
	ItemID    int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, have %d", e.Name, e.Requested, e.Available)
}

// ServerRejectedError carries the backend's refusal message verbatim.
type ServerRejectedError struct {
	Message string
}

func (e *ServerRejectedError) Error() string {
	if e.Message == "" {
		return "sale rejected by backend"
	}
	return "sale rejected: " + e.Message
}
