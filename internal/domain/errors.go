package domain

import "errors"

// Sentinel errors forming the engine's failure taxonomy. External-call
// failures are converted to these at the component boundary; raw transport
// errors never reach order state handling.
var (
	// ErrPriceUnavailable means every oracle source failed and the cached
	// price is too stale to use. The evaluation tick skips price-dependent
	// work and retries next tick.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrSwapFailed means both routes failed. The order stays pending and is
	// retried on a later tick.
	ErrSwapFailed = errors.New("swap failed")

	// ErrInsufficientBalance rejects order admission, or marks an execution
	// attempt whose wallet balance drifted below the committed amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidTransition rejects an operation not allowed from the order's
	// current status, e.g. cancelling an executed order.
	ErrInvalidTransition = errors.New("invalid order state transition")

	// ErrUnwrapFailed reports a failed post-swap unwrap. It never rolls back
	// the swap; the wallet keeps the wrapped asset for a later retry.
	ErrUnwrapFailed = errors.New("unwrap failed")

	// ErrOrderNotFound is returned for lookups of unknown order ids.
	ErrOrderNotFound = errors.New("order not found")
)
