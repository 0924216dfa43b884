package ticket

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPlate         = errors.New("plate number is empty")
	ErrInvalidVehicleType = errors.New("invalid vehicle type")

	ErrNetworkFailure = errors.New("network failure")

	ErrSubmitInProgress = errors.New("check-in already in progress")
	ErrAlreadyIssued    = errors.New("ticket already issued for this session")
	ErrNoTicketIssued   = errors.New("no ticket issued for this session")

	ErrNoArtifactProvided = errors.New("no artifact provided")
	ErrArtifactTooLarge   = errors.New("artifact too large")
	ErrNotFound           = errors.New("ticket not found")
	ErrLookupFailed       = errors.New("ticket lookup failed")

	ErrNoTicketResolved  = errors.New("no ticket resolved")
	ErrPaymentInProgress = errors.New("payment already in progress")

	// Returned when a response arrives after the session was reset or
	// superseded. The response is dropped.
	ErrStaleResponse = errors.New("stale response discarded")
)

type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StoreRejectedError is any non-2xx answer from the ticket store, or a 2xx
// answer without the expected data.
type StoreRejectedError struct {
	Status int
	Reason string
}

func (e *StoreRejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("store rejected request with status %d", e.Status)
	}
	return fmt.Sprintf("store rejected request with status %d: %s", e.Status, e.Reason)
}
