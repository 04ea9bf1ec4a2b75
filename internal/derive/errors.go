package derive

import (
	"errors"
	"fmt"
)

// NoEventsError reports a derivation requested for an entity or day with no
// events. There is no valid state for something that was never created.
type NoEventsError struct {
	Subject string
}

// Error implements the error interface.
func (e *NoEventsError) Error() string {
	return fmt.Sprintf("no events for %s: cannot derive state", e.Subject)
}

// IsNoEvents reports whether err is (or wraps) a NoEventsError.
func IsNoEvents(err error) bool {
	var ne *NoEventsError
	return errors.As(err, &ne)
}

// DerivationError reports a malformed or unrecognized event sequence. It
// names the offending event and its zero-based position in the replayed
// sequence; the engine makes no best-effort recovery.
type DerivationError struct {
	Subject  string
	EventID  string
	Position int
	Reason   string
}

// Error implements the error interface.
func (e *DerivationError) Error() string {
	return fmt.Sprintf("derive %s: event %s at position %d: %s",
		e.Subject, e.EventID, e.Position, e.Reason)
}

// IsDerivationError reports whether err is (or wraps) a DerivationError.
func IsDerivationError(err error) bool {
	var de *DerivationError
	return errors.As(err, &de)
}
