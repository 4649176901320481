package broker

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every provider implementation and the facade.
//
// TransportError and AuthError originate in the transport adapter.
// InvalidOrderError and OrderSubmissionError originate in the order manager.
// Data-completeness problems are not errors here: they travel as
// ledger.IncompleteDataWarning values alongside partial results.

// TransportError wraps a network-level failure (timeout, connection reset,
// 5xx). The transport retries these with backoff before surfacing one.
type TransportError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("broker: transport failure on %s after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError indicates the remote rejected our credentials or session. The
// transport refreshes the session and replays once; a second rejection
// surfaces this error. It is never retried with backoff.
type AuthError struct {
	Endpoint string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("broker: authentication failed on %s: %v", e.Endpoint, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// InvalidOrderError reports a locally rejected order. No network call has
// been made when one of these is returned.
type InvalidOrderError struct {
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("broker: invalid order: %s", e.Reason)
}

// OrderSubmissionError reports that submission retries were exhausted.
// ClientToken is preserved so the caller can query the order's fate later
// instead of risking a duplicate submission with a fresh token.
type OrderSubmissionError struct {
	ClientToken string
	Err         error
}

func (e *OrderSubmissionError) Error() string {
	return fmt.Sprintf("broker: order submission exhausted retries (token %s): %v", e.ClientToken, e.Err)
}

func (e *OrderSubmissionError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is, or wraps, an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransient reports whether err is worth retrying at a higher level.
// Auth failures and validation failures are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
