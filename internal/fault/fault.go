// Package fault defines the error taxonomy shared by every ridersync
// component. Remote failures are normalized into a Fault exactly once, at
// the gateway boundary; callers branch on the code and never reinterpret
// raw transport errors.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes a failure.
type Code string

const (
	// CodeNotAuthenticated indicates no active session exists for the
	// attempted operation. No network call was made.
	CodeNotAuthenticated Code = "NOT_AUTHENTICATED"

	// CodeInvalidOfflineCredential indicates the offline PIN check failed:
	// no stored credential, rider mismatch, or wrong PIN.
	CodeInvalidOfflineCredential Code = "INVALID_OFFLINE_CREDENTIAL"

	// CodeTransportUnreachable indicates a DNS or connect failure before
	// any HTTP response was received.
	CodeTransportUnreachable Code = "TRANSPORT_UNREACHABLE"

	// CodeTimeout indicates the request exceeded the transport deadline.
	CodeTimeout Code = "TIMEOUT"

	// CodeServerRejected indicates a 4xx/5xx response or a domain-level
	// envelope error, with the parsed server message when present.
	CodeServerRejected Code = "SERVER_REJECTED"

	// CodeSessionExpired indicates HTTP 401. The session must be
	// force-cleared so the caller routes back to login.
	CodeSessionExpired Code = "SESSION_EXPIRED"

	// CodeRateLimited indicates HTTP 429.
	CodeRateLimited Code = "RATE_LIMITED"

	// CodeValidationFailed indicates a client-side precondition failure,
	// e.g. a malformed OTP or an out-of-order lifecycle transition.
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// CodeSavedOffline is the recoverable outcome of an incident
	// submission that could not reach the server but was queued locally.
	// The message is success-flavored: the report is safe and will sync.
	CodeSavedOffline Code = "SAVED_OFFLINE"
)

// Fault is a classified failure with an operator-readable message.
type Fault struct {
	Code    Code
	Message string
	Err     error // underlying cause, optional
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (f *Fault) Unwrap() error {
	return f.Err
}

// New creates a Fault with the given code and message.
func New(code Code, message string) *Fault {
	return &Fault{Code: code, Message: message}
}

// Wrap creates a Fault wrapping an underlying cause.
func Wrap(code Code, message string, err error) *Fault {
	return &Fault{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain.
// Returns the empty string when the chain holds no Fault.
func CodeOf(err error) Code {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

// MessageOf returns the Fault message from an error chain, falling back
// to err.Error() for plain errors. Suitable for direct display.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Message
	}
	return err.Error()
}

// IsRecoverable reports whether the error represents a locally-absorbed
// failure that the user should see as a soft notice rather than an error.
func IsRecoverable(err error) bool {
	return CodeOf(err) == CodeSavedOffline
}

// IsSessionExpired reports whether the error chain carries a 401
// classification. Uses errors.As to handle wrapped errors.
func IsSessionExpired(err error) bool {
	return CodeOf(err) == CodeSessionExpired
}

// IsTransport reports whether the failure happened before the server
// produced an answer (unreachable or timed out). Replays triggered later
// are expected to succeed without operator action.
func IsTransport(err error) bool {
	c := CodeOf(err)
	return c == CodeTransportUnreachable || c == CodeTimeout
}
