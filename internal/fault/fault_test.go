package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf_WrappedChain(t *testing.T) {
	inner := Wrap(CodeTimeout, "Request timed out. Please retry.", errors.New("context deadline exceeded"))
	outer := fmt.Errorf("refresh queue: %w", inner)

	assert.Equal(t, CodeTimeout, CodeOf(outer))
	assert.True(t, IsTransport(outer))
}

func TestCodeOf_PlainError(t *testing.T) {
	err := errors.New("disk full")
	assert.Equal(t, Code(""), CodeOf(err))
	assert.False(t, IsTransport(err))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "", MessageOf(nil))
	assert.Equal(t, "disk full", MessageOf(errors.New("disk full")))

	f := New(CodeSessionExpired, "Session expired. Sign in again.")
	assert.Equal(t, "Session expired. Sign in again.", MessageOf(fmt.Errorf("logout: %w", f)))
}

func TestIsRecoverable(t *testing.T) {
	saved := New(CodeSavedOffline, "Incident saved offline and will sync automatically.")
	assert.True(t, IsRecoverable(saved))
	assert.False(t, IsRecoverable(New(CodeServerRejected, "nope")))
}

func TestIsSessionExpired(t *testing.T) {
	assert.True(t, IsSessionExpired(New(CodeSessionExpired, "Session expired. Sign in again.")))
	assert.False(t, IsSessionExpired(New(CodeRateLimited, "Too many requests. Please wait and retry.")))
}

func TestError_Format(t *testing.T) {
	f := New(CodeValidationFailed, "Enter the 6-digit OTP")
	assert.Equal(t, "VALIDATION_FAILED: Enter the 6-digit OTP", f.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	f := Wrap(CodeTransportUnreachable, "Server connection failed.", cause)
	assert.True(t, errors.Is(f, cause))
}
