package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionError_ErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	se := newSessionError(ErrorCodeDisconnected, "peer disconnected", cause)

	assert.Contains(t, se.Error(), string(ErrorCodeDisconnected))
	assert.Contains(t, se.Error(), "peer disconnected")
	assert.Contains(t, se.Error(), "connection reset")
}

func TestSessionError_ErrorStringWithoutCause(t *testing.T) {
	se := newSessionError(ErrorCodeCancelled, "user cancelled", nil)
	assert.Equal(t, "CANCELLED: user cancelled", se.Error())
}

func TestSessionError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	se := newSessionError(ErrorCodeTransportFailure, "failed", cause)
	assert.Same(t, cause, errors.Unwrap(se))
	assert.True(t, errors.Is(se, cause))
}
