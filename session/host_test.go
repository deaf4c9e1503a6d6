package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymize(t *testing.T) {
	assert.Equal(t, "Anonymous", anonymize(""))
	assert.Equal(t, "PlayerOne", anonymize("PlayerOne"))
}

func TestNewSessionID_UniqueAndStable(t *testing.T) {
	a := newSessionID()
	b := newSessionID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b, "each session should get a fresh id")
	assert.Len(t, a, 36, "session id renders as a UUID string")
}
