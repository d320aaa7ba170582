package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymous(t *testing.T) {
	s := Anonymous()
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Bearer())
}

func TestAuthenticated(t *testing.T) {
	s := Session{Token: "tok-123", UserID: 7, UserName: "Asad"}
	assert.True(t, s.Authenticated())
	assert.Equal(t, "Bearer tok-123", s.Bearer())
}

func TestWhitespaceTokenIsAnonymous(t *testing.T) {
	s := Session{Token: "   "}
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Bearer())
}
