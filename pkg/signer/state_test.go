package signer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSignerIssueAndVerify(t *testing.T) {
	s := NewStateSigner("secret", time.Minute)
	token, expiresAt, err := s.Issue("user-1")
	require.NoError(t, err)
	require.False(t, expiresAt.IsZero())

	subject, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestStateSignerTokensAreUnique(t *testing.T) {
	s := NewStateSigner("secret", time.Minute)
	first, _, err := s.Issue("user-1")
	require.NoError(t, err)
	second, _, err := s.Issue("user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestStateSignerRejectsTampering(t *testing.T) {
	s := NewStateSigner("secret", time.Minute)
	token, _, err := s.Issue("user-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "dXNlci0y"
	_, err = s.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = NewStateSigner("other", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateSignerExpired(t *testing.T) {
	s := NewStateSigner("secret", time.Minute)
	token, _, err := s.Issue("user-1")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredState)
}

func TestStateSignerRequiresSecret(t *testing.T) {
	_, _, err := NewStateSigner("", time.Minute).Issue("user-1")
	assert.Error(t, err)
}
