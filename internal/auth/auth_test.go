package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundtracker/internal/core"
)

func TestPlainPassword(t *testing.T) {
	a, err := NewAuthenticator("", "psoadmin", "")
	require.NoError(t, err)
	assert.False(t, a.RequiresUsername())

	require.NoError(t, a.Check("anyone", "psoadmin"))
	err = a.Check("", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, core.KindUnauthorized, core.KindOf(err))
}

func TestHashedPasswordWithUsername(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	a, err := NewAuthenticator("treasurer", "ignored-plain", hash)
	require.NoError(t, err)
	assert.True(t, a.RequiresUsername())

	require.NoError(t, a.Check(" treasurer ", "s3cret"))
	require.ErrorIs(t, a.Check("treasurer", "ignored-plain"), ErrInvalidCredentials)
	require.ErrorIs(t, a.Check("intruder", "s3cret"), ErrInvalidCredentials)
}

func TestAuthenticatorConfigErrors(t *testing.T) {
	_, err := NewAuthenticator("", "", "")
	require.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewAuthenticator("", "", "not-a-hash")
	require.ErrorIs(t, err, core.ErrConfiguration)

	_, err = HashPassword("")
	require.Error(t, err)
}

func TestSessionsLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s := NewSessions(time.Hour).withClock(func() time.Time { return now })

	_, ok := s.Lookup("")
	assert.False(t, ok, "initial state is logged out")

	sess := s.Login("admin")
	assert.Equal(t, now, sess.CreatedAt)

	got, ok := s.Lookup(sess.ID)
	require.True(t, ok)
	assert.Equal(t, sess, got)

	other := s.Login("admin")
	assert.NotEqual(t, sess.ID, other.ID)

	s.Logout(sess.ID)
	_, ok = s.Lookup(sess.ID)
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok = s.Lookup(other.ID)
	assert.False(t, ok, "sessions expire")

	_, ok = s.Lookup("not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Cleaner().CleanExpired())
}
