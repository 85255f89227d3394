package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	token, err := IssueToken("secret", Principal{UserID: "user-1", Email: "a@example.com", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	p, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "a@example.com", p.Email)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.True(t, p.IsAdmin())
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := IssueToken("secret", Principal{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("other").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	token, err := IssueToken("secret", Principal{UserID: "user-1"}, -time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := NewVerifier("secret").Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyUnknownRoleDefaultsToCustomer(t *testing.T) {
	token, err := IssueToken("secret", Principal{UserID: "user-1", Role: Role("superuser")}, time.Hour)
	require.NoError(t, err)

	p, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, p.Role)
	assert.False(t, p.IsAdmin())
}
