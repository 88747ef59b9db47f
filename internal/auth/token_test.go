package auth

import (
	"testing"
	"time"

	"github.com/campusgrid/forum-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := NewTokenVerifier("test-secret")

	token, err := v.Mint(domain.Identity{UserID: "user-1", Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, domain.RoleAdmin, id.Role)
}

func TestTokenVerifier_RejectsBadTokens(t *testing.T) {
	v := NewTokenVerifier("test-secret")

	_, err := v.Verify("not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// Signed with a different secret.
	other := NewTokenVerifier("other-secret")
	token, err := other.Mint(domain.Identity{UserID: "user-1", Role: domain.RoleStudent}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// Expired.
	expired, err := v.Mint(domain.Identity{UserID: "user-1", Role: domain.RoleStudent}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestTokenVerifier_UnknownRoleDefaultsToStudent(t *testing.T) {
	v := NewTokenVerifier("test-secret")

	token, err := v.Mint(domain.Identity{UserID: "user-1", Role: "superuser"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, id.Role)
}

func TestCanModify(t *testing.T) {
	owner := domain.Identity{UserID: "user-1", Role: domain.RoleStudent}
	stranger := domain.Identity{UserID: "user-2", Role: domain.RoleStudent}
	admin := domain.Identity{UserID: "user-3", Role: domain.RoleAdmin}

	assert.True(t, CanModify(owner, "user-1"))
	assert.False(t, CanModify(stranger, "user-1"))
	assert.True(t, CanModify(admin, "user-1"))
}
