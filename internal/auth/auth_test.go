package auth

import (
	"testing"
	"time"

	"github.com/crucial707/asset-custody/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	secret := []byte("test-secret")
	u := &models.User{ID: 7, Name: "Ana", Email: "ana@example.com", Role: models.RoleReport}

	token, exp, err := Issue(secret, u, time.Hour, time.Now())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := Parse(secret, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, models.RoleReport, claims.Role)
}

func TestParse_Rejects(t *testing.T) {
	secret := []byte("test-secret")
	u := &models.User{ID: 7, Role: models.RoleViewer}

	expired, _, err := Issue(secret, u, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = Parse(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, _, err := Issue([]byte("other"), u, time.Hour, time.Now())
	require.NoError(t, err)
	_, err = Parse(secret, other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = Parse(secret, none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse(secret, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
