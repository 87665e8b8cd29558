package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnavshah/care-coverage-api/pkg/config"
	"github.com/arnavshah/care-coverage-api/pkg/database"
)

func init() {
	passwordCost = bcrypt.MinCost
}

func TestHMACKeyRoundTrip(t *testing.T) {
	a := New("jwt", "master")

	key := a.GenerateHMACKey("skolplattform.v2")
	name, err := a.VerifyHMACKey(key)
	require.NoError(t, err)
	assert.Equal(t, "skolplattform.v2", name)

	_, err = New("jwt", "other").VerifyHMACKey(key)
	assert.Error(t, err)

	for _, bad := range []string{"", "nodot", ".sig", "name."} {
		_, err := a.VerifyHMACKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	a := New("jwt", "master")

	token, err := a.CreateToken("rektor")
	require.NoError(t, err)

	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "rektor", claims.Username)

	_, err = New("other", "master").VerifyToken(token)
	assert.Error(t, err)
}

func TestEnsureAdminExists(t *testing.T) {
	db, err := database.Open(&config.Config{DataPath: "file::memory:"})
	require.NoError(t, err)

	created, err := EnsureAdminExists(db, "", "hemligt")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureAdminExists(db, "annan", "x")
	require.NoError(t, err)
	assert.False(t, created)

	var c database.Coordinator
	require.NoError(t, db.First(&c).Error)
	assert.Equal(t, "admin", c.Username)
	assert.True(t, CheckPasswordHash("hemligt", c.PasswordHash))
}

func TestKeyPreview(t *testing.T) {
	assert.Equal(t, "****", KeyPreview("short"))
	assert.Equal(t, "abc...wxyz", KeyPreview("abcdefghijklmnopqrstuvwxyz"))
}
