package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndVerifyToken(t *testing.T) {
	token, err := CreateToken("u1", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := CreateToken("u1", "secret", time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken(token, "other-secret")
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, err := CreateToken("u1", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(token, "secret")
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := VerifyToken("not-a-token", "secret")
	assert.Error(t, err)
}

func TestCreateRequiresSecretAndUser(t *testing.T) {
	_, err := CreateToken("", "secret", time.Hour)
	assert.Error(t, err)

	_, err = CreateToken("u1", "", time.Hour)
	assert.Error(t, err)
}
