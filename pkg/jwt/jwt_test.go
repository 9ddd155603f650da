package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests"

func TestGenerateAndParse_ConRole(t *testing.T) {
	tok, err := Generate(testSecret, "u1", "maria", "editor", "portfolio-status-test", 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "maria", claims.Username)
	assert.Equal(t, "editor", claims.Role)
	assert.Equal(t, "portfolio-status-test", claims.Issuer)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := Generate(testSecret, "u1", "maria", "admin", "x", -1)
	require.NoError(t, err)

	_, err = Parse(testSecret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := Generate(testSecret, "u1", "maria", "admin", "x", 60)
	require.NoError(t, err)

	_, err = Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", "u1", "maria", "admin", "x", 60)
	assert.Error(t, err)
	_, err = Parse("", "abc")
	assert.Error(t, err)
}
