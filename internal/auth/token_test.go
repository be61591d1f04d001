package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "console-test-secret"

func TestSignVerifyRoundtrip(t *testing.T) {
	issuer := NewIssuer(testSecret)
	verifier := NewVerifier(testSecret)

	tokenString, err := issuer.Sign("admin-7", []string{"admin", "dashboard"}, time.Minute)
	require.NoError(t, err)

	session, err := verifier.Verify(tokenString)
	require.NoError(t, err)

	assert.Equal(t, "admin-7", session.Subject)
	assert.True(t, session.CanJoin("admin"))
	assert.True(t, session.CanJoin("dashboard"))
	assert.False(t, session.CanJoin("inquiry"))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewIssuer(testSecret)
	verifier := NewVerifier("other-secret")

	tokenString, err := issuer.Sign("admin-7", []string{"admin"}, time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(tokenString)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer(testSecret)
	verifier := NewVerifier(testSecret)

	// Past the 30s verification leeway.
	tokenString, err := issuer.Sign("admin-7", []string{"admin"}, -time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(tokenString)
	assert.Error(t, err)
}

func TestVerifyRejectsEmptyRooms(t *testing.T) {
	issuer := NewIssuer(testSecret)
	verifier := NewVerifier(testSecret)

	tokenString, err := issuer.Sign("admin-7", nil, time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(tokenString)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorized rooms")
}

func TestVerifyRejectsGarbage(t *testing.T) {
	verifier := NewVerifier(testSecret)

	_, err := verifier.Verify("not-a-token")
	assert.Error(t, err)
}

func TestSessionWithoutSubjectCannotJoin(t *testing.T) {
	session := &Session{AuthorizedRooms: []string{"admin"}}

	assert.False(t, session.CanJoin("admin"))
}
