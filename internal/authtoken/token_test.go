package authtoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestIssueAndVerify(t *testing.T) {
	tok, err := Issue(secret, "nurse-1", "Ada", time.Now(), time.Hour)
	require.NoError(t, err)

	claims, err := Verify(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "nurse-1", claims.UserID)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "nurse-1", claims.Subject)
}

func TestVerify_WrongSecret(t *testing.T) {
	tok, err := Issue(secret, "nurse-1", "", time.Now(), time.Hour)
	require.NoError(t, err)

	_, err = Verify("other", tok)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpired)
}

func TestVerify_Expired(t *testing.T) {
	tok, err := Issue(secret, "nurse-1", "", time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	_, err = Verify(secret, tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestIssue_RequiresUserAndSecret(t *testing.T) {
	_, err := Issue(secret, "", "", time.Now(), time.Hour)
	assert.Error(t, err)
	_, err = Issue("", "u", "", time.Now(), time.Hour)
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	tok, err := Issue(secret, "nurse-1", "", now, time.Hour)
	require.NoError(t, err)

	claims, err := Inspect(tok, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "nurse-1", claims.UserID)

	_, err = Inspect(tok, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrExpired)

	_, err = Inspect("not-a-token", now)
	assert.Error(t, err)
}
