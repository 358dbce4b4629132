package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T, opts ...Option) *Issuer {
	t.Helper()
	i, err := NewIssuer([]byte("test-secret"), opts...)
	require.NoError(t, err)
	return i
}

func TestSignVerify_RoundTrip(t *testing.T) {
	// --- Arrange ---
	i := newIssuer(t)

	// --- Act ---
	tok, err := i.Sign("u1", 1000*time.Second, map[string]any{"role": "admin", "sub": "spoofed"})
	require.NoError(t, err)
	id, ok := i.Verify(tok)

	// --- Assert ---
	require.True(t, ok)
	assert.Equal(t, "u1", id.Subject)
	assert.Equal(t, "admin", id.Claims["role"])
	assert.WithinDuration(t, time.Now().Add(1000*time.Second), id.ExpiresAt, 5*time.Second)
	assert.False(t, id.IssuedAt.IsZero())
}

func TestVerify_RejectsWithoutPanicking(t *testing.T) {
	i := newIssuer(t)
	other, err := NewIssuer([]byte("other-secret"))
	require.NoError(t, err)
	foreign, err := other.Sign("u1", time.Minute, nil)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for _, raw := range []string{"", "not-a-token", "a.b.c", "....", foreign, unsigned} {
		assert.NotPanics(t, func() {
			id, ok := i.Verify(raw)
			assert.False(t, ok, raw)
			assert.Nil(t, id)
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	old := newIssuer(t, WithClock(func() time.Time { return past }))
	tok, err := old.Sign("u1", time.Minute, nil)
	require.NoError(t, err)

	_, ok := newIssuer(t).Verify(tok)
	assert.False(t, ok)
}

func TestVerify_Issuer(t *testing.T) {
	tok, err := newIssuer(t, WithIssuer("a")).Sign("u1", time.Minute, nil)
	require.NoError(t, err)

	_, ok := newIssuer(t, WithIssuer("b")).Verify(tok)
	assert.False(t, ok)
	id, ok := newIssuer(t, WithIssuer("a")).Verify(tok)
	require.True(t, ok)
	assert.Equal(t, "a", id.Claims["iss"])
}

func TestNewIssuer_EmptySecret(t *testing.T) {
	_, err := NewIssuer(nil)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestSign_NonPositiveLifetime(t *testing.T) {
	_, err := newIssuer(t).Sign("u1", 0, nil)
	assert.Error(t, err)
}
