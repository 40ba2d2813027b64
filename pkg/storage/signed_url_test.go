package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("proofs/2026/10/abc.jpg", "proofs/2026/10/abc.jpg")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	subject, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "proofs/2026/10/abc.jpg", subject)
	require.Equal(t, "proofs/2026/10/abc.jpg", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := signer.Generate("sig-1", "signatures/sig-1.png")
	require.NoError(t, err)
	signer.now = time.Now

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	subject, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "sig-1", subject)
	require.Equal(t, "signatures/sig-1.png", path)
}

func TestSignedURLSignerRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("sig-1", "signatures/sig-1.png")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)

	_, _, _, err = signer.Parse("not-a-token", false)
	require.Error(t, err)
}
