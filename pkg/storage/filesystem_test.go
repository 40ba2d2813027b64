package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageKeepsKeysInsideBaseDir(t *testing.T) {
	files, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = files.Save("../../escape.txt", []byte("x"))
	require.NoError(t, err)

	f, err := files.Open("escape.txt")
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "x", string(body))

	require.NoError(t, files.Delete("escape.txt"))
	require.NoError(t, files.Delete("escape.txt"))
}

func TestSignedLocalStorePutReturnsVerifiableURL(t *testing.T) {
	files, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := NewSignedURLSigner("secret", time.Hour)
	store := NewSignedLocalStore(files, signer, "/api/v1/files/")

	link, err := store.Put(context.Background(), "proofs/a.png", "image/png", []byte("png"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "/api/v1/files/proofs/a.png?token="))

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	_, path, _, err := signer.Parse(parsed.Query().Get("token"), false)
	require.NoError(t, err)
	assert.Equal(t, "proofs/a.png", path)
}

func TestPublicObjectURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/bucket/proofs/a.png", PublicObjectURL("bucket", "/proofs/a.png"))
}
