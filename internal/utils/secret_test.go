package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")

	secret, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Len(t, secret, 32)

	// A second load returns the same secret
	again, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Equal(t, secret, again)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadOrCreateSecretReplacesShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")
	require.NoError(t, os.WriteFile(path, []byte("too short"), 0600))

	secret, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Len(t, secret, 32)
	assert.NotEqual(t, []byte("too short"), secret)
}
