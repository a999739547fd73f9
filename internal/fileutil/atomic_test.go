package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "crashgame.hcl")

	require.NoError(t, WriteFileAtomic(path, []byte("server {}\n"), 0o644, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "server {}\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files remain")
}

func TestWriteFileAtomicRefusesToClobber(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "crashgame.yaml")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	err := WriteFileAtomic(path, []byte("replacement"), 0o600, false)
	require.ErrorIs(t, err, ErrExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	require.NoError(t, WriteFileAtomic(path, []byte("replacement"), 0o600, true))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "replacement", string(data))
}
