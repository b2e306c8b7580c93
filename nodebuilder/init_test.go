package nodebuilder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(*DefaultConfig(), dir))
	assert.True(t, IsInit(dir))
	assert.DirExists(t, dataPath(dir))
	assert.FileExists(t, configPath(dir))
}

func TestInitKeepsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DASer.SampleSize = 42
	require.NoError(t, Init(*cfg, dir))

	// a second init with defaults must not clobber the user's config
	require.NoError(t, Init(*DefaultConfig(), dir))
	got, err := LoadConfig(configPath(dir))
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.DASer.SampleSize)
}

func TestInitErrForInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ledger.Cluster = "custom"
	require.Error(t, Init(*cfg, t.TempDir()))
}

func TestInitErrForInvalidPath(t *testing.T) {
	// a regular file cannot be a parent directory
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	require.Error(t, Init(*DefaultConfig(), filepath.Join(file, "store")))
}

func TestIsInitWithBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(dataPath(dir), perms))
	f, err := os.Create(configPath(dir))
	require.NoError(t, err)
	defer f.Close()
	//nolint:errcheck
	f.Write([]byte(`
		[Ledger]
		  Cluster = [mainnet]
    `))
	assert.False(t, IsInit(dir))
}

func TestIsInitForNonExistDir(t *testing.T) {
	assert.False(t, IsInit(filepath.Join(t.TempDir(), "missing")))
}

func TestInitErrForLockedDir(t *testing.T) {
	dir := t.TempDir()
	flk := flock.New(lockPath(dir))
	_, err := flk.TryLock()
	require.NoError(t, err)
	defer flk.Unlock() //nolint:errcheck

	require.ErrorIs(t, Init(*DefaultConfig(), dir), ErrOpened)
}
