package tempfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIsDeterministic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	files, err := Keep(dir)
	require.NoError(t, err)
	defer files.Dispose()

	assert.Equal(t, filepath.Join(dir, "combined.o"), files.Create("combined", ".o"))
	assert.Equal(t, filepath.Join(dir, "combined.o"), files.Create("combined", ".o"))
	assert.Equal(t, filepath.Join(dir, "out.bc"), files.NativeBinaryBitcode())
}

func TestDisposeRemovesFreshDirectory(t *testing.T) {
	files, err := New("nbackend-test-")
	require.NoError(t, err)

	obj := files.Create("result", ".o")
	require.NoError(t, os.WriteFile(obj, []byte("obj"), 0o644))

	require.NoError(t, files.Dispose())
	_, err = os.Stat(files.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestKeptDirectoryIsLocked(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kept")
	first, err := Keep(dir)
	require.NoError(t, err)

	_, err = Keep(dir)
	assert.Error(t, err)

	obj := first.Create("result", ".o")
	require.NoError(t, os.WriteFile(obj, []byte("obj"), 0o644))
	require.NoError(t, first.Dispose())

	_, err = os.Stat(obj)
	assert.NoError(t, err)

	second, err := Keep(dir)
	require.NoError(t, err)
	require.NoError(t, second.Dispose())
}
