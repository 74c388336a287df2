package filestorage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStorage_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFileStorage(dir)
	require.NoError(t, err)
	fs.(*LocalFileStorage).now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }

	path, err := fs.Save(strings.NewReader("so_no,qty\n1,2\n"), "Open Orders.CSV", "open_orders")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "open_orders/2024/03/05/2024-03-05-"))
	assert.True(t, strings.HasSuffix(path, ".csv"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
	require.NoError(t, err)
	assert.Equal(t, "so_no,qty\n1,2\n", string(data))

	require.NoError(t, fs.Delete(path))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(path)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, fs.Delete(path))
}

func TestLocalFileStorage_DeleteStaysInsideBase(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(filepath.Dir(base), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	defer os.Remove(outside)

	fs, err := NewLocalFileStorage(base)
	require.NoError(t, err)
	require.NoError(t, fs.Delete("../keep.txt"))

	_, err = os.Stat(outside)
	assert.NoError(t, err)
}
