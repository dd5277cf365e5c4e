package resources

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiltersBySupportedExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.vasp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.xyz"), []byte("xx"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	l, err := New(dir, []string{"vasp"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	files, err := l.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.vasp", files[0].Name)
	assert.Equal(t, "vasp", files[0].Extension)
	assert.EqualValues(t, 1, files[0].Size)
}

func TestListPicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, []string{"vasp"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	files, err := l.List()
	require.NoError(t, err)
	require.Len(t, files, 0)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.vasp"), []byte("data"), 0o644))

	require.Eventually(t, func() bool {
		files, err := l.List()
		return err == nil && len(files) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
