package coordinator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenzoki/voxelgrid/internal/parser"
	"github.com/tenzoki/voxelgrid/internal/parser/vasp"
	"github.com/tenzoki/voxelgrid/internal/tasks"
)

const tinyGrid = "comment line\n\n2 2 2\n1.0 2.0 3.0 4.0 5.0 6.0 7.0 8.0\n"

func newTestCoordinator(t *testing.T) (*Coordinator, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.vasp"), []byte(tinyGrid), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.xyz"), []byte("not registered"), 0o644))

	registry := parser.NewRegistry()
	registry.Register("vasp", vasp.New())

	store, err := tasks.NewStore(100, time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return New(dir, registry, store, 2, nil), dir
}

func TestPreprocessSingleChunk(t *testing.T) {
	c, _ := newTestCoordinator(t)

	desc, apiErr := c.Preprocess("tiny.vasp", 1000000)
	require.Nil(t, apiErr)
	assert.Equal(t, [3]int{2, 2, 2}, desc.Shape)
	assert.Equal(t, 8, desc.DataLength)
	require.Len(t, desc.Chunks, 1)
	assert.Equal(t, 0, desc.Chunks[0].Start)
	assert.Equal(t, 8, desc.Chunks[0].End)
	assert.NotEmpty(t, desc.Checksum)
	assert.NotEmpty(t, desc.TaskID)
}

func TestPreprocessMissingFile(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, apiErr := c.Preprocess("missing.vasp", 8)
	require.NotNil(t, apiErr)
	assert.Equal(t, 404, apiErr.Status())
}

func TestPreprocessUnsupportedExtension(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, apiErr := c.Preprocess("tiny.xyz", 8)
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status())
}

func TestPreprocessPathEscape(t *testing.T) {
	c, _ := newTestCoordinator(t)

	cases := []string{"../etc/passwd", "a/../b.vasp", "/etc/passwd", "sub/tiny.vasp"}
	for _, file := range cases {
		_, apiErr := c.Preprocess(file, 8)
		require.NotNil(t, apiErr, file)
		assert.Equal(t, 400, apiErr.Status(), file)
	}
}

func TestPreprocessInvalidChunkSize(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, apiErr := c.Preprocess("tiny.vasp", 0)
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status())
}

func TestPreprocessMissingFileParam(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, apiErr := c.Preprocess("", 8)
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status())
}

func TestPreprocessBackgroundParseCompletes(t *testing.T) {
	c, _ := newTestCoordinator(t)

	desc, apiErr := c.Preprocess("tiny.vasp", 8)
	require.Nil(t, apiErr)

	require.Eventually(t, func() bool {
		result := c.store.TakeChunk(desc.TaskID, 0)
		return result.Outcome == tasks.OutcomeReady
	}, time.Second, time.Millisecond)
}
