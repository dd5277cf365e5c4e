package api

import (
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenzoki/voxelgrid/internal/coordinator"
	"github.com/tenzoki/voxelgrid/internal/parser"
	"github.com/tenzoki/voxelgrid/internal/parser/vasp"
	"github.com/tenzoki/voxelgrid/internal/resources"
	"github.com/tenzoki/voxelgrid/internal/tasks"
)

const tinyGrid = "comment line\n\n2 2 2\n1.0 2.0 3.0 4.0 5.0 6.0 7.0 8.0\n"

func newTestServer(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.vasp"), []byte(tinyGrid), 0o644))

	registry := parser.NewRegistry()
	registry.Register("vasp", vasp.New())

	store, err := tasks.NewStore(100, time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	coord := coordinator.New(dir, registry, store, 2, nil)

	lister, err := resources.New(dir, registry.SupportedExtensions(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { lister.Close() })

	server := NewServer(nil, registry, coord, store, lister, dir)
	return NewRouter(nil, server, false), dir
}

func newGzipTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.vasp"), []byte(tinyGrid), 0o644))

	registry := parser.NewRegistry()
	registry.Register("vasp", vasp.New())

	store, err := tasks.NewStore(100, time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	coord := coordinator.New(dir, registry, store, 2, nil)
	lister, err := resources.New(dir, registry.SupportedExtensions(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { lister.Close() })

	server := NewServer(nil, registry, coord, store, lister, dir)
	return NewRouter(nil, server, true)
}

func TestRootEndpoint(t *testing.T) {
	router, dir := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, dir, body["resource_dir"])
	assert.Contains(t, body["supported_extensions"], "vasp")
}

func TestPreprocessAndChunkRoundTrip(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/voxel-grid?file=tiny.vasp&chunk_size=1000000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var desc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &desc))
	taskID := desc["task_id"].(string)
	require.NotEmpty(t, taskID)

	var chunkRec *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/voxel-grid/chunk?task_id="+taskID+"&chunk_index=0", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			chunkRec = rec
			return true
		}
		return false
	}, time.Second, time.Millisecond)

	require.NotNil(t, chunkRec)
	assert.Equal(t, "64", chunkRec.Header().Get("X-Chunk-Length"))

	body := chunkRec.Body.Bytes()
	require.Len(t, body, 64)
	for i := 0; i < 8; i++ {
		got := math.Float64frombits(binary.LittleEndian.Uint64(body[i*8:]))
		assert.Equal(t, float64(i+1), got)
	}

	// Second fetch of the same chunk is already taken.
	req = httptest.NewRequest(http.MethodGet, "/voxel-grid/chunk?task_id="+taskID+"&chunk_index=0", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreprocessMissingFileReturns404(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/voxel-grid?file=missing.vasp&chunk_size=8", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChunkUnknownTask(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/voxel-grid/chunk?task_id=does-not-exist&chunk_index=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilesEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/voxel-grid/files", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Files []resources.File `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Files, 1)
	assert.Equal(t, "tiny.vasp", body.Files[0].Name)
}

func TestChunkGzipRoundTrip(t *testing.T) {
	router := newGzipTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/voxel-grid?file=tiny.vasp&chunk_size=1000000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var desc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &desc))
	taskID := desc["task_id"].(string)

	var chunkRec *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/voxel-grid/chunk?task_id="+taskID+"&chunk_index=0", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			chunkRec = rec
			return true
		}
		return false
	}, time.Second, time.Millisecond)

	require.NotNil(t, chunkRec)
	require.Equal(t, "gzip", chunkRec.Header().Get("Content-Encoding"))

	reader, err := gzip.NewReader(chunkRec.Body)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(reader)
	require.NoError(t, err)

	require.Len(t, decompressed, 64)
	for i := 0; i < 8; i++ {
		got := math.Float64frombits(binary.LittleEndian.Uint64(decompressed[i*8:]))
		assert.Equal(t, float64(i+1), got)
	}
}
