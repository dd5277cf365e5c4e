// Package coordinator implements the Preprocess Coordinator: it validates
// an incoming (file, chunk_size) request, resolves the file inside the
// resource directory, probes its shape, allocates a task, and hands the
// full parse to a background worker bounded by a concurrency limit.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/semaphore"

	"github.com/tenzoki/voxelgrid/internal/apierr"
	"github.com/tenzoki/voxelgrid/internal/parser"
	"github.com/tenzoki/voxelgrid/internal/tasks"
	"github.com/tenzoki/voxelgrid/public/voxel"
)

// Descriptor is the JSON body returned from a successful preprocess call.
type Descriptor struct {
	TaskID     string                  `json:"task_id"`
	File       string                  `json:"file"`
	FileSize   int64                   `json:"file_size"`
	Shape      [3]int                  `json:"shape"`
	DataLength int                     `json:"data_length"`
	ChunkSize  int                     `json:"chunk_size"`
	Checksum   string                  `json:"checksum"`
	Chunks     []tasks.ChunkDescriptor `json:"chunks"`
}

// Coordinator resolves preprocess requests against a resource directory and
// a parser registry, handing completed tasks to a shared Task Store.
type Coordinator struct {
	resourceDir string
	registry    *parser.Registry
	store       *tasks.Store
	sema        *semaphore.Weighted
	logger      *slog.Logger
}

// New builds a Coordinator. maxConcurrentParses bounds how many background
// parses may run at once; a burst of preprocess calls beyond that limit
// still returns immediately — only the parse goroutine's start is
// throttled.
func New(resourceDir string, registry *parser.Registry, store *tasks.Store, maxConcurrentParses int64, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrentParses < 1 {
		maxConcurrentParses = 1
	}
	return &Coordinator{
		resourceDir: resourceDir,
		registry:    registry,
		store:       store,
		sema:        semaphore.NewWeighted(maxConcurrentParses),
		logger:      logger,
	}
}

// Preprocess validates file and chunkSize, resolves the file against the
// resource directory, probes its shape, allocates a task, and spawns the
// background parse. It returns before that parse completes.
func (c *Coordinator) Preprocess(file string, chunkSize int) (*Descriptor, *apierr.Error) {
	if file == "" {
		return nil, apierr.MissingParam("file")
	}
	if chunkSize <= 0 {
		return nil, apierr.InvalidChunkSize()
	}
	if !pathIsSafe(file) {
		return nil, apierr.PathEscape(file)
	}

	fullPath := filepath.Join(c.resourceDir, file)
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		return nil, apierr.FileNotFound(file)
	}

	p := c.registry.ParserFor(file)
	if p == nil {
		return nil, apierr.UnsupportedExtension(file, c.registry.SupportedExtensions())
	}

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, apierr.IoFailure(err)
	}

	shape, err := p.Probe(raw)
	if err != nil {
		return nil, apierr.ProbeFailure(err)
	}

	dataLength := shape.Len()
	chunks := tasks.ComputeChunks(dataLength, chunkSize)
	checksum := fmt.Sprintf("%016x", xxhash.Sum64(raw))

	taskID := c.store.Create(file, info.Size(), chunkSize, checksum, chunks)
	c.logger.Info("preprocessing file",
		"task_id", taskID, "file", file, "size", humanize.Bytes(uint64(info.Size())),
		"shape", shape, "chunks", len(chunks))
	c.spawnParse(taskID, fullPath, raw, p)

	return &Descriptor{
		TaskID:     taskID,
		File:       file,
		FileSize:   info.Size(),
		Shape:      [3]int{shape.NX(), shape.NY(), shape.NZ()},
		DataLength: dataLength,
		ChunkSize:  chunkSize,
		Checksum:   checksum,
		Chunks:     chunks,
	}, nil
}

// spawnParse runs the full parse on a worker gated by the coordinator's
// semaphore. The request that triggered this has already returned; the
// semaphore only bounds how many parses of potentially gigabyte-scale
// files run at once, not whether this call succeeds.
func (c *Coordinator) spawnParse(taskID, path string, raw []byte, p voxel.Parser) {
	go func() {
		ctx := context.Background()
		if err := c.sema.Acquire(ctx, 1); err != nil {
			c.store.CompleteFailure(taskID, "parse scheduling failed: "+err.Error())
			return
		}
		defer c.sema.Release(1)

		grid, err := p.Parse(path, raw)
		if err != nil {
			c.logger.Warn("background parse failed", "task_id", taskID, "file", path, "error", err)
			c.store.CompleteFailure(taskID, err.Error())
			return
		}
		c.store.CompleteSuccess(taskID, grid)
	}()
}

// pathIsSafe rejects any file name containing a ".." component or a path
// separator, without touching the filesystem.
func pathIsSafe(file string) bool {
	if strings.ContainsRune(file, '/') || strings.ContainsRune(file, '\\') {
		return false
	}
	for _, part := range strings.Split(file, string(filepath.Separator)) {
		if part == ".." {
			return false
		}
	}
	return file == filepath.Base(file)
}

// ChunkIndexFromQuery parses a chunk_index query value, used by the HTTP
// surface to keep its own parsing free of apierr construction duplication.
func ChunkIndexFromQuery(raw string) (int, *apierr.Error) {
	if raw == "" {
		return 0, apierr.InvalidChunkIndexParam()
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierr.InvalidChunkIndexParam()
	}
	return n, nil
}
