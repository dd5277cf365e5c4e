package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tenzoki/voxelgrid/internal/apierr"
	"github.com/tenzoki/voxelgrid/internal/coordinator"
	"github.com/tenzoki/voxelgrid/internal/parser"
	"github.com/tenzoki/voxelgrid/internal/resources"
	"github.com/tenzoki/voxelgrid/internal/tasks"
)

// Server holds the dependencies shared by every HTTP handler.
type Server struct {
	logger      *slog.Logger
	registry    *parser.Registry
	coordinator *coordinator.Coordinator
	store       *tasks.Store
	lister      *resources.Lister
	resourceDir string
}

// NewServer wires a Server from its already-constructed collaborators.
func NewServer(logger *slog.Logger, registry *parser.Registry, coord *coordinator.Coordinator, store *tasks.Store, lister *resources.Lister, resourceDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:      logger,
		registry:    registry,
		coordinator: coord,
		store:       store,
		lister:      lister,
		resourceDir: resourceDir,
	}
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":              "voxelgrid chunked delivery service",
		"endpoint":             "/voxel-grid",
		"supported_extensions": s.registry.SupportedExtensions(),
		"resource_dir":         s.resourceDir,
	})
}

type preprocessRequest struct {
	File      string `json:"file"`
	ChunkSize int    `json:"chunk_size"`
}

// PreprocessQuery handles GET /voxel-grid (query-parameter form).
func (s *Server) PreprocessQuery(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	chunkSizeRaw := r.URL.Query().Get("chunk_size")

	if chunkSizeRaw == "" {
		writeAPIError(w, s.logger, apierr.MissingParam("chunk_size"))
		return
	}
	chunkSize, err := strconv.Atoi(chunkSizeRaw)
	if err != nil {
		writeAPIError(w, s.logger, apierr.InvalidChunkSize())
		return
	}

	s.preprocess(w, file, chunkSize)
}

// PreprocessBody handles POST /voxel-grid/preprocess (JSON body form).
func (s *Server) PreprocessBody(w http.ResponseWriter, r *http.Request) {
	var req preprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, s.logger, apierr.InvalidRequestBody(err))
		return
	}
	s.preprocess(w, req.File, req.ChunkSize)
}

func (s *Server) preprocess(w http.ResponseWriter, file string, chunkSize int) {
	desc, apiErr := s.coordinator.Preprocess(file, chunkSize)
	if apiErr != nil {
		writeAPIError(w, s.logger, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// Chunk handles GET /voxel-grid/chunk.
func (s *Server) Chunk(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		writeAPIError(w, s.logger, apierr.InvalidTaskID())
		return
	}

	chunkIndex, apiErr := coordinator.ChunkIndexFromQuery(r.URL.Query().Get("chunk_index"))
	if apiErr != nil {
		writeAPIError(w, s.logger, apiErr)
		return
	}

	result := s.store.TakeChunk(taskID, chunkIndex)
	switch result.Outcome {
	case tasks.OutcomeReady:
		task, ok := s.store.Task(taskID)
		if !ok {
			writeAPIError(w, s.logger, apierr.TaskUnknown(taskID))
			return
		}
		desc := task.Chunks[chunkIndex]
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("X-Chunk-Index", strconv.Itoa(desc.Index))
		w.Header().Set("X-Chunk-Start", strconv.Itoa(desc.Start))
		w.Header().Set("X-Chunk-End", strconv.Itoa(desc.End))
		w.Header().Set("X-Chunk-Length", strconv.Itoa(len(result.Bytes)))
		w.Header().Set("X-Chunk-Task", taskID)
		w.WriteHeader(http.StatusOK)
		w.Write(result.Bytes)
	case tasks.OutcomeProcessing:
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "processing"})
	case tasks.OutcomeUnknownTask:
		writeAPIError(w, s.logger, apierr.TaskUnknown(taskID))
	case tasks.OutcomeBadIndex:
		writeAPIError(w, s.logger, apierr.ChunkIndexOutOfRange(chunkIndex))
	case tasks.OutcomeAlreadyTaken:
		writeAPIError(w, s.logger, apierr.ChunkAlreadyTaken())
	case tasks.OutcomeTaskFailed:
		writeAPIError(w, s.logger, apierr.TaskFailed(result.Reason))
	default:
		writeAPIError(w, s.logger, apierr.TaskFailed(fmt.Sprintf("unrecognized outcome %d", result.Outcome)))
	}
}

// Files handles GET /voxel-grid/files.
func (s *Server) Files(w http.ResponseWriter, r *http.Request) {
	files, err := s.lister.List()
	if err != nil {
		writeAPIError(w, s.logger, apierr.IoFailure(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}
