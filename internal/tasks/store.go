// Package tasks implements the process-wide Task Store: the registry of
// in-flight and completed preprocessing tasks, their chunk maps, and the
// one-shot chunk slots that bound memory under repeated client polling.
package tasks

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"

	"github.com/tenzoki/voxelgrid/public/voxel"
)

// cacheEntry is the value ristretto stores per task. Ristretto hashes the
// key for sharding but always hands the original Value back to OnEvict, so
// keeping the task ID here is how eviction finds its way back to the
// store's authoritative map without depending on ristretto's internal key
// representation.
type cacheEntry struct {
	id string
}

// Store is the process-wide task registry. The map under mu is the single
// source of truth for task lookup; the ristretto cache alongside it is
// purely an LRU+TTL eviction policy that reclaims abandoned tasks' memory
// — it never gates whether a lookup succeeds.
type Store struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	cache  *ristretto.Cache[string, cacheEntry]
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore creates a task store bounded to approximately maxEntries live
// tasks (each task costs 1 against that budget). A task is evicted by the
// cache's periodic expiry sweep once ttl has passed since its creation, or
// sooner when the budget is full; fetching its chunks does not extend the
// ttl. logger may be nil.
func NewStore(maxEntries int64, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		tasks:  make(map[string]*Task),
		ttl:    ttl,
		logger: logger,
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, cacheEntry]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[cacheEntry]) {
			s.forget(item.Value.id, "evicted")
		},
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// Close releases the store's background eviction resources.
func (s *Store) Close() {
	s.cache.Close()
}

// Create allocates a task in state Parsing with one pending slot per entry
// of chunks and returns its opaque task identifier.
func (s *Store) Create(file string, fileSize int64, chunkSize int, checksum string, chunks []ChunkDescriptor) string {
	id := uuid.New().String()
	t := newTask(id, file, fileSize, chunkSize, checksum, chunks)

	s.mu.Lock()
	s.tasks[id] = t
	s.mu.Unlock()

	s.cache.SetWithTTL(id, cacheEntry{id: id}, 1, s.ttl)
	// Create is called once per preprocess request, not in a hot loop, so
	// waiting for ristretto's set buffer to flush here is cheap and makes
	// the eviction clock start deterministically from task creation.
	s.cache.Wait()
	return id
}

// CompleteSuccess transitions a task Parsing -> Ready. Unknown task IDs
// are ignored: the background worker holds the only reference capable of
// calling this, and that worker only exists for tasks this store created.
func (s *Store) CompleteSuccess(taskID string, grid *voxel.Grid) {
	if t, ok := s.lookup(taskID); ok {
		t.completeSuccess(grid)
	}
}

// CompleteFailure transitions a task Parsing -> Failed.
func (s *Store) CompleteFailure(taskID string, reason string) {
	if t, ok := s.lookup(taskID); ok {
		t.completeFailure(reason)
	}
}

// TakeChunk resolves one (task_id, chunk_index) fetch.
func (s *Store) TakeChunk(taskID string, chunkIndex int) TakeResult {
	t, ok := s.lookup(taskID)
	if !ok {
		return TakeResult{Outcome: OutcomeUnknownTask}
	}
	return t.takeChunk(chunkIndex)
}

// Task returns the task for diagnostic/descriptor purposes (e.g. replaying
// the original preprocess descriptor), or false if unknown.
func (s *Store) Task(taskID string) (*Task, bool) {
	return s.lookup(taskID)
}

func (s *Store) lookup(taskID string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	return t, ok
}

func (s *Store) forget(taskID string, reason string) {
	s.mu.Lock()
	delete(s.tasks, taskID)
	s.mu.Unlock()
	s.logger.Debug("task evicted", "task_id", taskID, "reason", reason)
}
