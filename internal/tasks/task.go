package tasks

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/tenzoki/voxelgrid/public/voxel"
)

type taskState int

const (
	stateParsing taskState = iota
	stateReady
	stateFailed
)

type slotState int

const (
	slotPending slotState = iota
	slotAvailable
	slotConsumed
)

// Outcome classifies the result of a chunk fetch.
type Outcome int

const (
	OutcomeReady Outcome = iota
	OutcomeProcessing
	OutcomeAlreadyTaken
	OutcomeUnknownTask
	OutcomeBadIndex
	OutcomeTaskFailed
)

// TakeResult is the answer to a single (task_id, chunk_index) fetch.
type TakeResult struct {
	Outcome Outcome
	Bytes   []byte
	Reason  string // set when Outcome == OutcomeTaskFailed
}

// Task is the server-side state for one preprocess call: its chunk map,
// its current Parsing/Ready/Failed state, and the one-shot status of each
// chunk slot.
//
// All mutations to state and slots are serialized under mu — a single
// per-task lock, never held across I/O, per the store's concurrency
// policy. Once installed, a Task's Grid is read-only and may be read
// without locking by any goroutine holding a reference to it.
type Task struct {
	ID        string
	File      string
	FileSize  int64
	ChunkSize int
	Checksum  string
	Chunks    []ChunkDescriptor

	mu         sync.Mutex
	state      taskState
	failReason string
	grid       *voxel.Grid
	slots      []slotState
	remaining  int // slots not yet Consumed; grid is released when this reaches 0
}

func newTask(id, file string, fileSize int64, chunkSize int, checksum string, chunks []ChunkDescriptor) *Task {
	return &Task{
		ID:        id,
		File:      file,
		FileSize:  fileSize,
		ChunkSize: chunkSize,
		Checksum:  checksum,
		Chunks:    chunks,
		state:     stateParsing,
		slots:     make([]slotState, len(chunks)),
	}
}

// completeSuccess transitions Parsing -> Ready and publishes the grid.
// Every slot moves from Pending to Available atomically with the state
// flip (both happen under the same lock acquisition), so no fetch can
// observe Ready with a still-Pending slot, nor Parsing with an Available
// one. A second call is a programmer error — the coordinator invokes the
// parser at most once per task by construction — and is ignored.
func (t *Task) completeSuccess(grid *voxel.Grid) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateParsing {
		return
	}
	t.grid = grid
	for i := range t.slots {
		t.slots[i] = slotAvailable
	}
	t.remaining = len(t.slots)
	t.state = stateReady
}

// completeFailure transitions Parsing -> Failed. Slots remain Pending;
// every subsequent fetch answers TaskFailed instead.
func (t *Task) completeFailure(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateParsing {
		return
	}
	t.failReason = reason
	t.state = stateFailed
}

// takeChunk resolves one fetch. The Available -> Consumed transition is
// the critical mutation: it happens once under the task's lock, so of any
// number of concurrent fetches for the same chunk exactly one observes
// Available and receives bytes; the rest observe Consumed.
func (t *Task) takeChunk(index int) TakeResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.slots) {
		return TakeResult{Outcome: OutcomeBadIndex}
	}

	switch t.state {
	case stateFailed:
		return TakeResult{Outcome: OutcomeTaskFailed, Reason: t.failReason}
	case stateParsing:
		return TakeResult{Outcome: OutcomeProcessing}
	}

	switch t.slots[index] {
	case slotConsumed:
		return TakeResult{Outcome: OutcomeAlreadyTaken}
	case slotAvailable:
		desc := t.Chunks[index]
		view, err := t.grid.View(desc.Start, desc.End)
		if err != nil {
			// Chunk descriptors are derived from this same grid's length at
			// creation time; a mismatch here means the partition invariant
			// was violated upstream, not a condition a client triggered.
			panic("voxelgrid: chunk range outside grid bounds: " + err.Error())
		}
		bytes := encodeLittleEndian(view)

		t.slots[index] = slotConsumed
		t.remaining--
		if t.remaining == 0 {
			t.grid = nil
		}
		return TakeResult{Outcome: OutcomeReady, Bytes: bytes}
	default: // slotPending
		panic("voxelgrid: chunk slot pending in a ready task (invariant violation)")
	}
}

// encodeLittleEndian renders a float64 view as little-endian IEEE-754
// doubles. Writing bytes explicitly (rather than reinterpreting the
// backing array via unsafe) costs one copy but is correct on every host
// architecture without a big-endian-specific code path.
func encodeLittleEndian(view []float64) []byte {
	out := make([]byte, 8*len(view))
	for i, v := range view {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}
