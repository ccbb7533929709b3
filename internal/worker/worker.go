// Package worker implements the per-process state machine described in
// spec §4.2: a worker holds job-scoped transient state (a map-output
// buffer, a reduce-input multimap, a reduce-output list) and executes one
// phase at a time, while accepting concurrent shuffle deliveries under a
// single mutex.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	appErrors "github.com/chris-alexander-pop/mapreduce-engine/pkg/errors"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/mrtypes"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/registry"
)

// State is one of the worker states from spec §4.2.
type State string

const (
	StateIdle      State = "idle"
	StateMapping   State = "mapping"
	StateShuffling State = "shuffling"
	StateReducing  State = "reducing"
	StateError     State = "error"
)

// PeerClient delivers a shuffle batch to another worker. internal/httpapi
// implements this over HTTP; tests use an in-process fake.
type PeerClient interface {
	ShuffleDeliver(ctx context.Context, peer string, sourceWorker string, pairs []mrtypes.KV) error
}

// Worker is one node in the fixed worker set of a single job.
type Worker struct {
	ID       string
	Registry *registry.Registry
	Peer     PeerClient

	mu    sync.Mutex
	state State

	// mapOutput is filled by ExecuteMap, keyed by destination partition
	// index, and drained by ExecuteShuffle (split variant).
	mapOutput map[int][]mrtypes.KV

	// reduceInput is the single shared structure described in spec §5: it
	// is mutated by the worker's own map-to-self delivery and by inbound
	// ShuffleDeliver calls, always under mu.
	reduceInput map[string][]any
	reduceOrder []string // first-seen key order, for deterministic reduce iteration in tests

	reduceOutput []mrtypes.KV

	lastErr error
}

// New returns an idle worker identified by id.
func New(id string, reg *registry.Registry, peer PeerClient) *Worker {
	w := &Worker{ID: id, Registry: reg, Peer: peer}
	w.resetLocked()
	return w
}

func (w *Worker) resetLocked() {
	w.state = StateIdle
	w.mapOutput = make(map[int][]mrtypes.KV)
	w.reduceInput = make(map[string][]any)
	w.reduceOrder = nil
	w.reduceOutput = nil
	w.lastErr = nil
}

// Reset clears all job-scoped state and returns to idle. Always succeeds,
// and is idempotent (spec §8 property 7).
func (w *Worker) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

// State returns the worker's current state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// MapResult is the outcome of ExecuteMap.
type MapResult struct {
	IntermediateCount int
	Elapsed           time.Duration
}

// ExecuteMap resolves the mapper and partitioner by id, applies the mapper
// to every input pair in order, and buckets intermediate pairs by
// destination partition. It delivers nothing: this worker implements the
// split variant, and ExecuteShuffle performs delivery separately.
func (w *Worker) ExecuteMap(ctx context.Context, mapperID, partitionerID string, input []mrtypes.KV, selfIndex, numPeers int) (MapResult, error) {
	start := time.Now()

	w.mu.Lock()
	if w.state == StateError {
		w.mu.Unlock()
		return MapResult{}, appErrors.Internal("worker is in error state", nil)
	}
	w.state = StateMapping
	w.mu.Unlock()

	mapper, err := w.Registry.Mapper(mapperID)
	if err != nil {
		w.fail(err)
		return MapResult{}, err
	}
	partitioner, err := w.Registry.Partitioner(partitionerID)
	if err != nil {
		w.fail(err)
		return MapResult{}, err
	}

	buckets := make(map[int][]mrtypes.KV)
	count := 0
	for _, rec := range input {
		pairs, err := mapper.Map(rec.Key, rec.Value)
		if err != nil {
			wrapped := appErrors.Internal(fmt.Sprintf("mapper %q raised", mapperID), err)
			w.fail(wrapped)
			return MapResult{}, wrapped
		}
		for _, p := range pairs {
			key := mrtypes.CanonicalKey(p.Key)
			dest := partitioner.Partition(key, numPeers)
			buckets[dest] = append(buckets[dest], mrtypes.KV{Key: key, Value: p.Value})
			count++
		}
	}

	w.mu.Lock()
	w.mapOutput = buckets
	w.state = StateIdle
	w.mu.Unlock()

	return MapResult{IntermediateCount: count, Elapsed: time.Since(start)}, nil
}

// ExecuteShuffle delivers every non-empty destination bucket to its peer
// (or appends directly to this worker's own reduce-input for selfIndex),
// per spec §4.2's split variant. All deliveries must succeed before this
// returns; any failure puts the worker into the error state.
func (w *Worker) ExecuteShuffle(ctx context.Context, selfIndex int, peers []string) error {
	w.mu.Lock()
	if w.state == StateError {
		w.mu.Unlock()
		return appErrors.Internal("worker is in error state", nil)
	}
	w.state = StateShuffling
	buckets := w.mapOutput
	w.mu.Unlock()

	for dest, pairs := range buckets {
		if len(pairs) == 0 {
			continue
		}
		if dest == selfIndex {
			w.appendReduceInput(pairs)
			continue
		}
		if dest < 0 || dest >= len(peers) {
			err := appErrors.Internal(fmt.Sprintf("shuffle destination %d out of range for %d peers", dest, len(peers)), nil)
			w.fail(err)
			return err
		}
		if err := w.Peer.ShuffleDeliver(ctx, peers[dest], w.ID, pairs); err != nil {
			wrapped := appErrors.Internal(fmt.Sprintf("shuffle delivery to %s failed", peers[dest]), err)
			w.fail(wrapped)
			return wrapped
		}
	}

	w.mu.Lock()
	if w.state == StateShuffling {
		w.state = StateIdle
	}
	w.mu.Unlock()
	return nil
}

// ShuffleDeliver accepts an inbound batch of pairs from a peer (or from
// this worker's own self-delivery branch) and appends them to the
// reduce-input multimap under mutex. Accepted concurrently with any state
// except error.
func (w *Worker) ShuffleDeliver(ctx context.Context, sourceWorker string, pairs []mrtypes.KV) (int, error) {
	w.mu.Lock()
	if w.state == StateError {
		w.mu.Unlock()
		return 0, appErrors.Internal("worker is in error state", nil)
	}
	w.mu.Unlock()

	w.appendReduceInput(pairs)
	return len(pairs), nil
}

func (w *Worker) appendReduceInput(pairs []mrtypes.KV) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range pairs {
		key := mrtypes.CanonicalKey(p.Key)
		if _, ok := w.reduceInput[key]; !ok {
			w.reduceOrder = append(w.reduceOrder, key)
		}
		w.reduceInput[key] = append(w.reduceInput[key], p.Value)
	}
}

// ReduceResult is the outcome of ExecuteReduce.
type ReduceResult struct {
	InputPairs  int
	UniqueKeys  int
	OutputCount int
	Elapsed     time.Duration
	Results     []mrtypes.KV
}

// ExecuteReduce resolves the reducer by id and applies it once per key in
// the reduce-input multimap, in first-seen order (deterministic for tests;
// spec does not require any particular order across keys).
func (w *Worker) ExecuteReduce(ctx context.Context, reducerID string) (ReduceResult, error) {
	start := time.Now()

	w.mu.Lock()
	if w.state == StateError {
		w.mu.Unlock()
		return ReduceResult{}, appErrors.Internal("worker is in error state", nil)
	}
	w.state = StateReducing
	order := append([]string(nil), w.reduceOrder...)
	input := w.reduceInput
	w.mu.Unlock()

	reducer, err := w.Registry.Reducer(reducerID)
	if err != nil {
		w.fail(err)
		return ReduceResult{}, err
	}

	inputPairs := 0
	var output []mrtypes.KV
	for _, key := range order {
		values := input[key]
		inputPairs += len(values)
		pairs, err := reducer.Reduce(key, values)
		if err != nil {
			wrapped := appErrors.Internal(fmt.Sprintf("reducer %q raised", reducerID), err)
			w.fail(wrapped)
			return ReduceResult{}, wrapped
		}
		for _, p := range pairs {
			output = append(output, mrtypes.KV{Key: p.Key, Value: p.Value})
		}
	}

	w.mu.Lock()
	w.reduceOutput = output
	w.state = StateIdle
	w.mu.Unlock()

	return ReduceResult{
		InputPairs:  inputPairs,
		UniqueKeys:  len(order),
		OutputCount: len(output),
		Elapsed:     time.Since(start),
		Results:     output,
	}, nil
}

// GetResults returns the last computed reduce-output. Idempotent.
func (w *Worker) GetResults() []mrtypes.KV {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]mrtypes.KV, len(w.reduceOutput))
	copy(out, w.reduceOutput)
	return out
}

func (w *Worker) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateError
	w.lastErr = err
}

// LastError returns the error that put this worker into the error state,
// if any.
func (w *Worker) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}
