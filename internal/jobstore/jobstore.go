// Package jobstore tracks job status for the coordinator's async submission
// surface: POST /jobs enqueues a run and returns immediately; GET /jobs/:id
// polls the outcome, including the per-phase timing summary spec §7
// promises on success.
package jobstore

import (
	"sync"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/coordinator"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/mrtypes"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record is the observable state of one submitted job.
type Record struct {
	ID      string
	Status  Status
	Results []mrtypes.KV
	Timing  coordinator.PhaseTiming
	Err     error
}

// Store is a job_id -> Record map guarded by a single mutex, mirroring the
// worker's one-shared-structure concurrency model (spec §5).
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func New() *Store {
	return &Store{records: make(map[string]*Record)}
}

func (s *Store) Create(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = &Record{ID: id, Status: StatusRunning}
}

func (s *Store) Complete(id string, result coordinator.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		r.Status = StatusSucceeded
		r.Results = result.Records
		r.Timing = result.Timing
	}
}

func (s *Store) Fail(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		r.Status = StatusFailed
		r.Err = err
	}
}

// Get returns a copy of the record, or false if id is unknown.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}
