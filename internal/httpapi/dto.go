// Package httpapi is the HTTP wire layer from spec §6: JSON request/response
// DTOs for every worker endpoint, echo handlers wrapping internal/worker,
// a RemoteWorker client the coordinator and peer workers use to make those
// calls, and the coordinator's own job-submission endpoints.
package httpapi

import (
	"github.com/chris-alexander-pop/mapreduce-engine/internal/mrtypes"
)

type HealthResponse struct {
	WorkerID string `json:"worker_id"`
	Status   string `json:"status"`
}

type AckResponse struct {
	Ack bool `json:"ack"`
}

type ExecuteMapRequest struct {
	MapperID      string        `json:"mapper_id"`
	PartitionerID string        `json:"partitioner_id"`
	InputData     []mrtypes.KV  `json:"input_data"`
	Peers         []string      `json:"peers"`
	SelfIndex     int           `json:"self_index"`
}

type ExecuteMapResponse struct {
	WorkerID          string  `json:"worker_id"`
	IntermediateCount int     `json:"intermediate_count"`
	ElapsedSeconds    float64 `json:"elapsed"`
}

type ExecuteShuffleRequest struct {
	SelfIndex int      `json:"self_index"`
	Peers     []string `json:"peers"`
}

type ExecuteShuffleResponse struct {
	WorkerID string `json:"worker_id"`
	Ack      bool   `json:"ack"`
}

type ShuffleRequest struct {
	SourceWorker string       `json:"source_worker"`
	Data         []mrtypes.KV `json:"data"`
}

type ShuffleResponse struct {
	WorkerID string `json:"worker_id"`
	Received int    `json:"received"`
}

type ExecuteReduceRequest struct {
	ReducerID string `json:"reducer_id"`
}

type ExecuteReduceResponse struct {
	WorkerID       string  `json:"worker_id"`
	InputPairs     int     `json:"input_pairs"`
	OutputCount    int     `json:"output_count"`
	ElapsedSeconds float64 `json:"elapsed"`
}

type GetResultsResponse struct {
	WorkerID string       `json:"worker_id"`
	Results  []mrtypes.KV `json:"results"`
}

// SubmitJobRequest is the coordinator's POST /jobs body.
type SubmitJobRequest struct {
	MapperID               string       `json:"mapper_id"`
	ReducerID              string       `json:"reducer_id"`
	PartitionerID          string       `json:"partitioner_id"`
	Peers                  []string     `json:"peers"`
	Input                  []mrtypes.KV `json:"input"`
	ToleranceBrokenShuffle bool         `json:"tolerance_broken_shuffle"`
}

type PhaseTimingDTO struct {
	HealthSeconds  float64 `json:"health_seconds"`
	ResetSeconds   float64 `json:"reset_seconds"`
	MapSeconds     float64 `json:"map_seconds"`
	ShuffleSeconds float64 `json:"shuffle_seconds"`
	ReduceSeconds  float64 `json:"reduce_seconds"`
}

// JobResponse is returned immediately (status "running") by POST /jobs,
// and again from GET /jobs/:id once the job has finished.
type JobResponse struct {
	JobID   string          `json:"job_id"`
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Results []mrtypes.KV    `json:"results,omitempty"`
	Timing  *PhaseTimingDTO `json:"timing,omitempty"`
}
