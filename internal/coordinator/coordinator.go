// Package coordinator drives one job's lifecycle across a fixed worker set:
// health probe, reset, input partitioning, parallel map/shuffle/reduce
// dispatch with phase barriers, result collection, and reconciliation
// (spec §4.3).
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobevents"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/mrtypes"
	appErrors "github.com/chris-alexander-pop/mapreduce-engine/pkg/errors"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/logger"
)

// WorkerClient is everything the coordinator needs from a remote worker.
// internal/httpapi implements this over HTTP.
type WorkerClient interface {
	Health(ctx context.Context, endpoint string) error
	Reset(ctx context.Context, endpoint string) error
	ExecuteMap(ctx context.Context, endpoint string, mapperID, partitionerID string, input []mrtypes.KV, selfIndex int, peers []string) (intermediateCount int, err error)
	ExecuteShuffle(ctx context.Context, endpoint string, selfIndex int, peers []string) error
	ExecuteReduce(ctx context.Context, endpoint string, reducerID string) (outputCount int, err error)
	GetResults(ctx context.Context, endpoint string) ([]mrtypes.KV, error)
}

// Timeouts carries the per-phase timeouts named in spec §4.3.
type Timeouts struct {
	Health  time.Duration
	Reset   time.Duration
	Map     time.Duration
	Shuffle time.Duration
	Reduce  time.Duration
}

// DefaultTimeouts matches spec §4.3's stated defaults: 60s generic phases,
// 5s health, 30s shuffle-deliver.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Health:  5 * time.Second,
		Reset:   60 * time.Second,
		Map:     60 * time.Second,
		Shuffle: 30 * time.Second,
		Reduce:  60 * time.Second,
	}
}

// Job is a single execution request. JobID is optional: it is echoed into
// per-phase log lines and jobevents.Publisher.PhaseCompleted so a caller that
// tracks jobs (internal/httpapi.CoordinatorHandlers) can correlate phase
// progress with the job it submitted. A zero-value JobID just means the
// field is omitted from log lines; events then carry an empty job_id.
type Job struct {
	JobID         string
	MapperID      string
	ReducerID     string
	PartitionerID string
	Peers         []string
	Input         []mrtypes.KV
	// ToleranceBrokenShuffle opts into the summing/averaging reconciliation
	// heuristic instead of the reconcile-or-reject default (spec §9).
	ToleranceBrokenShuffle bool
}

// PhaseTiming is the per-phase timing summary returned on success.
type PhaseTiming struct {
	Health  time.Duration
	Reset   time.Duration
	Map     time.Duration
	Shuffle time.Duration
	Reduce  time.Duration
}

// Result is the outcome of a successful job run.
type Result struct {
	Records []mrtypes.KV
	Timing  PhaseTiming
}

// Coordinator executes jobs against a fixed worker set. Log and Events are
// both optional: Log falls back to slog.Default(), and a nil Events is a
// no-op publisher (jobevents.Publisher's zero value behaves the same way).
type Coordinator struct {
	Client   WorkerClient
	Timeouts Timeouts
	Log      *slog.Logger
	Events   *jobevents.Publisher
}

// New returns a coordinator using the given client and default timeouts.
func New(client WorkerClient) *Coordinator {
	return &Coordinator{Client: client, Timeouts: DefaultTimeouts()}
}

func (c *Coordinator) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logger.L()
}

// Run executes the full coordinator algorithm from spec §4.3 and returns
// the reconciled result, or a fatal error naming the worker and phase.
func (c *Coordinator) Run(ctx context.Context, job Job) (Result, error) {
	var timing PhaseTiming
	n := len(job.Peers)
	if n == 0 {
		return Result{}, appErrors.InvalidArgument("job has no worker endpoints", nil)
	}

	if err := c.phase(ctx, job.JobID, c.Timeouts.Health, &timing.Health, "health", job.Peers, func(ctx context.Context, peer string) error {
		return c.Client.Health(ctx, peer)
	}); err != nil {
		return Result{}, err
	}

	if err := c.phase(ctx, job.JobID, c.Timeouts.Reset, &timing.Reset, "reset", job.Peers, func(ctx context.Context, peer string) error {
		return c.Client.Reset(ctx, peer)
	}); err != nil {
		return Result{}, err
	}

	partitions := partitionInput(job.Input, n)

	if err := c.phase(ctx, job.JobID, c.Timeouts.Map, &timing.Map, "map", job.Peers, func(ctx context.Context, peer string) error {
		idx := indexOf(job.Peers, peer)
		_, err := c.Client.ExecuteMap(ctx, peer, job.MapperID, job.PartitionerID, partitions[idx], idx, job.Peers)
		return err
	}); err != nil {
		return Result{}, err
	}

	if err := c.phase(ctx, job.JobID, c.Timeouts.Shuffle, &timing.Shuffle, "shuffle", job.Peers, func(ctx context.Context, peer string) error {
		idx := indexOf(job.Peers, peer)
		return c.Client.ExecuteShuffle(ctx, peer, idx, job.Peers)
	}); err != nil {
		return Result{}, err
	}

	if err := c.phase(ctx, job.JobID, c.Timeouts.Reduce, &timing.Reduce, "reduce", job.Peers, func(ctx context.Context, peer string) error {
		_, err := c.Client.ExecuteReduce(ctx, peer, job.ReducerID)
		return err
	}); err != nil {
		return Result{}, err
	}

	collected := make([][]mrtypes.KV, n)
	group, gctx := errgroup.WithContext(ctx)
	for i, peer := range job.Peers {
		i, peer := i, peer
		group.Go(func() error {
			results, err := c.Client.GetResults(gctx, peer)
			if err != nil {
				return jobFatal("collect", peer, err)
			}
			collected[i] = results
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	var all []mrtypes.KV
	for _, r := range collected {
		all = append(all, r...)
	}

	reconciled, err := reconcile(all, job.ToleranceBrokenShuffle)
	if err != nil {
		return Result{}, err
	}

	return Result{Records: reconciled, Timing: timing}, nil
}

// phase dispatches fn to every peer in parallel, barriers on completion,
// records elapsed time, and aborts the job on the first failure (per-peer
// errors are wrapped with the peer and phase name). Each peer's outcome is
// logged with its worker index bound via logger.WithWorker, and on success
// the phase's elapsed time is published through c.Events.PhaseCompleted.
func (c *Coordinator) phase(ctx context.Context, jobID string, timeout time.Duration, into *time.Duration, name string, peers []string, fn func(ctx context.Context, peer string) error) error {
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := c.log()
	if jobID != "" {
		log = logger.WithJob(log, jobID)
	}

	group, gctx := errgroup.WithContext(pctx)
	for idx, peer := range peers {
		idx, peer := idx, peer
		group.Go(func() error {
			peerLog := logger.WithWorker(log, idx)
			if err := fn(gctx, peer); err != nil {
				peerLog.Error("phase failed", "phase", name, "peer", peer)
				return jobFatal(name, peer, err)
			}
			peerLog.Debug("phase succeeded", "phase", name, "peer", peer)
			return nil
		})
	}
	err := group.Wait()
	*into = time.Since(start)
	if err == nil {
		c.Events.PhaseCompleted(ctx, jobID, name, *into)
	}
	return err
}

func jobFatal(phase, peer string, err error) error {
	return appErrors.Internal(fmt.Sprintf("phase %q failed on worker %s", phase, peer), err)
}

func indexOf(peers []string, peer string) int {
	for i, p := range peers {
		if p == peer {
			return i
		}
	}
	return -1
}

// partitionInput slices input into N contiguous chunks per spec §4.3's
// chunking rule: chunk size floor(L/N), last worker absorbs the remainder.
func partitionInput(input []mrtypes.KV, n int) [][]mrtypes.KV {
	l := len(input)
	chunk := l / n
	out := make([][]mrtypes.KV, n)
	for i := 0; i < n; i++ {
		start := i * chunk
		end := start + chunk
		if i == n-1 {
			end = l
		}
		if start > l {
			start = l
		}
		if end > l {
			end = l
		}
		out[i] = input[start:end]
	}
	return out
}

// sortedKeys is used only to make reconciliation's error message
// deterministic across runs.
func sortedKeys(m map[string][]mrtypes.KV) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
