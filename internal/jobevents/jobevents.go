// Package jobevents publishes job-lifecycle events onto a pkg/events.Bus:
// JobStarted, PhaseCompleted, JobCompleted, JobFailed. This is purely an
// observability side channel — no component depends on these events for
// correctness, matching spec §1's decision to keep the three-phase protocol
// itself free of any event-bus dependency.
package jobevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chris-alexander-pop/mapreduce-engine/pkg/events"
)

const (
	TypeJobStarted     = "job.started"
	TypePhaseCompleted = "job.phase_completed"
	TypeJobCompleted   = "job.completed"
	TypeJobFailed      = "job.failed"
	topic              = "mapreduce.jobs"
)

// Publisher emits job-lifecycle events onto a bus. The zero value with a
// nil Bus is a no-op, so wiring an event bus is optional.
type Publisher struct {
	Bus    events.Bus
	Source string
}

func New(bus events.Bus, source string) *Publisher {
	return &Publisher{Bus: bus, Source: source}
}

func (p *Publisher) publish(ctx context.Context, eventType, jobID string, payload any) {
	if p == nil || p.Bus == nil {
		return
	}
	_ = p.Bus.Publish(ctx, topic, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    p.Source,
		Timestamp: time.Now(),
		Payload: map[string]any{
			"job_id": jobID,
			"data":   payload,
		},
	})
}

func (p *Publisher) JobStarted(ctx context.Context, jobID string, workerCount int) {
	p.publish(ctx, TypeJobStarted, jobID, map[string]any{"worker_count": workerCount})
}

func (p *Publisher) PhaseCompleted(ctx context.Context, jobID, phase string, elapsed time.Duration) {
	p.publish(ctx, TypePhaseCompleted, jobID, map[string]any{"phase": phase, "elapsed_seconds": elapsed.Seconds()})
}

func (p *Publisher) JobCompleted(ctx context.Context, jobID string, resultCount int) {
	p.publish(ctx, TypeJobCompleted, jobID, map[string]any{"result_count": resultCount})
}

func (p *Publisher) JobFailed(ctx context.Context, jobID string, cause error) {
	p.publish(ctx, TypeJobFailed, jobID, map[string]any{"error": cause.Error()})
}
