package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/coordinator"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobevents"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobstore"
	appErrors "github.com/chris-alexander-pop/mapreduce-engine/pkg/errors"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/logger"
)

// CoordinatorHandlers exposes job submission and status polling over HTTP.
// Jobs run asynchronously: POST /jobs starts the run in a goroutine and
// returns immediately with a job id; GET /jobs/:id reports progress.
type CoordinatorHandlers struct {
	Coordinator *coordinator.Coordinator
	Store       *jobstore.Store
	Events      *jobevents.Publisher
	Log         *slog.Logger
}

func (h *CoordinatorHandlers) Register(e *echo.Echo) {
	e.POST("/jobs", h.submitJob)
	e.GET("/jobs/:id", h.getJob)
}

func (h *CoordinatorHandlers) submitJob(c echo.Context) error {
	var req SubmitJobRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.InvalidArgument("malformed job request", err)
	}
	if req.MapperID == "" || req.ReducerID == "" {
		return appErrors.InvalidArgument("mapper_id and reducer_id are required", nil)
	}
	if len(req.Peers) == 0 {
		return appErrors.InvalidArgument("peers is required", nil)
	}

	jobID := uuid.NewString()
	h.Store.Create(jobID)

	job := coordinator.Job{
		JobID:                  jobID,
		MapperID:               req.MapperID,
		ReducerID:              req.ReducerID,
		PartitionerID:          req.PartitionerID,
		Peers:                  req.Peers,
		Input:                  req.Input,
		ToleranceBrokenShuffle: req.ToleranceBrokenShuffle,
	}

	log := logger.WithJob(h.Log, jobID)
	h.Events.JobStarted(c.Request().Context(), jobID, len(req.Peers))

	go func() {
		ctx := context.Background()
		result, err := h.Coordinator.Run(ctx, job)
		if err != nil {
			log.Error("job failed", "error", err)
			h.Store.Fail(jobID, err)
			h.Events.JobFailed(ctx, jobID, err)
			return
		}
		log.Info("job completed", "result_count", len(result.Records))
		h.Store.Complete(jobID, result)
		h.Events.JobCompleted(ctx, jobID, len(result.Records))
	}()

	return c.JSON(http.StatusAccepted, JobResponse{JobID: jobID, Status: string(jobstore.StatusRunning)})
}

func (h *CoordinatorHandlers) getJob(c echo.Context) error {
	id := c.Param("id")
	record, ok := h.Store.Get(id)
	if !ok {
		return appErrors.NotFound("unknown job id", nil)
	}

	resp := JobResponse{JobID: record.ID, Status: string(record.Status)}
	switch record.Status {
	case jobstore.StatusSucceeded:
		resp.Results = record.Results
		resp.Timing = &PhaseTimingDTO{
			HealthSeconds:  record.Timing.Health.Seconds(),
			ResetSeconds:   record.Timing.Reset.Seconds(),
			MapSeconds:     record.Timing.Map.Seconds(),
			ShuffleSeconds: record.Timing.Shuffle.Seconds(),
			ReduceSeconds:  record.Timing.Reduce.Seconds(),
		}
	case jobstore.StatusFailed:
		resp.Error = record.Err.Error()
	}

	return c.JSON(http.StatusOK, resp)
}
