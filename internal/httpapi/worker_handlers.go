package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/worker"
	appErrors "github.com/chris-alexander-pop/mapreduce-engine/pkg/errors"
)

// WorkerHandlers binds internal/worker.Worker to the endpoints in spec §6.
type WorkerHandlers struct {
	Worker *worker.Worker
}

// Register mounts every worker route on e.
func (h *WorkerHandlers) Register(e *echo.Echo) {
	e.GET("/health", h.health)
	e.POST("/reset", h.reset)
	e.POST("/execute_map", h.executeMap)
	e.POST("/execute_shuffle", h.executeShuffle)
	e.POST("/shuffle", h.shuffle)
	e.POST("/execute_reduce", h.executeReduce)
	e.GET("/get_results", h.getResults)
}

func (h *WorkerHandlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		WorkerID: h.Worker.ID,
		Status:   string(h.Worker.State()),
	})
}

func (h *WorkerHandlers) reset(c echo.Context) error {
	h.Worker.Reset()
	return c.JSON(http.StatusOK, AckResponse{Ack: true})
}

func (h *WorkerHandlers) executeMap(c echo.Context) error {
	var req ExecuteMapRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.InvalidArgument("malformed execute_map request", err)
	}
	if req.MapperID == "" {
		return appErrors.InvalidArgument("mapper_id is required", nil)
	}

	res, err := h.Worker.ExecuteMap(c.Request().Context(), req.MapperID, req.PartitionerID, req.InputData, req.SelfIndex, len(req.Peers))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ExecuteMapResponse{
		WorkerID:          h.Worker.ID,
		IntermediateCount: res.IntermediateCount,
		ElapsedSeconds:    res.Elapsed.Seconds(),
	})
}

func (h *WorkerHandlers) executeShuffle(c echo.Context) error {
	var req ExecuteShuffleRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.InvalidArgument("malformed execute_shuffle request", err)
	}
	if len(req.Peers) == 0 {
		return appErrors.InvalidArgument("peers is required", nil)
	}

	if err := h.Worker.ExecuteShuffle(c.Request().Context(), req.SelfIndex, req.Peers); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ExecuteShuffleResponse{WorkerID: h.Worker.ID, Ack: true})
}

func (h *WorkerHandlers) shuffle(c echo.Context) error {
	var req ShuffleRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.InvalidArgument("malformed shuffle request", err)
	}

	received, err := h.Worker.ShuffleDeliver(c.Request().Context(), req.SourceWorker, req.Data)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ShuffleResponse{WorkerID: h.Worker.ID, Received: received})
}

func (h *WorkerHandlers) executeReduce(c echo.Context) error {
	var req ExecuteReduceRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.InvalidArgument("malformed execute_reduce request", err)
	}
	if req.ReducerID == "" {
		return appErrors.InvalidArgument("reducer_id is required", nil)
	}

	res, err := h.Worker.ExecuteReduce(c.Request().Context(), req.ReducerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ExecuteReduceResponse{
		WorkerID:       h.Worker.ID,
		InputPairs:     res.InputPairs,
		OutputCount:    res.OutputCount,
		ElapsedSeconds: res.Elapsed.Seconds(),
	})
}

func (h *WorkerHandlers) getResults(c echo.Context) error {
	return c.JSON(http.StatusOK, GetResultsResponse{
		WorkerID: h.Worker.ID,
		Results:  h.Worker.GetResults(),
	})
}
