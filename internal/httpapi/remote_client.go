package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/mrtypes"
	appErrors "github.com/chris-alexander-pop/mapreduce-engine/pkg/errors"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/httpclient"
)

// RemoteWorker calls another worker's HTTP surface. It implements both
// worker.PeerClient (shuffle delivery between workers) and
// coordinator.WorkerClient (the coordinator's dispatch calls), since both
// boil down to the same JSON-over-HTTP request/response pattern.
type RemoteWorker struct {
	Client *httpclient.Client
}

func NewRemoteWorker(client *httpclient.Client) *RemoteWorker {
	return &RemoteWorker{Client: client}
}

func (r *RemoteWorker) Health(ctx context.Context, endpoint string) error {
	var resp HealthResponse
	return r.do(ctx, http.MethodGet, endpoint+"/health", nil, &resp)
}

func (r *RemoteWorker) Reset(ctx context.Context, endpoint string) error {
	var resp AckResponse
	return r.do(ctx, http.MethodPost, endpoint+"/reset", nil, &resp)
}

func (r *RemoteWorker) ExecuteMap(ctx context.Context, endpoint string, mapperID, partitionerID string, input []mrtypes.KV, selfIndex int, peers []string) (int, error) {
	req := ExecuteMapRequest{
		MapperID:      mapperID,
		PartitionerID: partitionerID,
		InputData:     input,
		Peers:         peers,
		SelfIndex:     selfIndex,
	}
	var resp ExecuteMapResponse
	if err := r.do(ctx, http.MethodPost, endpoint+"/execute_map", req, &resp); err != nil {
		return 0, err
	}
	return resp.IntermediateCount, nil
}

func (r *RemoteWorker) ExecuteShuffle(ctx context.Context, endpoint string, selfIndex int, peers []string) error {
	req := ExecuteShuffleRequest{SelfIndex: selfIndex, Peers: peers}
	var resp ExecuteShuffleResponse
	return r.do(ctx, http.MethodPost, endpoint+"/execute_shuffle", req, &resp)
}

func (r *RemoteWorker) ShuffleDeliver(ctx context.Context, peer string, sourceWorker string, pairs []mrtypes.KV) error {
	req := ShuffleRequest{SourceWorker: sourceWorker, Data: pairs}
	var resp ShuffleResponse
	return r.do(ctx, http.MethodPost, peer+"/shuffle", req, &resp)
}

func (r *RemoteWorker) ExecuteReduce(ctx context.Context, endpoint string, reducerID string) (int, error) {
	req := ExecuteReduceRequest{ReducerID: reducerID}
	var resp ExecuteReduceResponse
	if err := r.do(ctx, http.MethodPost, endpoint+"/execute_reduce", req, &resp); err != nil {
		return 0, err
	}
	return resp.OutputCount, nil
}

func (r *RemoteWorker) GetResults(ctx context.Context, endpoint string) ([]mrtypes.KV, error) {
	var resp GetResultsResponse
	if err := r.do(ctx, http.MethodGet, endpoint+"/get_results", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// do executes one JSON request and decodes the response, or surfaces a
// non-2xx body as an AppError so callers can distinguish protocol/user-code
// errors from a bare transport failure (spec §7's taxonomy).
func (r *RemoteWorker) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request to %s: %w", url, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request to %s: %w", url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
			Code  int    `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return appErrors.New(statusToCode(resp.StatusCode), fmt.Sprintf("%s returned %d: %s", url, resp.StatusCode, errBody.Error), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

func statusToCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return appErrors.CodeNotFound
	case http.StatusBadRequest:
		return appErrors.CodeInvalidArgument
	case http.StatusConflict:
		return appErrors.CodeConflict
	default:
		return appErrors.CodeInternal
	}
}
