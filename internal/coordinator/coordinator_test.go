package coordinator_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/coordinator"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobs/wordcount"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/mrtypes"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/partition"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/registry"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/worker"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/test"
)

// inProcessClient implements coordinator.WorkerClient and worker.PeerClient
// against in-memory *worker.Worker instances, so coordinator tests exercise
// the full partition/map/shuffle/reduce/collect pipeline without HTTP.
type inProcessClient struct {
	workers map[string]*worker.Worker
}

func newCluster(reg *registry.Registry, peers []string) *inProcessClient {
	c := &inProcessClient{workers: make(map[string]*worker.Worker)}
	for _, p := range peers {
		c.workers[p] = worker.New(p, reg, c)
	}
	return c
}

// ShuffleDeliver round-trips pairs through JSON before delivering them,
// matching the real /shuffle HTTP path (mrtypes.KV's MarshalJSON/
// UnmarshalJSON), so reducers see the same float64-decoded values here that
// they would see in production.
func (c *inProcessClient) ShuffleDeliver(ctx context.Context, peer, sourceWorker string, pairs []mrtypes.KV) error {
	wirePairs, err := roundTripThroughJSON(pairs)
	if err != nil {
		return err
	}
	_, err = c.workers[peer].ShuffleDeliver(ctx, sourceWorker, wirePairs)
	return err
}

func roundTripThroughJSON(pairs []mrtypes.KV) ([]mrtypes.KV, error) {
	encoded, err := json.Marshal(pairs)
	if err != nil {
		return nil, err
	}
	var decoded []mrtypes.KV
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func (c *inProcessClient) Health(ctx context.Context, endpoint string) error {
	if _, ok := c.workers[endpoint]; !ok {
		return fmt.Errorf("unknown worker %s", endpoint)
	}
	return nil
}

func (c *inProcessClient) Reset(ctx context.Context, endpoint string) error {
	c.workers[endpoint].Reset()
	return nil
}

func (c *inProcessClient) ExecuteMap(ctx context.Context, endpoint string, mapperID, partitionerID string, input []mrtypes.KV, selfIndex int, peers []string) (int, error) {
	res, err := c.workers[endpoint].ExecuteMap(ctx, mapperID, partitionerID, input, selfIndex, len(peers))
	return res.IntermediateCount, err
}

func (c *inProcessClient) ExecuteShuffle(ctx context.Context, endpoint string, selfIndex int, peers []string) error {
	return c.workers[endpoint].ExecuteShuffle(ctx, selfIndex, peers)
}

func (c *inProcessClient) ExecuteReduce(ctx context.Context, endpoint string, reducerID string) (int, error) {
	res, err := c.workers[endpoint].ExecuteReduce(ctx, reducerID)
	return res.OutputCount, err
}

func (c *inProcessClient) GetResults(ctx context.Context, endpoint string) ([]mrtypes.KV, error) {
	return c.workers[endpoint].GetResults(), nil
}

func tipMapper() registry.Mapper {
	return registry.MapperFunc(func(key, value any) ([]registry.KV, error) {
		rec, ok := value.(map[string]float64)
		if !ok {
			return nil, nil
		}
		zone := int(rec["zone"])
		fare := rec["fare"]
		tip := rec["tip"]
		if fare == 0 {
			return nil, nil
		}
		pct := tip / fare * 100
		return []registry.KV{{Key: fmt.Sprintf("%d", zone), Value: pct}}, nil
	})
}

func avgReducer() registry.Reducer {
	return registry.ReducerFunc(func(key string, values []any) ([]registry.KV, error) {
		sum := 0.0
		for _, v := range values {
			sum += v.(float64)
		}
		return []registry.KV{{Key: key, Value: sum / float64(len(values))}}, nil
	})
}

type CoordinatorSuite struct {
	*test.Suite
}

func TestCoordinatorSuite(t *testing.T) {
	test.Run(t, &CoordinatorSuite{Suite: test.NewSuite()})
}

func (s *CoordinatorSuite) newRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterMapper("tip_pct", tipMapper)
	reg.RegisterReducer("avg", avgReducer)
	wordcount.Register(reg)
	return reg
}

// TestWordCountOverWireRoundTrip reproduces spec scenario S2 end-to-end
// through the production wordcount package, across enough workers that most
// keys are delivered by shuffle (and therefore JSON round-tripped to
// float64) rather than self-delivered. This is the regression test for the
// defect where wordcount's reducer only accepted Go ints and silently
// dropped every peer-delivered count.
func (s *CoordinatorSuite) TestWordCountOverWireRoundTrip() {
	reg := s.newRegistry()
	peers := []string{"w0", "w1", "w2"}
	cluster := newCluster(reg, peers)
	coord := coordinator.New(cluster)

	job := coordinator.Job{
		MapperID:      wordcount.MapperID,
		ReducerID:     wordcount.ReducerID,
		PartitionerID: partition.DefaultID,
		Peers:         peers,
		Input: []mrtypes.KV{
			{Key: 0, Value: "a b a"},
			{Key: 1, Value: "b c"},
			{Key: 2, Value: "a"},
		},
	}

	result, err := coord.Run(s.Ctx, job)
	s.Require().NoError(err)

	got := map[string]int{}
	for _, kv := range result.Records {
		got[kv.Key.(string)] = kv.Value.(int)
	}
	s.Equal(map[string]int{"a": 3, "b": 2, "c": 1}, got)
}

// TestTipPercentageTiny reproduces spec scenario S1.
func (s *CoordinatorSuite) TestTipPercentageTiny() {
	reg := s.newRegistry()
	peers := []string{"w0", "w1"}
	cluster := newCluster(reg, peers)
	coord := coordinator.New(cluster)

	job := coordinator.Job{
		MapperID:      "tip_pct",
		ReducerID:     "avg",
		PartitionerID: partition.DefaultID,
		Peers:         peers,
		Input: []mrtypes.KV{
			{Key: 0, Value: map[string]float64{"zone": 1, "fare": 10, "tip": 2}},
			{Key: 1, Value: map[string]float64{"zone": 1, "fare": 20, "tip": 5}},
			{Key: 2, Value: map[string]float64{"zone": 2, "fare": 10, "tip": 1}},
		},
	}

	result, err := coord.Run(s.Ctx, job)
	s.Require().NoError(err)

	got := map[string]float64{}
	for _, kv := range result.Records {
		got[kv.Key.(string)] = kv.Value.(float64)
	}
	s.InDelta(22.5, got["1"], 0.001)
	s.InDelta(10.0, got["2"], 0.001)
}

func (s *CoordinatorSuite) TestEmptyInputReturnsEmptyResult() {
	reg := s.newRegistry()
	peers := []string{"w0", "w1", "w2", "w3"}
	cluster := newCluster(reg, peers)
	coord := coordinator.New(cluster)

	job := coordinator.Job{
		MapperID:      "tip_pct",
		ReducerID:     "avg",
		PartitionerID: partition.DefaultID,
		Peers:         peers,
		Input:         nil,
	}

	result, err := coord.Run(s.Ctx, job)
	s.Require().NoError(err)
	s.Empty(result.Records)
}

func (s *CoordinatorSuite) TestUnreachableWorkerIsJobFatal() {
	reg := s.newRegistry()
	peers := []string{"w0", "w1"}
	cluster := newCluster(reg, peers)
	coord := coordinator.New(cluster)

	job := coordinator.Job{
		MapperID:      "tip_pct",
		ReducerID:     "avg",
		PartitionerID: partition.DefaultID,
		Peers:         []string{"w0", "ghost"},
		Input:         []mrtypes.KV{{Key: 0, Value: map[string]float64{"zone": 1, "fare": 10, "tip": 1}}},
	}

	_, err := coord.Run(s.Ctx, job)
	s.Error(err)
}
