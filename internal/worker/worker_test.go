package worker_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/mrtypes"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/partition"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/registry"
	"github.com/chris-alexander-pop/mapreduce-engine/internal/worker"
	"github.com/chris-alexander-pop/mapreduce-engine/pkg/test"
)

// fakeCluster wires a small set of in-process workers together through a
// PeerClient that dispatches directly to the matching *worker.Worker,
// skipping HTTP entirely.
type fakeCluster struct {
	mu      sync.Mutex
	workers map[string]*worker.Worker
	urls    []string
}

func newFakeCluster(reg *registry.Registry, n int) *fakeCluster {
	c := &fakeCluster{workers: make(map[string]*worker.Worker)}
	for i := 0; i < n; i++ {
		url := fmt.Sprintf("worker-%d", i)
		c.urls = append(c.urls, url)
		c.workers[url] = worker.New(url, reg, c)
	}
	return c
}

// ShuffleDeliver round-trips pairs through JSON before delivering them, the
// same transform a real /shuffle HTTP call applies (mrtypes.KV's
// MarshalJSON/UnmarshalJSON), so values like a mapper-emitted int arrive
// decoded as float64, exactly as they would over the wire.
func (c *fakeCluster) ShuffleDeliver(ctx context.Context, peer string, sourceWorker string, pairs []mrtypes.KV) error {
	wirePairs, err := roundTripThroughJSON(pairs)
	if err != nil {
		return err
	}

	c.mu.Lock()
	w := c.workers[peer]
	c.mu.Unlock()
	_, err = w.ShuffleDeliver(ctx, sourceWorker, wirePairs)
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

func wordCountMapper() registry.Mapper {
	return registry.MapperFunc(func(key, value any) ([]registry.KV, error) {
		line, _ := value.(string)
		var out []registry.KV
		word := ""
		flush := func() {
			if word != "" {
				out = append(out, registry.KV{Key: word, Value: 1})
				word = ""
			}
		}
		for _, r := range line {
			if r == ' ' {
				flush()
				continue
			}
			word += string(r)
		}
		flush()
		return out, nil
	})
}

// sumReducer accumulates both self-delivered values (still Go ints) and
// peer-delivered values (decoded from JSON as float64 by ShuffleDeliver's
// wire round trip above).
func sumReducer() registry.Reducer {
	return registry.ReducerFunc(func(key string, values []any) ([]registry.KV, error) {
		total := 0
		for _, v := range values {
			switch n := v.(type) {
			case int:
				total += n
			case float64:
				total += int(n)
			}
		}
		return []registry.KV{{Key: key, Value: total}}, nil
	})
}

type WorkerSuite struct {
	*test.Suite
}

func TestWorkerSuite(t *testing.T) {
	test.Run(t, &WorkerSuite{Suite: test.NewSuite()})
}

func (s *WorkerSuite) newRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterMapper("word_count", wordCountMapper)
	reg.RegisterReducer("sum", sumReducer)
	return reg
}

// TestWordCountThreeWorkers reproduces spec scenario S2.
func (s *WorkerSuite) TestWordCountThreeWorkers() {
	reg := s.newRegistry()
	cluster := newFakeCluster(reg, 3)
	ctx := s.Ctx

	inputs := map[string][]mrtypes.KV{
		cluster.urls[0]: {{Key: 0, Value: "a b a"}},
		cluster.urls[1]: {{Key: 1, Value: "b c"}},
		cluster.urls[2]: {{Key: 2, Value: "a"}},
	}

	for idx, url := range cluster.urls {
		_, err := cluster.workers[url].ExecuteMap(ctx, "word_count", partition.DefaultID, inputs[url], idx, len(cluster.urls))
		s.NoError(err)
	}
	for idx, url := range cluster.urls {
		err := cluster.workers[url].ExecuteShuffle(ctx, idx, cluster.urls)
		s.NoError(err)
	}

	got := map[string]int{}
	for _, url := range cluster.urls {
		res, err := cluster.workers[url].ExecuteReduce(ctx, "sum")
		s.NoError(err)
		for _, kv := range res.Results {
			got[kv.Key.(string)] = kv.Value.(int)
		}
	}

	s.Equal(map[string]int{"a": 3, "b": 2, "c": 1}, got)
}

// TestSkewedKeysConcentrateOnOneWorker reproduces scenario S5: every record
// maps to the same key, so only partition(k, N) should end up non-empty.
func (s *WorkerSuite) TestSkewedKeysConcentrateOnOneWorker() {
	reg := s.newRegistry()
	n := 4
	cluster := newFakeCluster(reg, n)
	ctx := s.Ctx

	key := "k"
	owner := partition.Hash{}.Partition(key, n)

	var recs []mrtypes.KV
	for i := 0; i < 1000; i++ {
		recs = append(recs, mrtypes.KV{Key: i, Value: "k"})
	}

	for idx, url := range cluster.urls {
		var slice []mrtypes.KV
		if idx == 0 {
			slice = recs
		}
		_, err := cluster.workers[url].ExecuteMap(ctx, "word_count", partition.DefaultID, slice, idx, n)
		s.NoError(err)
	}
	for idx, url := range cluster.urls {
		s.NoError(cluster.workers[url].ExecuteShuffle(ctx, idx, cluster.urls))
	}

	for idx, url := range cluster.urls {
		res, err := cluster.workers[url].ExecuteReduce(ctx, "sum")
		s.NoError(err)
		if idx == owner {
			s.Len(res.Results, 1)
			s.Equal(key, res.Results[0].Key)
			s.Equal(1000, res.Results[0].Value)
		} else {
			s.Empty(res.Results)
		}
	}
}

func (s *WorkerSuite) TestResetIsIdempotent() {
	reg := s.newRegistry()
	w := worker.New("w0", reg, newFakeCluster(reg, 1))

	_, err := w.ExecuteMap(s.Ctx, "word_count", partition.DefaultID, []mrtypes.KV{{Key: 0, Value: "a a"}}, 0, 1)
	s.NoError(err)
	s.NoError(w.ExecuteShuffle(s.Ctx, 0, []string{"w0"}))

	w.Reset()
	w.Reset()

	s.Equal(worker.StateIdle, w.State())
	s.Empty(w.GetResults())
}

func (s *WorkerSuite) TestUnknownMapperIDIsProtocolError() {
	reg := s.newRegistry()
	w := worker.New("w0", reg, newFakeCluster(reg, 1))

	_, err := w.ExecuteMap(s.Ctx, "nope", partition.DefaultID, nil, 0, 1)
	s.Error(err)
	s.Equal(worker.StateError, w.State())
}

func (s *WorkerSuite) TestEmptyInputCompletesSuccessfully() {
	reg := s.newRegistry()
	n := 4
	cluster := newFakeCluster(reg, n)

	for idx, url := range cluster.urls {
		_, err := cluster.workers[url].ExecuteMap(s.Ctx, "word_count", partition.DefaultID, nil, idx, n)
		s.NoError(err)
	}
	for idx, url := range cluster.urls {
		s.NoError(cluster.workers[url].ExecuteShuffle(s.Ctx, idx, cluster.urls))
	}
	for _, url := range cluster.urls {
		res, err := cluster.workers[url].ExecuteReduce(s.Ctx, "sum")
		s.NoError(err)
		s.Empty(res.Results)
	}
}
