// Package wordcount implements the classic word-count mapper/reducer used
// in spec §8 scenario S2. Registered under id "word_count".
package wordcount

import (
	"strings"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/registry"
)

const (
	MapperID  = "word_count"
	ReducerID = "word_count"
)

func Register(reg *registry.Registry) {
	reg.RegisterMapper(MapperID, NewMapper)
	reg.RegisterReducer(ReducerID, NewReducer)
}

func NewMapper() registry.Mapper {
	return registry.MapperFunc(mapFn)
}

// mapFn splits a line of text on whitespace and emits (word, 1) per token.
func mapFn(key, value any) ([]registry.KV, error) {
	line, ok := value.(string)
	if !ok {
		return nil, nil
	}

	var out []registry.KV
	for _, word := range strings.Fields(line) {
		out = append(out, registry.KV{Key: word, Value: 1})
	}
	return out, nil
}

func NewReducer() registry.Reducer {
	return registry.ReducerFunc(reduceFn)
}

// reduceFn sums the per-word counts. Values arriving from this worker's own
// map output are still Go ints; values delivered over the wire by a peer's
// shuffle have been JSON round-tripped and decode as float64 (see
// mrtypes.KV.UnmarshalJSON), so both forms must be accepted.
func reduceFn(key string, values []any) ([]registry.KV, error) {
	total := 0
	for _, v := range values {
		n, _ := asInt(v)
		total += n
	}
	return []registry.KV{{Key: key, Value: total}}, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	}
	return 0, false
}
