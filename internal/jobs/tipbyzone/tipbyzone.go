// Package tipbyzone computes average tip percentage per pickup zone,
// grounded on the source's task1_tip_analysis.py. Registered under id
// "tip_by_zone".
package tipbyzone

import (
	"fmt"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/registry"
)

const (
	MapperID  = "tip_by_zone"
	ReducerID = "tip_by_zone"
)

// Register installs the mapper and reducer into reg.
func Register(reg *registry.Registry) {
	reg.RegisterMapper(MapperID, NewMapper)
	reg.RegisterReducer(ReducerID, NewReducer)
}

func NewMapper() registry.Mapper {
	return registry.MapperFunc(mapFn)
}

// mapFn extracts (pickup_zone, tip_percentage) from a trip record.
// Records missing fare/tip or with non-positive fare are silently skipped
// (spec §8 scenario S6's malformed-record tolerance).
func mapFn(key, value any) ([]registry.KV, error) {
	rec, ok := value.(map[string]any)
	if !ok {
		return nil, nil
	}

	zone, ok := rec["zone"]
	if !ok {
		return nil, nil
	}
	fare, fareOK := asFloat(rec["fare"])
	tip, tipOK := asFloat(rec["tip"])
	if !fareOK || !tipOK || fare <= 0 {
		return nil, nil
	}

	pct := (tip / fare) * 100.0
	return []registry.KV{{Key: fmt.Sprintf("%v", zone), Value: pct}}, nil
}

func NewReducer() registry.Reducer {
	return registry.ReducerFunc(reduceFn)
}

// reduceFn averages tip percentages for one zone.
func reduceFn(key string, values []any) ([]registry.KV, error) {
	if len(values) == 0 {
		return nil, nil
	}
	sum := 0.0
	for _, v := range values {
		f, _ := asFloat(v)
		sum += f
	}
	return []registry.KV{{Key: key, Value: sum / float64(len(values))}}, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
