// Package hourlyhistogram counts trips per hour of day, grounded on the
// source's task3_hourly_traffic.py. Registered under id "hourly_histogram".
// Used in spec §8 scenario S3.
package hourlyhistogram

import (
	"strconv"
	"time"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/registry"
)

const (
	MapperID  = "hourly_histogram"
	ReducerID = "hourly_histogram"
)

var pickupTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func Register(reg *registry.Registry) {
	reg.RegisterMapper(MapperID, NewMapper)
	reg.RegisterReducer(ReducerID, NewReducer)
}

func NewMapper() registry.Mapper {
	return registry.MapperFunc(mapFn)
}

// mapFn extracts the hour of day from a trip's pickup timestamp, trying
// each layout in turn; a record with no parseable timestamp is silently
// skipped.
func mapFn(key, value any) ([]registry.KV, error) {
	rec, ok := value.(map[string]any)
	if !ok {
		return nil, nil
	}
	raw, ok := rec["pickup_time"]
	if !ok {
		return nil, nil
	}
	str, ok := raw.(string)
	if !ok {
		return nil, nil
	}

	for _, layout := range pickupTimeLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return []registry.KV{{Key: strconv.Itoa(t.Hour()), Value: 1}}, nil
		}
	}
	return nil, nil
}

func NewReducer() registry.Reducer {
	return registry.ReducerFunc(reduceFn)
}

// reduceFn sums the trip count for one hour. Values delivered over the wire
// by a peer's shuffle have been JSON round-tripped and decode as float64
// (see mrtypes.KV.UnmarshalJSON), so both int and float64 must be accepted.
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
