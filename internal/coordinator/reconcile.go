package coordinator

import (
	"fmt"
	"strings"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/mrtypes"
	appErrors "github.com/chris-alexander-pop/mapreduce-engine/pkg/errors"
)

// numericThreshold is the source's reconciliation heuristic threshold,
// kept only for the compatibility mode (spec §9 flags the original 100 as
// unjustified; reconcile-or-reject is the default and this value is never
// consulted unless ToleranceBrokenShuffle is set).
const numericThreshold = 100.0

// ReconciliationError is returned when reconcile-or-reject mode finds a key
// collided across more than one worker.
type ReconciliationError struct {
	Keys []string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("shuffle produced colliding keys across workers: %s", strings.Join(e.Keys, ", "))
}

// reconcile groups the concatenated result list by canonical key. A correct
// shuffle leaves every key on exactly one worker, so by default any
// collision fails the job with a ReconciliationError naming the offending
// keys (spec §9's recommended fix for the source's numeric-magnitude
// heuristic). When tolerateBrokenShuffle is set, collisions are merged
// instead: integers and floats above numericThreshold are summed (treated
// as counts), other numbers are averaged (treated as rates), and a group
// with any non-numeric value keeps its last value.
func reconcile(all []mrtypes.KV, tolerateBrokenShuffle bool) ([]mrtypes.KV, error) {
	grouped := make(map[string][]mrtypes.KV)
	var order []string
	for _, kv := range all {
		key := mrtypes.CanonicalKey(kv.Key)
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], kv)
	}

	var colliding []string
	for _, key := range order {
		if len(grouped[key]) > 1 {
			colliding = append(colliding, key)
		}
	}

	if len(colliding) > 0 && !tolerateBrokenShuffle {
		return nil, appErrors.Conflict("", &ReconciliationError{Keys: sortedKeys(filterGrouped(grouped, colliding))})
	}

	out := make([]mrtypes.KV, 0, len(order))
	for _, key := range order {
		group := grouped[key]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		out = append(out, mrtypes.KV{Key: group[0].Key, Value: mergeHeuristic(group)})
	}
	return out, nil
}

func filterGrouped(grouped map[string][]mrtypes.KV, keys []string) map[string][]mrtypes.KV {
	out := make(map[string][]mrtypes.KV, len(keys))
	for _, k := range keys {
		out[k] = grouped[k]
	}
	return out
}

// mergeHeuristic sums when every collided value is an integer or a float
// above numericThreshold (treated as counts), otherwise averages (treated
// as rates/percentages) — the source's exact rule, reproduced verbatim for
// the compatibility mode.
func mergeHeuristic(group []mrtypes.KV) any {
	floats := make([]float64, 0, len(group))
	shouldSum := true
	for _, kv := range group {
		f, isInt, ok := asNumber(kv.Value)
		if !ok {
			// Non-numeric values: nothing principled to merge; keep the
			// last one, matching the source's behaviour of silently
			// preferring a value.
			return group[len(group)-1].Value
		}
		floats = append(floats, f)
		if !isInt && f <= numericThreshold {
			shouldSum = false
		}
	}

	sum := 0.0
	for _, f := range floats {
		sum += f
	}
	if shouldSum {
		return sum
	}
	return sum / float64(len(floats))
}

func asNumber(v any) (value float64, isInt bool, ok bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true, true
	case int64:
		return float64(n), true, true
	case float32:
		return float64(n), false, true
	case float64:
		return n, false, true
	}
	return 0, false, false
}
