// Package mrtypes defines the wire and in-memory shapes shared by every
// stage of the map/reduce pipeline: input records, intermediate pairs, and
// reduce outputs are all the same (key, value) shape on the wire.
package mrtypes

import (
	"encoding/json"
	"fmt"
)

// KV is an ordered (key, value) pair. It is used for input records,
// intermediate map output, and reduce output alike, matching the wire
// format in spec §6: a two-element JSON array [key, value].
type KV struct {
	Key   any
	Value any
}

// MarshalJSON encodes a KV as a two-element array.
func (kv KV) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{kv.Key, kv.Value})
}

// UnmarshalJSON decodes a two-element array into a KV.
func (kv *KV) UnmarshalJSON(data []byte) error {
	var arr [2]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("decode [key,value] pair: %w", err)
	}
	if err := json.Unmarshal(arr[0], &kv.Key); err != nil {
		return fmt.Errorf("decode key: %w", err)
	}
	if err := json.Unmarshal(arr[1], &kv.Value); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

// CanonicalKey returns the canonical string form of a key, used both for
// partitioning and for grouping values in the reduce-input multimap.
// Per spec §9, mappers are expected to already emit string-canonical keys;
// this still normalizes non-string keys (e.g. ints surviving a JSON round
// trip as float64) so a key is never silently split across two forms.
func CanonicalKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	default:
		b, err := json.Marshal(k)
		if err != nil {
			return fmt.Sprintf("%v", k)
		}
		return string(b)
	}
}
