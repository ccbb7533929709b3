package hourlyhistogram_test

import (
	"testing"

	"github.com/chris-alexander-pop/mapreduce-engine/internal/jobs/hourlyhistogram"
	"github.com/stretchr/testify/assert"
)

func TestMapExtractsHour(t *testing.T) {
	m := hourlyhistogram.NewMapper()
	pairs, err := m.Map(0, map[string]any{"pickup_time": "2024-01-01 14:30:00"})
	assert.NoError(t, err)
	assert.Len(t, pairs, 1)
	assert.Equal(t, "14", pairs[0].Key)
	assert.Equal(t, 1, pairs[0].Value)
}

func TestMapSkipsUnparseableTimestamp(t *testing.T) {
	m := hourlyhistogram.NewMapper()
	pairs, err := m.Map(0, map[string]any{"pickup_time": "not a time"})
	assert.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestReduceSumsCounts(t *testing.T) {
	r := hourlyhistogram.NewReducer()
	pairs, err := r.Reduce("14", []any{1, 1, 1, 1})
	assert.NoError(t, err)
	assert.Equal(t, 4, pairs[0].Value)
}

// TestReduceSumsWireDecodedValues covers the JSON-decoded shape values take
// after a real /shuffle round trip: mrtypes.KV.UnmarshalJSON decodes every
// number into a float64, so a self-delivered int and a peer-delivered count
// (decoded as float64) can both show up in the same values slice.
func TestReduceSumsWireDecodedValues(t *testing.T) {
	r := hourlyhistogram.NewReducer()
	pairs, err := r.Reduce("14", []any{1, float64(1), float64(1), float64(1)})
	assert.NoError(t, err)
	assert.Equal(t, 4, pairs[0].Value)
}
