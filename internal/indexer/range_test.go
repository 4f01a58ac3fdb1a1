package indexer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to uint64
		span     uint64
		want     []BlockRange
	}{
		{"even chunks", 100, 105, 2, []BlockRange{{100, 101}, {102, 103}, {104, 105}}},
		{"short tail", 24, 36, 5, []BlockRange{{24, 28}, {29, 33}, {34, 36}}},
		{"single block", 5, 5, 10, []BlockRange{{5, 5}}},
		{"span covers range", 0, 9, 10, []BlockRange{{0, 9}}},
		{"near max uint", math.MaxUint64 - 2, math.MaxUint64, 2, []BlockRange{
			{math.MaxUint64 - 2, math.MaxUint64 - 1},
			{math.MaxUint64, math.MaxUint64},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitRange(tt.from, tt.to, tt.span)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	_, err := SplitRange(10, 9, 1)
	assert.Error(t, err, "reversed range")

	_, err = SplitRange(1, 10, 0)
	assert.Error(t, err, "zero span")
}

func TestBlockRangeString(t *testing.T) {
	assert.Equal(t, "7-9", BlockRange{From: 7, To: 9}.String())
}
