package indexer

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposalScope/internal/queue"
)

// 2024-03-04 is a Monday.
var monday = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func TestMondayOverlap(t *testing.T) {
	cases := []struct {
		name string
		r    TimeRange
		want time.Duration
	}{
		{"monday morning", TimeRange{monday, monday.Add(12 * time.Hour)}, 12 * time.Hour},
		{"tuesday to wednesday", TimeRange{monday.Add(day), monday.Add(2 * day)}, 0},
		{"sunday into monday", TimeRange{monday.Add(-6 * time.Hour), monday.Add(6 * time.Hour)}, 6 * time.Hour},
		{"previous monday", TimeRange{monday.Add(-week - time.Hour), monday.Add(-week + 3*time.Hour)}, 3 * time.Hour},
		{"whole week", TimeRange{monday.Add(-week), monday.Add(6 * day)}, day},
		{"ends on monday in another zone", TimeRange{
			Start: monday.Add(-2 * time.Hour),
			End:   monday.Add(2 * time.Hour).In(time.FixedZone("PST", -8*3600)),
		}, 2 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MondayOverlap(tc.r))
		})
	}
}

func TestCompareMondayOverlap(t *testing.T) {
	a := TimeRange{monday, monday.Add(12 * time.Hour)}
	b := TimeRange{monday.Add(day), monday.Add(2 * day)}

	assert.Negative(t, CompareMondayOverlap(a, b))
	assert.Positive(t, CompareMondayOverlap(b, a))
	assert.Zero(t, CompareMondayOverlap(a, a))
}

func TestMondayOverlapQueueOrder(t *testing.T) {
	ranges, err := SplitTimeRange(monday.Add(-3*day), monday.Add(3*day), 12*time.Hour)
	require.NoError(t, err)

	q := queue.New(CompareMondayOverlap)
	for _, r := range ranges {
		q.Push(r)
	}
	var popped []TimeRange
	for {
		r, ok := q.Pop()
		if !ok {
			break
		}
		popped = append(popped, r)
	}
	require.Len(t, popped, len(ranges))

	assert.Equal(t, monday, popped[0].Start)
	assert.Equal(t, monday.Add(12*time.Hour), popped[1].Start)
	assert.True(t, sort.SliceIsSorted(popped, func(i, j int) bool {
		return MondayOverlap(popped[i]) > MondayOverlap(popped[j])
	}))
}

func TestSplitTimeRange(t *testing.T) {
	got, err := SplitTimeRange(monday, monday.Add(50*time.Hour), day)
	require.NoError(t, err)
	assert.Equal(t, []TimeRange{
		{monday, monday.Add(day)},
		{monday.Add(day), monday.Add(2 * day)},
		{monday.Add(2 * day), monday.Add(50 * time.Hour)},
	}, got)

	single, err := SplitTimeRange(monday, monday, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []TimeRange{{monday, monday}}, single)

	_, err = SplitTimeRange(monday, monday.Add(-time.Second), time.Hour)
	assert.Error(t, err)
	_, err = SplitTimeRange(monday, monday.Add(time.Hour), 0)
	assert.Error(t, err)
}

func TestTimeRangeString(t *testing.T) {
	r := TimeRange{monday, monday.Add(time.Hour)}
	assert.Equal(t, "[2024-03-04T00:00:00Z, 2024-03-04T01:00:00Z]", r.String())
}
