package indexer

import (
	"fmt"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// TimeRange is an inclusive window of wall clock time to fetch logs for.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339))
}

// SplitTimeRange cuts [start, end] into consecutive windows of at most step.
func SplitTimeRange(start, end time.Time, step time.Duration) ([]TimeRange, error) {
	if step <= 0 {
		return nil, fmt.Errorf("window must be greater than zero")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end time must be >= start time")
	}

	ranges := make([]TimeRange, 0)
	for cur := start; ; {
		next := cur.Add(step)
		if !next.Before(end) {
			ranges = append(ranges, TimeRange{Start: cur, End: end})
			break
		}
		ranges = append(ranges, TimeRange{Start: cur, End: next})
		cur = next
	}
	return ranges, nil
}

// mondayOf returns 00:00 UTC of the Monday in the ISO week containing t.
func mondayOf(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

func overlap(startA, endA, startB, endB time.Time) time.Duration {
	start := startA
	if startB.After(start) {
		start = startB
	}
	end := endA
	if endB.Before(end) {
		end = endB
	}
	if d := end.Sub(start); d > 0 {
		return d
	}
	return 0
}

// MondayOverlap returns how much of r falls on the UTC Monday of the week
// containing r.End, or on the Monday a week earlier, whichever is larger.
func MondayOverlap(r TimeRange) time.Duration {
	current := mondayOf(r.End)
	previous := current.Add(-week)
	return max(
		overlap(r.Start, r.End, current, current.Add(day)),
		overlap(r.Start, r.End, previous, previous.Add(day)),
	)
}

// CompareMondayOverlap orders ranges with more Monday overlap first.
// Proposals tend to go live on Mondays, so those windows are fetched early.
func CompareMondayOverlap(a, b TimeRange) int {
	oa, ob := MondayOverlap(a), MondayOverlap(b)
	switch {
	case oa > ob:
		return -1
	case oa < ob:
		return 1
	default:
		return 0
	}
}
