package chain

import (
	"context"
	"fmt"
	"time"
)

// HeaderSource exposes the chain head and block timestamps.
type HeaderSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// BlockResolver maps wall clock times to block numbers by binary search over
// block timestamps.
type BlockResolver struct {
	src   HeaderSource
	floor uint64
}

// NewBlockResolver builds a resolver. Searches never go below floor, which
// lets callers skip history known to predate the contracts of interest.
func NewBlockResolver(src HeaderSource, floor uint64) *BlockResolver {
	return &BlockResolver{src: src, floor: floor}
}

// BlockAt returns the first block whose timestamp is at or after at. Times
// past the chain head resolve to the head.
func (r *BlockResolver) BlockAt(ctx context.Context, at time.Time) (uint64, error) {
	if r.src == nil {
		return 0, fmt.Errorf("header source is nil")
	}
	latest, err := r.src.LatestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	if latest < r.floor {
		return 0, fmt.Errorf("chain head %d is below floor %d", latest, r.floor)
	}

	var target uint64
	if unix := at.Unix(); unix > 0 {
		target = uint64(unix)
	}

	headTs, err := r.src.BlockTimestamp(ctx, latest)
	if err != nil {
		return 0, fmt.Errorf("block timestamp %d: %w", latest, err)
	}
	if target >= headTs {
		return latest, nil
	}

	lo, hi := r.floor, latest
	for lo < hi {
		mid := lo + (hi-lo)/2
		ts, err := r.src.BlockTimestamp(ctx, mid)
		if err != nil {
			return 0, fmt.Errorf("block timestamp %d: %w", mid, err)
		}
		if ts < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// Range resolves [start, end] to an inclusive block range.
func (r *BlockResolver) Range(ctx context.Context, start, end time.Time) (uint64, uint64, error) {
	if end.Before(start) {
		return 0, 0, fmt.Errorf("end %s is before start %s", end, start)
	}
	from, err := r.BlockAt(ctx, start)
	if err != nil {
		return 0, 0, err
	}
	to, err := r.BlockAt(ctx, end)
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}
