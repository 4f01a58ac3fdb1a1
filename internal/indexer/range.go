package indexer

import "fmt"

// BlockRange is an inclusive span of blocks for a single eth_getLogs request.
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// SplitRange cuts [from, to] into spans of at most span blocks so a busy
// window never exceeds the provider's log query limit.
func SplitRange(from, to, span uint64) ([]BlockRange, error) {
	if span == 0 {
		return nil, fmt.Errorf("block span must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/span+1)
	for start := from; ; start += span {
		if to-start < span {
			return append(ranges, BlockRange{From: start, To: to}), nil
		}
		ranges = append(ranges, BlockRange{From: start, To: start + span - 1})
	}
}
