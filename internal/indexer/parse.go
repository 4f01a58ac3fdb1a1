package indexer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", time.DateOnly}

// ParseTime reads an RFC 3339 timestamp or a bare date. Inputs without a
// zone are taken as UTC.
func ParseTime(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", input)
}
