package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"

	"proposalScope/internal/model"
)

// FileSeedSource reads proposal seeds from a YAML or JSON file holding a
// list of {chainId, l2Block, governor}.
type FileSeedSource struct {
	path string
}

func NewFileSeedSource(path string) *FileSeedSource {
	return &FileSeedSource{path: path}
}

// LoadSeeds reads and validates every seed in the file.
func (s *FileSeedSource) LoadSeeds(_ context.Context) ([]model.ProposalSeed, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}
	return ParseSeeds(data)
}

// ParseSeeds decodes a YAML or JSON seed list.
func ParseSeeds(data []byte) ([]model.ProposalSeed, error) {
	var seeds []model.ProposalSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}
	for i := range seeds {
		if err := NormalizeSeed(&seeds[i]); err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
	}
	return seeds, nil
}

// NormalizeSeed validates a seed and rewrites its fields into canonical form.
func NormalizeSeed(seed *model.ProposalSeed) error {
	chainID, err := hexutil.DecodeUint64(strings.TrimSpace(seed.ChainID))
	if err != nil {
		return fmt.Errorf("invalid chain id %q: %w", seed.ChainID, err)
	}
	if !common.IsHexAddress(seed.Governor) {
		return fmt.Errorf("invalid governor: %q", seed.Governor)
	}
	seed.ChainID = hexutil.EncodeUint64(chainID)
	seed.Governor = common.HexToAddress(seed.Governor).Hex()
	return nil
}
