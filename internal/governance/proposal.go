package governance

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"proposalScope/internal/abicodec"
)

// ProposalCreatedEvent is the decoded data section of a ProposalCreated log.
type ProposalCreatedEvent struct {
	ProposalID  *big.Int         `json:"proposalId"`
	Proposer    common.Address   `json:"proposer"`
	Targets     []common.Address `json:"targets"`
	Values      []*big.Int       `json:"values"`
	Signatures  []string         `json:"signatures"`
	Calldatas   []hexutil.Bytes  `json:"calldatas"`
	StartBlock  *big.Int         `json:"startBlock"`
	EndBlock    *big.Int         `json:"endBlock"`
	Description string           `json:"description"`
}

// Head slots of the ProposalCreated data section.
const (
	slotProposalID = iota
	slotProposer
	slotTargets
	slotValues
	slotSignatures
	slotCalldatas
	slotStartBlock
	slotEndBlock
	slotDescription

	proposalHeadWords
)

// ParseProposalCreatedData decodes the ABI data of a ProposalCreated log.
// Signatures and calldatas that decode as absent are replaced with "" and
// empty bytes so both arrays keep their declared length.
func ParseProposalCreatedData(dataHex string) (*ProposalCreatedEvent, error) {
	buf, err := abicodec.NewBuffer(dataHex)
	if err != nil {
		return nil, err
	}
	if buf.Len() < proposalHeadWords*abicodec.WordSize {
		return nil, &abicodec.DecodingError{
			Reason: fmt.Sprintf("proposal data of %d bytes is shorter than its %d word head", buf.Len(), proposalHeadWords),
		}
	}

	var ev ProposalCreatedEvent
	if ev.ProposalID, err = abicodec.ParseUint256(buf, slot(slotProposalID)); err != nil {
		return nil, fmt.Errorf("proposalId: %w", err)
	}
	if ev.Proposer, err = abicodec.ParseAddress(buf, slot(slotProposer)); err != nil {
		return nil, fmt.Errorf("proposer: %w", err)
	}
	if ev.StartBlock, err = abicodec.ParseUint256(buf, slot(slotStartBlock)); err != nil {
		return nil, fmt.Errorf("startBlock: %w", err)
	}
	if ev.EndBlock, err = abicodec.ParseUint256(buf, slot(slotEndBlock)); err != nil {
		return nil, fmt.Errorf("endBlock: %w", err)
	}

	if ev.Targets, err = parseAt(buf, slotTargets, "targets", func(buf abicodec.Buffer, at int) ([]common.Address, error) {
		return abicodec.ParseDynamicArray(buf, at, abicodec.ParseAddress)
	}); err != nil {
		return nil, err
	}
	if ev.Values, err = parseAt(buf, slotValues, "values", func(buf abicodec.Buffer, at int) ([]*big.Int, error) {
		return abicodec.ParseDynamicArray(buf, at, abicodec.ParseUint256)
	}); err != nil {
		return nil, err
	}
	if ev.Signatures, err = parseAt(buf, slotSignatures, "signatures", func(buf abicodec.Buffer, at int) ([]string, error) {
		items, err := abicodec.ParseDynamicArrayOfDynamic(buf, at, abicodec.ParseUTF8String)
		if err != nil {
			return nil, err
		}
		return abicodec.ValuesOr(items, ""), nil
	}); err != nil {
		return nil, err
	}
	if ev.Calldatas, err = parseAt(buf, slotCalldatas, "calldatas", func(buf abicodec.Buffer, at int) ([]hexutil.Bytes, error) {
		items, err := abicodec.ParseDynamicArrayOfDynamic(buf, at, abicodec.ParseDynamicBytes)
		if err != nil {
			return nil, err
		}
		out := make([]hexutil.Bytes, len(items))
		for i, item := range items {
			out[i] = item.OrDefault(hexutil.Bytes{})
		}
		return out, nil
	}); err != nil {
		return nil, err
	}
	if ev.Description, err = parseAt(buf, slotDescription, "description", abicodec.ParseUTF8String); err != nil {
		return nil, err
	}

	return &ev, nil
}

func slot(i int) int { return i * abicodec.WordSize }

// parseAt follows the offset stored in head slot i and parses the dynamic
// value it points to.
func parseAt[T any](buf abicodec.Buffer, i int, field string, parse abicodec.ElementParser[T]) (T, error) {
	var zero T
	at, err := buf.ReadOffset(slot(i))
	if err != nil {
		return zero, fmt.Errorf("%s offset: %w", field, err)
	}
	value, err := parse(buf, at)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", field, err)
	}
	return value, nil
}
