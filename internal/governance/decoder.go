package governance

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"proposalScope/internal/model"
)

// ProposalDecoder turns raw ProposalCreated logs into proposal records.
type ProposalDecoder struct {
	topic0 string
}

// NewProposalDecoder builds a decoder for the ProposalCreated topic.
func NewProposalDecoder() *ProposalDecoder {
	return &ProposalDecoder{topic0: strings.ToLower(ProposalCreatedTopic.Hex())}
}

// CanDecode checks if the topic0 is a ProposalCreated event.
func (d *ProposalDecoder) CanDecode(topic0 string) bool {
	return topic0 != "" && strings.ToLower(topic0) == d.topic0
}

// Decode converts a LogRecord into a ProposalRecord.
func (d *ProposalDecoder) Decode(log model.LogRecord) (*model.ProposalRecord, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	if !d.CanDecode(log.Topics[0]) {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid governor address: %s", log.Address)
	}

	ev, err := ParseProposalCreatedData(log.Data)
	if err != nil {
		return nil, err
	}
	record := NewProposalRecord(log, ev)
	return &record, nil
}

// NewProposalRecord joins a decoded event with the log it came from.
func NewProposalRecord(log model.LogRecord, ev *ProposalCreatedEvent) model.ProposalRecord {
	targets := make([]string, len(ev.Targets))
	for i, target := range ev.Targets {
		targets[i] = target.Hex()
	}
	values := make([]string, len(ev.Values))
	for i, value := range ev.Values {
		values[i] = value.String()
	}
	calldatas := make([]string, len(ev.Calldatas))
	for i, data := range ev.Calldatas {
		calldatas[i] = data.String()
	}
	signatures := make([]string, len(ev.Signatures))
	copy(signatures, ev.Signatures)

	return model.ProposalRecord{
		ChainID:     log.ChainID,
		Governor:    common.HexToAddress(log.Address).Hex(),
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Timestamp:   log.Timestamp,
		ProposalID:  ev.ProposalID.String(),
		Proposer:    ev.Proposer.Hex(),
		Targets:     targets,
		Values:      values,
		Signatures:  signatures,
		Calldatas:   calldatas,
		StartBlock:  ev.StartBlock.String(),
		EndBlock:    ev.EndBlock.String(),
		Description: ev.Description,
		IngestedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
}
