package model

import "fmt"

// ProposalRecord is a decoded ProposalCreated event ready for storage.
// Integers wider than 64 bits are kept as decimal strings.
type ProposalRecord struct {
	ChainID     uint64   `json:"chain_id"`
	Governor    string   `json:"governor"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	Timestamp   uint64   `json:"timestamp"`
	ProposalID  string   `json:"proposal_id"`
	Proposer    string   `json:"proposer"`
	Targets     []string `json:"targets"`
	Values      []string `json:"values"`
	Signatures  []string `json:"signatures"`
	Calldatas   []string `json:"calldatas"`
	StartBlock  string   `json:"start_block"`
	EndBlock    string   `json:"end_block"`
	Description string   `json:"description"`
	IngestedAt  string   `json:"ingested_at,omitempty"`
}

// Key identifies the log a record was decoded from.
func (r ProposalRecord) Key() string {
	return fmt.Sprintf("%d:%s:%d", r.ChainID, r.TxHash, r.LogIndex)
}
