package model

// ProposalSeed anchors a known proposal to the block its ProposalCreated log
// was emitted in.
type ProposalSeed struct {
	ChainID  string `json:"chainId" yaml:"chainId"`
	L2Block  uint64 `json:"l2Block" yaml:"l2Block"`
	Governor string `json:"governor" yaml:"governor"`
}
