package governance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"proposalScope/internal/abicodec"
	"proposalScope/internal/model"
)

var (
	// ErrSeedChainMismatch is returned when a seed belongs to another chain.
	ErrSeedChainMismatch = errors.New("seed chain id does not match service chain")
	// ErrProposalNotFound is returned when no ProposalCreated log exists at a seed's block.
	ErrProposalNotFound = errors.New("proposal created log not found")
)

// Caller performs a read-only contract call with hex encoded input and output.
type Caller interface {
	Call(ctx context.Context, to common.Address, input string) (string, error)
}

// LogFetcher returns logs emitted by addresses within an inclusive block range.
type LogFetcher interface {
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// L1BlockSource reports the L1 block number an Arbitrum node has seen at its head.
type L1BlockSource interface {
	LatestL1BlockNumber(ctx context.Context) (uint64, error)
}

// Options selects the contracts a Service talks to.
type Options struct {
	ChainID  uint64
	Governor common.Address
	Token    common.Address
}

// DefaultOptions targets the treasury governor and ARB token on Arbitrum One.
func DefaultOptions() Options {
	chainID, _ := ChainID(ChainArb1)
	governor, _ := ContractAddress(ContractTreasuryGovernor, ChainArb1)
	token, _ := ContractAddress(ContractArbToken, ChainArb1)
	return Options{ChainID: chainID, Governor: governor, Token: token}
}

// Votes is the tally returned by proposalVotes.
type Votes struct {
	Against *big.Int `json:"against"`
	For     *big.Int `json:"for"`
	Abstain *big.Int `json:"abstain"`
}

// Service reads governor and token state through a Caller.
type Service struct {
	caller Caller
	logs   LogFetcher
	l1     L1BlockSource
	opts   Options
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithL1Blocks enables GetVotesLatest.
func WithL1Blocks(src L1BlockSource) ServiceOption {
	return func(s *Service) { s.l1 = src }
}

// NewService builds a Service. logs may be nil when ProposalFromSeed is unused.
func NewService(caller Caller, logs LogFetcher, opts Options, extra ...ServiceOption) *Service {
	s := &Service{caller: caller, logs: logs, opts: opts}
	for _, opt := range extra {
		opt(s)
	}
	return s
}

// State returns the raw governor state code of a proposal.
func (s *Service) State(ctx context.Context, proposalID *big.Int) (*big.Int, error) {
	return s.callUint(ctx, "state", SelectorState, proposalID)
}

// ProposalSnapshot returns the block votes are counted at.
func (s *Service) ProposalSnapshot(ctx context.Context, proposalID *big.Int) (*big.Int, error) {
	return s.callUint(ctx, "proposalSnapshot", SelectorProposalSnapshot, proposalID)
}

// ProposalDeadline returns the block voting closes at.
func (s *Service) ProposalDeadline(ctx context.Context, proposalID *big.Int) (*big.Int, error) {
	return s.callUint(ctx, "proposalDeadline", SelectorProposalDeadline, proposalID)
}

// Quorum returns the votes required for quorum at blockNumber.
func (s *Service) Quorum(ctx context.Context, blockNumber *big.Int) (*big.Int, error) {
	return s.callUint(ctx, "quorum", SelectorQuorum, blockNumber)
}

// ProposalVotes returns the against, for and abstain tallies.
func (s *Service) ProposalVotes(ctx context.Context, proposalID *big.Int) (Votes, error) {
	word, err := abicodec.Uint256Word(proposalID)
	if err != nil {
		return Votes{}, err
	}
	input, err := abicodec.EncodeFuncSigAndBytes32(SelectorProposalVotes, word)
	if err != nil {
		return Votes{}, err
	}
	buf, err := s.call(ctx, "proposalVotes", s.opts.Governor, input)
	if err != nil {
		return Votes{}, err
	}

	tally := make([]*big.Int, 3)
	for i := range tally {
		if tally[i], err = abicodec.ParseUint256(buf, i*abicodec.WordSize); err != nil {
			return Votes{}, fmt.Errorf("decode proposalVotes: %w", err)
		}
	}
	return Votes{Against: tally[0], For: tally[1], Abstain: tally[2]}, nil
}

// HasVoted reports whether account voted on a proposal.
func (s *Service) HasVoted(ctx context.Context, proposalID *big.Int, account common.Address) (bool, error) {
	word, err := abicodec.Uint256Word(proposalID)
	if err != nil {
		return false, err
	}
	input, err := abicodec.EncodeFuncSigAndBytes32AndAddress(SelectorHasVoted, word, strings.ToLower(account.Hex()))
	if err != nil {
		return false, err
	}
	buf, err := s.call(ctx, "hasVoted", s.opts.Governor, input)
	if err != nil {
		return false, err
	}
	value, err := abicodec.ParseUint256(buf, 0)
	if err != nil {
		return false, fmt.Errorf("decode hasVoted: %w", err)
	}
	return value.Sign() != 0, nil
}

// GetVotes returns the voting power of account at blockNumber.
func (s *Service) GetVotes(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	word, err := abicodec.Uint256Word(blockNumber)
	if err != nil {
		return nil, err
	}
	input, err := abicodec.EncodeFuncSigAndAddressAndBytes32(SelectorGetVotes, strings.ToLower(account.Hex()), word)
	if err != nil {
		return nil, err
	}
	buf, err := s.call(ctx, "getVotes", s.opts.Governor, input)
	if err != nil {
		return nil, err
	}
	votes, err := abicodec.ParseUint256(buf, 0)
	if err != nil {
		return nil, fmt.Errorf("decode getVotes: %w", err)
	}
	return votes, nil
}

// GetVotesByProposal returns the voting power of account at a proposal's snapshot.
func (s *Service) GetVotesByProposal(ctx context.Context, account common.Address, proposalID *big.Int) (*big.Int, error) {
	snapshot, err := s.ProposalSnapshot(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	return s.GetVotes(ctx, account, snapshot)
}

// GetVotesLatest returns the voting power of account at the L1 block before
// the one the chain head last saw. Vote checkpoints on Arbitrum are keyed by
// L1 block number, and getVotes rejects the current block.
func (s *Service) GetVotesLatest(ctx context.Context, account common.Address) (*big.Int, error) {
	if s.l1 == nil {
		return nil, fmt.Errorf("l1 block source is nil")
	}
	l1Block, err := s.l1.LatestL1BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest l1 block: %w", err)
	}
	if l1Block == 0 {
		return nil, fmt.Errorf("latest l1 block is zero")
	}
	return s.GetVotes(ctx, account, new(big.Int).SetUint64(l1Block-1))
}

// TokenName returns the governance token name.
func (s *Service) TokenName(ctx context.Context) (string, error) {
	buf, err := s.call(ctx, "name", s.opts.Token, SelectorName)
	if err != nil {
		return "", err
	}
	at, err := buf.ReadOffset(0)
	if err != nil {
		return "", fmt.Errorf("decode name: %w", err)
	}
	name, err := abicodec.ParseUTF8String(buf, at)
	if err != nil {
		return "", fmt.Errorf("decode name: %w", err)
	}
	return name, nil
}

// ProposalFromSeed loads and decodes the ProposalCreated event a seed points at.
func (s *Service) ProposalFromSeed(ctx context.Context, seed model.ProposalSeed) (*ProposalCreatedEvent, error) {
	if s.logs == nil {
		return nil, fmt.Errorf("log fetcher is nil")
	}
	chainID, err := hexutil.DecodeUint64(seed.ChainID)
	if err != nil {
		return nil, fmt.Errorf("seed chain id %q: %w", seed.ChainID, err)
	}
	if chainID != s.opts.ChainID {
		return nil, fmt.Errorf("%w: seed %#x, service %#x", ErrSeedChainMismatch, chainID, s.opts.ChainID)
	}
	if !common.IsHexAddress(seed.Governor) {
		return nil, fmt.Errorf("invalid seed governor: %s", seed.Governor)
	}

	logs, err := s.logs.FilterLogs(ctx, seed.L2Block, seed.L2Block,
		[]common.Address{common.HexToAddress(seed.Governor)},
		[]common.Hash{ProposalCreatedTopic},
	)
	if err != nil {
		return nil, fmt.Errorf("filter logs at block %d: %w", seed.L2Block, err)
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("%w: governor %s block %d", ErrProposalNotFound, seed.Governor, seed.L2Block)
	}
	return ParseProposalCreatedData(hexutil.Encode(logs[0].Data))
}

func (s *Service) callUint(ctx context.Context, method, selector string, arg *big.Int) (*big.Int, error) {
	word, err := abicodec.Uint256Word(arg)
	if err != nil {
		return nil, err
	}
	input, err := abicodec.EncodeFuncSigAndBytes32(selector, word)
	if err != nil {
		return nil, err
	}
	buf, err := s.call(ctx, method, s.opts.Governor, input)
	if err != nil {
		return nil, err
	}
	value, err := abicodec.ParseUint256(buf, 0)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	return value, nil
}

func (s *Service) call(ctx context.Context, method string, to common.Address, input string) (abicodec.Buffer, error) {
	if s.caller == nil {
		return nil, fmt.Errorf("caller is nil")
	}
	output, err := s.caller.Call(ctx, to, input)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return abicodec.NewBuffer(output)
}
