package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proposalScope/internal/chain"
	"proposalScope/internal/config"
	"proposalScope/internal/governance"
)

func newQueryCmd() *cobra.Command {
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Read governor and token state over eth_call",
	}
	flags := queryCmd.PersistentFlags()
	flags.String("rpc", "", "RPC URL")
	flags.String("chain", "arb1", "chain name (arb1, eth-mainnet)")
	flags.String("governor", "", "governor address, defaults to the chain's treasury governor")
	flags.String("token", "", "token address, defaults to the chain's ARB token")
	flags.Float64("requests-per-second", 10, "RPC request rate limit")
	flags.Int("burst", 10, "RPC request burst")
	flags.String("seeds", "./data/proposals.json", "seed file for proposal-from-seed")
	flags.String("pg-dsn", "", "Postgres DSN, read seeds from the database when set")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	queryCmd.AddCommand(
		proposalQuery("state", "Proposal state code", func(ctx context.Context, s *governance.Service, id *big.Int) (interface{}, error) {
			return s.State(ctx, id)
		}),
		proposalQuery("snapshot", "Proposal snapshot block", func(ctx context.Context, s *governance.Service, id *big.Int) (interface{}, error) {
			return s.ProposalSnapshot(ctx, id)
		}),
		proposalQuery("deadline", "Proposal deadline block", func(ctx context.Context, s *governance.Service, id *big.Int) (interface{}, error) {
			return s.ProposalDeadline(ctx, id)
		}),
		proposalQuery("proposal-votes", "Against, for and abstain tallies", func(ctx context.Context, s *governance.Service, id *big.Int) (interface{}, error) {
			return s.ProposalVotes(ctx, id)
		}),
		&cobra.Command{
			Use:   "quorum <block>",
			Short: "Quorum required at a block",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(ctx context.Context, cmd *cobra.Command, s *governance.Service, args []string) (interface{}, error) {
				block, err := parseBig(args[0])
				if err != nil {
					return nil, err
				}
				return s.Quorum(ctx, block)
			}),
		},
		&cobra.Command{
			Use:   "name",
			Short: "Governance token name",
			Args:  cobra.NoArgs,
			RunE: withService(func(ctx context.Context, _ *cobra.Command, s *governance.Service, _ []string) (interface{}, error) {
				return s.TokenName(ctx)
			}),
		},
		&cobra.Command{
			Use:   "has-voted <proposal-id> <account>",
			Short: "Whether account voted on a proposal",
			Args:  cobra.ExactArgs(2),
			RunE: withService(func(ctx context.Context, _ *cobra.Command, s *governance.Service, args []string) (interface{}, error) {
				id, err := parseBig(args[0])
				if err != nil {
					return nil, err
				}
				account, err := parseAddress(args[1])
				if err != nil {
					return nil, err
				}
				return s.HasVoted(ctx, id, account)
			}),
		},
		newVotesCmd(),
		&cobra.Command{
			Use:   "votes-latest <account>",
			Short: "Voting power of account at the last L1 block seen by the chain head",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(ctx context.Context, _ *cobra.Command, s *governance.Service, args []string) (interface{}, error) {
				account, err := parseAddress(args[0])
				if err != nil {
					return nil, err
				}
				return s.GetVotesLatest(ctx, account)
			}),
		},
		&cobra.Command{
			Use:   "proposal-from-seed",
			Short: "Decode the ProposalCreated event of every seed on the selected chain",
			Args:  cobra.NoArgs,
			RunE:  runProposalFromSeed,
		},
	)
	return queryCmd
}

func newVotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "votes <account>",
		Short: "Voting power of account at --block or at a proposal's snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: withService(func(ctx context.Context, cmd *cobra.Command, s *governance.Service, args []string) (interface{}, error) {
			account, err := parseAddress(args[0])
			if err != nil {
				return nil, err
			}
			block, _ := cmd.Flags().GetString("block")
			proposal, _ := cmd.Flags().GetString("proposal")
			switch {
			case block != "" && proposal != "":
				return nil, fmt.Errorf("use either --block or --proposal")
			case block != "":
				n, err := parseBig(block)
				if err != nil {
					return nil, err
				}
				return s.GetVotes(ctx, account, n)
			case proposal != "":
				id, err := parseBig(proposal)
				if err != nil {
					return nil, err
				}
				return s.GetVotesByProposal(ctx, account, id)
			default:
				return nil, fmt.Errorf("--block or --proposal is required")
			}
		}),
	}
	cmd.Flags().String("block", "", "block number")
	cmd.Flags().String("proposal", "", "proposal id, uses its snapshot block")
	return cmd
}

type serviceFunc func(ctx context.Context, cmd *cobra.Command, s *governance.Service, args []string) (interface{}, error)

func proposalQuery(use, short string, fn func(ctx context.Context, s *governance.Service, id *big.Int) (interface{}, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <proposal-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withService(func(ctx context.Context, _ *cobra.Command, s *governance.Service, args []string) (interface{}, error) {
			id, err := parseBig(args[0])
			if err != nil {
				return nil, err
			}
			return fn(ctx, s, id)
		}),
	}
}

// withService connects to the RPC, builds a governance.Service and prints
// the result of fn as JSON.
func withService(fn serviceFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, svc, err := openService(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		logger.Debug("query", zap.String("command", cmd.Name()), zap.Strings("args", args))

		result, err := fn(ctx, cmd, svc, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}

func runProposalFromSeed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSeeds, err := openSeedSource(ctx, cfg.Seeds, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer closeSeeds()

	seeds, err := source.LoadSeeds(ctx)
	if err != nil {
		return err
	}

	client, svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	proposals := make([]*governance.ProposalCreatedEvent, 0, len(seeds))
	for _, seed := range seeds {
		ev, err := svc.ProposalFromSeed(ctx, seed)
		if err != nil {
			logger.Warn("seed skipped",
				zap.String("chain_id", seed.ChainID),
				zap.Uint64("l2_block", seed.L2Block),
				zap.String("governor", seed.Governor),
				zap.Error(err),
			)
			continue
		}
		proposals = append(proposals, ev)
	}

	logger.Info("seeds decoded", zap.Int("seeds", len(seeds)), zap.Int("proposals", len(proposals)))
	return printJSON(cmd.OutOrStdout(), proposals)
}

func openService(ctx context.Context, cfg config.QueryConfig) (*chain.Client, *governance.Service, error) {
	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc url is required")
	}
	opts, err := serviceOptions(cfg)
	if err != nil {
		return nil, nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		SupportedChains:   []uint64{opts.ChainID},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, governance.NewService(client, client, opts, governance.WithL1Blocks(client)), nil
}

// serviceOptions resolves the chain's default contracts, then applies overrides.
func serviceOptions(cfg config.QueryConfig) (governance.Options, error) {
	chainID, ok := governance.ChainID(cfg.Chain)
	if !ok {
		return governance.Options{}, fmt.Errorf("unsupported chain %q", cfg.Chain)
	}
	opts := governance.Options{ChainID: chainID}
	opts.Governor, _ = governance.ContractAddress(governance.ContractTreasuryGovernor, cfg.Chain)
	opts.Token, _ = governance.ContractAddress(governance.ContractArbToken, cfg.Chain)

	if cfg.Governor != "" {
		addr, err := parseAddress(cfg.Governor)
		if err != nil {
			return governance.Options{}, err
		}
		opts.Governor = addr
	}
	if cfg.Token != "" {
		addr, err := parseAddress(cfg.Token)
		if err != nil {
			return governance.Options{}, err
		}
		opts.Token = addr
	}
	if opts.Governor == (common.Address{}) {
		return governance.Options{}, fmt.Errorf("no governor known for chain %q, pass --governor", cfg.Chain)
	}
	return opts, nil
}

func parseBig(input string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(input, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid number: %q", input)
	}
	return n, nil
}

func parseAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}
