package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

// ErrUnsupportedChain is returned when the endpoint serves a chain outside Options.SupportedChains.
var ErrUnsupportedChain = errors.New("unsupported chain")

// Options tunes a Client.
type Options struct {
	// RequestsPerSecond caps outgoing RPC calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	// SupportedChains restricts the chain ids the client accepts. Empty accepts any.
	SupportedChains []uint64
}

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	limiter   *rate.Limiter
	chainID   uint64

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient dials rpcURL and rejects endpoints serving an unsupported chain.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	chainID, err := c.fetchChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if !chainAllowed(chainID, opts.SupportedChains) {
		rpcClient.Close()
		return nil, fmt.Errorf("%w: %#x", ErrUnsupportedChain, chainID)
	}
	c.chainID = chainID

	return c, nil
}

func chainAllowed(chainID uint64, supported []uint64) bool {
	if len(supported) == 0 {
		return true
	}
	for _, id := range supported {
		if id == chainID {
			return true
		}
	}
	return false
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain id observed when the client was created.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

func (c *Client) fetchChainID(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id does not fit in uint64: %s", id)
	}
	return id.Uint64(), nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Request performs a raw JSON-RPC call and decodes the result into result.
func (c *Client) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.rpcClient.CallContext(ctx, result, method, params...)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.ethClient.BlockNumber(ctx)
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.ethClient.HeaderByNumber(ctx, number)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.ethClient.FilterLogs(ctx, query)
}

type l1Header struct {
	L1BlockNumber *hexutil.Uint64 `json:"l1BlockNumber"`
}

// LatestL1BlockNumber reads the l1BlockNumber field Arbitrum nodes add to
// block headers.
func (c *Client) LatestL1BlockNumber(ctx context.Context) (uint64, error) {
	var head *l1Header
	if err := c.Request(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return 0, err
	}
	if head == nil {
		return 0, fmt.Errorf("latest block not found")
	}
	if head.L1BlockNumber == nil {
		return 0, fmt.Errorf("block has no l1BlockNumber")
	}
	return uint64(*head.L1BlockNumber), nil
}

type callArgs struct {
	To   common.Address `json:"to"`
	Data string         `json:"data"`
}

// Call performs an eth_call against the latest block with hex encoded input.
func (c *Client) Call(ctx context.Context, to common.Address, input string) (string, error) {
	var out hexutil.Bytes
	if err := c.Request(ctx, &out, "eth_call", callArgs{To: to, Data: input}, "latest"); err != nil {
		return "", err
	}
	return out.String(), nil
}
