package main

import (
	"bytes"
	"context"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposalScope/internal/chain"
	"proposalScope/internal/config"
	"proposalScope/internal/governance"
)

func TestServiceOptions(t *testing.T) {
	opts, err := serviceOptions(config.QueryConfig{Chain: governance.ChainArb1})
	require.NoError(t, err)
	assert.Equal(t, governance.DefaultOptions(), opts)

	override := "0x1111111111111111111111111111111111111111"
	opts, err = serviceOptions(config.QueryConfig{Chain: governance.ChainArb1, Governor: override, Token: override})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(override), opts.Governor)
	assert.Equal(t, common.HexToAddress(override), opts.Token)

	_, err = serviceOptions(config.QueryConfig{Chain: "nova"})
	assert.Error(t, err)

	_, err = serviceOptions(config.QueryConfig{Chain: governance.ChainEthMainnet})
	assert.ErrorContains(t, err, "no governor known")

	_, err = serviceOptions(config.QueryConfig{Chain: governance.ChainArb1, Token: "0x12"})
	assert.Error(t, err)
}

func TestParseBig(t *testing.T) {
	n, err := parseBig("0x2a")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), n)

	n, err = parseBig("77")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(77), n)

	for _, bad := range []string{"", "abc", "-1"} {
		_, err := parseBig(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveGovernors(t *testing.T) {
	govs, err := resolveGovernors(governance.ChainArb1, nil)
	require.NoError(t, err)
	assert.Equal(t, governance.Governors(governance.ChainArb1), govs)

	govs, err = resolveGovernors(governance.ChainArb1, []string{"0x1111111111111111111111111111111111111111"})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress("0x1111111111111111111111111111111111111111")}, govs)

	_, err = resolveGovernors(governance.ChainEthMainnet, nil)
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, governance.Votes{For: big.NewInt(3), Against: big.NewInt(1), Abstain: big.NewInt(0)}))
	assert.JSONEq(t, `{"against":1,"for":3,"abstain":0}`, buf.String())
}

type mainnetEth struct{}

func (mainnetEth) ChainId() *hexutil.Big { return (*hexutil.Big)(big.NewInt(1)) }

func TestRunChainsPinsDefaultGovernorChain(t *testing.T) {
	chains, err := runChains(governance.ChainArb1, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0xa4b1}, chains)

	chains, err = runChains(governance.ChainArb1, []string{"0x1111111111111111111111111111111111111111"})
	require.NoError(t, err)
	assert.Equal(t, governance.SupportedChainIDs(), chains)

	_, err = runChains("nova", nil)
	assert.Error(t, err)

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", mainnetEth{}))
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()
	defer srv.Stop()

	arb1, err := runChains(governance.ChainArb1, nil)
	require.NoError(t, err)
	_, err = chain.NewClient(context.Background(), httpSrv.URL, chain.Options{SupportedChains: arb1})
	assert.ErrorIs(t, err, chain.ErrUnsupportedChain)
}

func TestCheckpointNameUsesResolvedGovernors(t *testing.T) {
	govs, err := resolveGovernors(governance.ChainArb1, nil)
	require.NoError(t, err)

	name := checkpointName(0xa4b1, govs)
	assert.Equal(t,
		"proposals:42161:0xf07ded9dc292157749b6fd268e37df6ea38395b9,0x789fc99093b09ad01c34dc7251d0c89ce743e5a4",
		name)

	explicit := checkpointName(1, []common.Address{common.HexToAddress("0x1111111111111111111111111111111111111111")})
	assert.Equal(t, "proposals:1:0x1111111111111111111111111111111111111111", explicit)
}
