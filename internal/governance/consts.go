package governance

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Supported chain names.
const (
	ChainArb1       = "arb1"
	ChainEthMainnet = "eth-mainnet"
)

// Contract keys.
const (
	ContractArbToken         = "arb-token"
	ContractCoreGovernor     = "core-governor"
	ContractTreasuryGovernor = "treasury-governor"
)

var supportedChains = map[string]uint64{
	ChainArb1:       0xa4b1,
	ChainEthMainnet: 0x1,
}

// Deployment addresses of the Arbitrum DAO contracts, keyed by contract then chain.
var contracts = map[string]map[string]common.Address{
	ContractArbToken: {
		ChainEthMainnet: common.HexToAddress("0xB50721BCf8d664c30412Cfbc6cf7a15145234ad1"),
		ChainArb1:       common.HexToAddress("0x912CE59144191C1204E64559FE8253a0e49E6548"),
	},
	ContractCoreGovernor: {
		ChainArb1: common.HexToAddress("0xf07DeD9dC292157749B6Fd268E37DF6EA38395B9"),
	},
	ContractTreasuryGovernor: {
		ChainArb1: common.HexToAddress("0x789fC99093B09aD01C34DC7251D0C89ce743e5a4"),
	},
}

// Function selectors of the governor and token read methods.
const (
	SelectorName             = "0x06fdde03"
	SelectorQuorum           = "0xf8ce560a"
	SelectorProposalDeadline = "0xc01f9e37"
	SelectorProposalSnapshot = "0x2d63f693"
	SelectorProposalVotes    = "0x544ffc9c"
	SelectorState            = "0x3e4f49e6"
	SelectorHasVoted         = "0x43859632"
	SelectorGetVotes         = "0xeb9019d4"
)

// ProposalCreatedTopic is topic0 of
// ProposalCreated(uint256,address,address[],uint256[],string[],bytes[],uint256,uint256,string).
var ProposalCreatedTopic = common.HexToHash("0x7d84a6263ae0d98d3329bd7b46bb4e8d6f98cd35a7adb45c274c8b7fd5ebd5e0")

// ChainID returns the chain id registered under name.
func ChainID(name string) (uint64, bool) {
	id, ok := supportedChains[name]
	return id, ok
}

// SupportedChainIDs returns the ids of every supported chain in ascending order.
func SupportedChainIDs() []uint64 {
	ids := make([]uint64, 0, len(supportedChains))
	for _, id := range supportedChains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsChainSupported reports whether chainID belongs to a supported chain.
func IsChainSupported(chainID *big.Int) bool {
	if chainID == nil || !chainID.IsUint64() {
		return false
	}
	for _, id := range supportedChains {
		if id == chainID.Uint64() {
			return true
		}
	}
	return false
}

// ContractAddress looks up a deployment address.
func ContractAddress(contract, chain string) (common.Address, bool) {
	byChain, ok := contracts[contract]
	if !ok {
		return common.Address{}, false
	}
	addr, ok := byChain[chain]
	return addr, ok
}

// Governors returns the governor contracts deployed on chain.
func Governors(chain string) []common.Address {
	var out []common.Address
	for _, key := range []string{ContractCoreGovernor, ContractTreasuryGovernor} {
		if addr, ok := ContractAddress(key, chain); ok {
			out = append(out, addr)
		}
	}
	return out
}
