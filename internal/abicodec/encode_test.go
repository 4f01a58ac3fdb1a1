package abicodec

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testProposalWord = "0x5f2a2c2bab26bb5a8f8ee58c9b3ea2e4f9b7fbe2c94e5d9efa3ed5e7fa3d2f10"
	testAccount      = "0xb80170a1bcedc322bc448de1e92b39076819fa3d"
)

func TestSelector(t *testing.T) {
	tests := map[string]string{
		"name()":                    "0x06fdde03",
		"state(uint256)":            "0x3e4f49e6",
		"hasVoted(uint256,address)": "0x43859632",
		"getVotes(address,uint256)": "0xeb9019d4",
		"proposalSnapshot(uint256)": "0x2d63f693",
		"proposalDeadline(uint256)": "0xc01f9e37",
	}
	for sig, want := range tests {
		assert.Equal(t, want, Selector(sig), sig)
	}
}

func TestEncodeFuncSigAndBytes32RoundTrip(t *testing.T) {
	payload, err := EncodeFuncSigAndBytes32("0x3e4f49e6", testProposalWord)
	require.NoError(t, err)
	assert.Len(t, payload, 10+64)

	selector, args, err := SplitCall(payload)
	require.NoError(t, err)
	assert.Equal(t, "0x3e4f49e6", selector)
	assert.Equal(t, []string{testProposalWord}, args)
}

func TestEncodeWithAddressPadding(t *testing.T) {
	payload, err := EncodeFuncSigAndBytes32AndAddress("0x43859632", testProposalWord, testAccount)
	require.NoError(t, err)
	selector, args, err := SplitCall(payload)
	require.NoError(t, err)
	assert.Equal(t, "0x43859632", selector)
	require.Len(t, args, 2)
	assert.Equal(t, testProposalWord, args[0])
	assert.Equal(t, "0x000000000000000000000000"+testAccount[2:], args[1])

	payload, err = EncodeFuncSigAndAddressAndBytes32("0xeb9019d4", testAccount, testProposalWord)
	require.NoError(t, err)
	_, args, err = SplitCall(payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x000000000000000000000000" + testAccount[2:], testProposalWord}, args)

	buf, err := NewBuffer(payload[10:])
	require.NoError(t, err)
	addr, err := ParseAddress(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, testAccount, strings.ToLower(addr.Hex()))
}

func TestEncodeValidation(t *testing.T) {
	tests := []struct {
		name  string
		run   func() (string, error)
		field string
	}{
		{
			name:  "short selector",
			run:   func() (string, error) { return EncodeFuncSigAndBytes32("0x3e4f49", testProposalWord) },
			field: "function selector",
		},
		{
			name:  "selector without prefix",
			run:   func() (string, error) { return EncodeFuncSigAndBytes32("003e4f49e6", testProposalWord) },
			field: "function selector",
		},
		{
			name:  "bytes32 too short",
			run:   func() (string, error) { return EncodeFuncSigAndBytes32("0x3e4f49e6", "0x01") },
			field: "bytes32",
		},
		{
			name: "bytes32 without prefix",
			run: func() (string, error) {
				return EncodeFuncSigAndBytes32("0x3e4f49e6", "00"+testProposalWord[2:])
			},
			field: "bytes32",
		},
		{
			name: "bytes32 not hex",
			run: func() (string, error) {
				return EncodeFuncSigAndBytes32("0x3e4f49e6", "0x"+strings.Repeat("zz", 32))
			},
			field: "bytes32",
		},
		{
			name: "address too long",
			run: func() (string, error) {
				return EncodeFuncSigAndBytes32AndAddress("0x43859632", testProposalWord, testAccount+"00")
			},
			field: "address",
		},
		{
			name: "address without prefix",
			run: func() (string, error) {
				return EncodeFuncSigAndAddressAndBytes32("0xeb9019d4", "00"+testAccount[2:], testProposalWord)
			},
			field: "address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.run()
			assert.Empty(t, out)
			require.ErrorIs(t, err, ErrInvalidInput)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestUint256Word(t *testing.T) {
	word, err := Uint256Word(big.NewInt(255))
	require.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("0", 62)+"ff", word)

	_, err = Uint256Word(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = Uint256Word(new(big.Int).Lsh(big.NewInt(1), 256))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSplitCallRejectsMisaligned(t *testing.T) {
	_, _, err := SplitCall("0x3e4f49e6" + "00")
	assert.ErrorIs(t, err, ErrMalformed)
	_, _, err = SplitCall("0x3e4f")
	assert.ErrorIs(t, err, ErrMalformed)
}
