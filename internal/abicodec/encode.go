package abicodec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	selectorSize = 4
	addressSize  = 20
)

// Selector returns the 4-byte function selector of a canonical signature such
// as "state(uint256)".
func Selector(signature string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(signature))[:selectorSize])
}

// Uint256Word formats value as a 0x-prefixed 32-byte word.
func Uint256Word(value *big.Int) (string, error) {
	if value == nil || value.Sign() < 0 || value.BitLen() > 256 {
		return "", &ValidationError{Field: "uint256", Reason: fmt.Sprintf("%v does not fit in 256 bits", value)}
	}
	return fmt.Sprintf("0x%064x", value), nil
}

// EncodeFuncSigAndBytes32 encodes a call taking a single 32-byte argument.
func EncodeFuncSigAndBytes32(funcSig, word string) (string, error) {
	if err := validateFuncSig(funcSig); err != nil {
		return "", err
	}
	if err := validateBytes32(word); err != nil {
		return "", err
	}
	return funcSig + word[2:], nil
}

// EncodeFuncSigAndBytes32AndAddress encodes a call taking (bytes32, address).
func EncodeFuncSigAndBytes32AndAddress(funcSig, word, address string) (string, error) {
	if err := validateFuncSig(funcSig); err != nil {
		return "", err
	}
	if err := validateBytes32(word); err != nil {
		return "", err
	}
	if err := validateAddress(address); err != nil {
		return "", err
	}
	return funcSig + word[2:] + padAddress(address), nil
}

// EncodeFuncSigAndAddressAndBytes32 encodes a call taking (address, bytes32).
func EncodeFuncSigAndAddressAndBytes32(funcSig, address, word string) (string, error) {
	if err := validateFuncSig(funcSig); err != nil {
		return "", err
	}
	if err := validateAddress(address); err != nil {
		return "", err
	}
	if err := validateBytes32(word); err != nil {
		return "", err
	}
	return funcSig + padAddress(address) + word[2:], nil
}

// SplitCall breaks encoded call data into its selector and 32-byte argument words.
func SplitCall(payload string) (string, []string, error) {
	if len(payload) < 2+selectorSize*2 {
		return "", nil, &DecodingError{Reason: fmt.Sprintf("call data of %d characters has no selector", len(payload))}
	}
	if !strings.HasPrefix(payload, "0x") {
		return "", nil, &DecodingError{Reason: "call data missing 0x prefix"}
	}
	buf, err := NewBuffer(payload)
	if err != nil {
		return "", nil, err
	}
	args := buf[selectorSize:]
	if len(args)%WordSize != 0 {
		return "", nil, &DecodingError{
			Offset: selectorSize,
			Reason: fmt.Sprintf("arguments of %d bytes are not word aligned", len(args)),
		}
	}

	words := make([]string, 0, len(args)/WordSize)
	for i := 0; i < len(args); i += WordSize {
		words = append(words, hexutil.Encode(args[i:i+WordSize]))
	}
	return hexutil.Encode(buf[:selectorSize]), words, nil
}

func padAddress(address string) string {
	return strings.Repeat("0", (WordSize-addressSize)*2) + address[2:]
}

func validateFuncSig(funcSig string) error {
	return validateHex("function selector", funcSig, selectorSize)
}

func validateBytes32(word string) error {
	return validateHex("bytes32", word, WordSize)
}

func validateAddress(address string) error {
	return validateHex("address", address, addressSize)
}

func validateHex(field, value string, size int) error {
	if want := 2 + size*2; len(value) != want {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("expected %d characters, got %d", want, len(value))}
	}
	if value[:2] != "0x" {
		return &ValidationError{Field: field, Reason: "missing 0x prefix"}
	}
	if _, err := hexutil.Decode(value); err != nil {
		return &ValidationError{Field: field, Reason: err.Error()}
	}
	return nil
}
