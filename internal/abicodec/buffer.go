package abicodec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// WordSize is the size of one static ABI slot.
const WordSize = 32

// Buffer is ABI encoded data. Offsets into it are byte offsets.
type Buffer []byte

// NewBuffer decodes an even-length hex string with an optional 0x prefix.
func NewBuffer(dataHex string) (Buffer, error) {
	raw := strings.TrimPrefix(dataHex, "0x")
	if len(raw)%2 != 0 {
		return nil, &DecodingError{Reason: fmt.Sprintf("odd hex length %d", len(raw))}
	}
	data, err := hexutil.Decode("0x" + raw)
	if err != nil {
		return nil, &DecodingError{Reason: fmt.Sprintf("invalid hex: %v", err)}
	}
	return Buffer(data), nil
}

// Len returns the buffer length in bytes.
func (b Buffer) Len() int { return len(b) }

// Hex returns the 0x-prefixed hex form of the buffer.
func (b Buffer) Hex() string { return hexutil.Encode(b) }

// ReadBytes returns exactly length bytes starting at offset.
func (b Buffer) ReadBytes(offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, &DecodingError{Offset: offset, Reason: fmt.Sprintf("negative range (length %d)", length)}
	}
	if offset > len(b) || length > len(b)-offset {
		return nil, &DecodingError{
			Offset: offset,
			Reason: fmt.Sprintf("read of %d bytes exceeds buffer of %d bytes", length, len(b)),
		}
	}
	return b[offset : offset+length], nil
}

// ReadWord returns the 32-byte word at offset.
func (b Buffer) ReadWord(offset int) ([]byte, error) {
	return b.ReadBytes(offset, WordSize)
}

// Slice returns the sub-buffer [offset, offset+length) as its own Buffer.
func (b Buffer) Slice(offset, length int) (Buffer, error) {
	data, err := b.ReadBytes(offset, length)
	if err != nil {
		return nil, err
	}
	return Buffer(data), nil
}

// ReadOffset reads the word at offset as a byte position inside the buffer.
func (b Buffer) ReadOffset(offset int) (int, error) {
	value, err := ParseOffset(b, offset)
	if err != nil {
		return 0, err
	}
	return b.index(value, offset, "offset")
}

// index converts a decoded word into a position inside the buffer. Values
// beyond the buffer length can never address valid data.
func (b Buffer) index(value *big.Int, at int, what string) (int, error) {
	if value.Sign() < 0 || !value.IsUint64() || value.Uint64() > uint64(len(b)) {
		return 0, &DecodingError{Offset: at, Reason: fmt.Sprintf("%s %s out of range", what, value.String())}
	}
	return int(value.Uint64()), nil
}
