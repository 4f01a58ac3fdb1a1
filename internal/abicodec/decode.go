package abicodec

import (
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ElementParser reads one value starting at offset.
type ElementParser[T any] func(buf Buffer, offset int) (T, error)

// ParseUint256 reads the word at offset as a big-endian unsigned integer.
func ParseUint256(buf Buffer, offset int) (*big.Int, error) {
	word, err := buf.ReadWord(offset)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(word), nil
}

// ParseOffset reads a word holding a byte displacement. It decodes exactly like
// ParseUint256; call sites use it to mark the value as a position.
func ParseOffset(buf Buffer, offset int) (*big.Int, error) {
	return ParseUint256(buf, offset)
}

// ParseAddress reads the rightmost 20 bytes of the word at offset. The 12
// leading bytes are not checked.
func ParseAddress(buf Buffer, offset int) (common.Address, error) {
	word, err := buf.ReadWord(offset)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(word[WordSize-common.AddressLength:]), nil
}

// ParseDynamicBytes reads a length word at offset followed by that many bytes.
func ParseDynamicBytes(buf Buffer, offset int) (hexutil.Bytes, error) {
	length, err := ParseUint256(buf, offset)
	if err != nil {
		return nil, err
	}
	n, err := buf.index(length, offset, "length")
	if err != nil {
		return nil, err
	}
	data, err := buf.ReadBytes(offset+WordSize, n)
	if err != nil {
		return nil, err
	}
	out := make(hexutil.Bytes, n)
	copy(out, data)
	return out, nil
}

// ParseUTF8String reads dynamic bytes at offset and requires them to be valid UTF-8.
func ParseUTF8String(buf Buffer, offset int) (string, error) {
	data, err := ParseDynamicBytes(buf, offset)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", &DecodingError{Offset: offset + WordSize, Reason: "string is not valid utf-8"}
	}
	return string(data), nil
}

// ParseDynamicArray reads a length word at offset followed by that many
// static words, handing each to parse at its own offset.
func ParseDynamicArray[T any](buf Buffer, offset int, parse ElementParser[T]) ([]T, error) {
	length, err := ParseUint256(buf, offset)
	if err != nil {
		return nil, err
	}
	n, err := buf.index(length, offset, "array length")
	if err != nil {
		return nil, err
	}
	first := offset + WordSize
	if n > (buf.Len()-first)/WordSize {
		return nil, &DecodingError{
			Offset: offset,
			Reason: fmt.Sprintf("array of %d words exceeds buffer of %d bytes", n, buf.Len()),
		}
	}

	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		value, err := parse(buf, first+i*WordSize)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, value)
	}
	return out, nil
}

// ParseDynamicArrayOfDynamic decodes an array whose elements are themselves
// dynamic. The region at offset is an array of offsets relative to the first
// slot after the array's length word. Each element is sliced out together
// with its length word and parsed at offset 0 of its own Buffer. Elements
// declaring a zero length come back absent.
func ParseDynamicArrayOfDynamic[T any](buf Buffer, offset int, parse ElementParser[T]) ([]Optional[T], error) {
	offsets, err := ParseDynamicArray(buf, offset, ParseOffset)
	if err != nil {
		return nil, err
	}

	base := offset + WordSize
	out := make([]Optional[T], 0, len(offsets))
	for i, rel := range offsets {
		relIndex, err := buf.index(rel, base+i*WordSize, "element offset")
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		start := base + relIndex
		length, err := ParseUint256(buf, start)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		n, err := buf.index(length, start, "element length")
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if n == 0 {
			out = append(out, None[T]())
			continue
		}

		elem, err := buf.Slice(start, WordSize+n)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		value, err := parse(elem, 0)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, Some(value))
	}
	return out, nil
}
