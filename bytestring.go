package segio

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// ByteString is an immutable sequence of bytes with a lazily memoised
// hash.
type ByteString struct {
	data     []byte
	hashCode uint32
}

// NewByteString returns a ByteString holding a copy of data.
func NewByteString(data []byte) *ByteString {
	return &ByteString{data: bytes.Clone(data)}
}

// EncodeUTF8 returns a ByteString holding the UTF-8 encoding of s.
func EncodeUTF8(s string) *ByteString {
	return &ByteString{data: []byte(s)}
}

// DecodeBase64 decodes a base64 string, ignoring whitespace and
// trailing padding and accepting the URL-safe alphabet alongside the
// standard one.
func DecodeBase64(s string) (*ByteString, error) {
	var clean strings.Builder

	clean.Grow(len(s))

	for _, c := range []byte(s) {
		switch c {
		case ' ', '\t', '\r', '\n':
		case '-':
			clean.WriteByte('+')
		case '_':
			clean.WriteByte('/')
		default:
			clean.WriteByte(c)
		}
	}

	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(clean.String(), "="))
	if err != nil {
		return nil, fmt.Errorf("error decoding base64: %w", err)
	}

	return &ByteString{data: data}, nil
}

// DecodeHex decodes a hexadecimal string of even length; either letter
// case is accepted.
func DecodeHex(s string) (*ByteString, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("error decoding hex: %w", err)
	}

	return &ByteString{data: data}, nil
}

// Size returns the number of bytes held.
func (b *ByteString) Size() int {
	return len(b.data)
}

// Byte returns the byte at index i.
func (b *ByteString) Byte(i int) byte {
	return b.data[i]
}

// UTF8 returns the bytes interpreted as a UTF-8 string.
func (b *ByteString) UTF8() string {
	return string(b.data)
}

// Base64 returns the standard, padded base64 encoding.
func (b *ByteString) Base64() string {
	return base64.StdEncoding.EncodeToString(b.data)
}

// Hex returns the lowercase hexadecimal encoding.
func (b *ByteString) Hex() string {
	return hex.EncodeToString(b.data)
}

// Substring returns the bytes in [begin, end), sharing the underlying
// data.
func (b *ByteString) Substring(begin, end int) *ByteString {
	if begin == 0 && end == len(b.data) {
		return b
	}

	return &ByteString{data: b.data[begin:end]}
}

// ToASCIILower returns a ByteString with the bytes 'A'-'Z' replaced by
// their lowercase equivalents, returning b unchanged when none occur.
func (b *ByteString) ToASCIILower() *ByteString {
	return b.mapASCII('A', 'Z', 'a'-'A')
}

// ToASCIIUpper returns a ByteString with the bytes 'a'-'z' replaced by
// their uppercase equivalents, returning b unchanged when none occur.
func (b *ByteString) ToASCIIUpper() *ByteString {
	return b.mapASCII('a', 'z', int('A')-int('a'))
}

func (b *ByteString) mapASCII(lo, hi byte, diff int) *ByteString {
	for i, c := range b.data {
		if c < lo || c > hi {
			continue
		}

		mapped := bytes.Clone(b.data)

		for ; i < len(mapped); i++ {
			if c = mapped[i]; c >= lo && c <= hi {
				mapped[i] = byte(int(c) + diff)
			}
		}

		return &ByteString{data: mapped}
	}

	return b
}

// Equal reports whether b and other hold the same bytes.
func (b *ByteString) Equal(other *ByteString) bool {
	return other != nil && bytes.Equal(b.data, other.data)
}

// Hash returns a 31-polynomial hash of the bytes, computed once and
// memoised.
func (b *ByteString) Hash() uint32 {
	if b.hashCode == 0 {
		h := uint32(1)

		for _, c := range b.data {
			h = 31*h + uint32(c)
		}

		b.hashCode = h
	}

	return b.hashCode
}

// String describes the ByteString; large contents are summarised by an
// MD5 checksum.
func (b *ByteString) String() string {
	if len(b.data) == 0 {
		return "ByteString[size=0]"
	}

	if len(b.data) <= 16 {
		return fmt.Sprintf("ByteString[size=%d data=%s]", len(b.data), b.Hex())
	}

	return fmt.Sprintf("ByteString[size=%d md5=%x]", len(b.data), md5.Sum(b.data))
}
