// Package segio provides a segmented, pooling byte buffer and the
// streaming primitives for moving bytes between producers and consumers
// without per-byte allocation or copy costs.
package segio // import "vimagination.zapto.org/segio"

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"strings"
)

// Buffer is a mutable FIFO queue of bytes held in a ring of pooled
// segments. The zero value is an empty buffer ready for use.
//
// Buffer implements both Source and Sink; transfers between buffers
// move whole segments by pointer instead of copying bytes where
// possible. It also implements io.Reader, io.Writer, io.ByteReader,
// io.ByteWriter, io.StringWriter, io.ReaderFrom, and io.WriterTo, so a
// Buffer can stand in wherever a byte stream is expected.
//
// A Buffer belongs to a single goroutine at a time; distinct Buffers
// may be used concurrently, including clones sharing segment data.
type Buffer struct {
	head *segment
	size int64
}

// Size returns the number of readable bytes.
func (b *Buffer) Size() int64 {
	return b.size
}

// writableSegment returns a tail segment with at least minimumCapacity
// writable bytes after limit, appending a fresh one when the current
// tail cannot accept the bytes.
func (b *Buffer) writableSegment(minimumCapacity int) *segment {
	if minimumCapacity < 1 || minimumCapacity > SegmentSize {
		panic("segio: minimumCapacity out of range")
	}

	if b.head == nil {
		b.head = take()
		b.head.next = b.head
		b.head.prev = b.head

		return b.head
	}

	tail := b.head.prev
	if tail.limit+minimumCapacity > SegmentSize || !tail.owner {
		tail = tail.push(take())
	}

	return tail
}

// removeEmpty detaches and recycles s, fixing head when s led the ring.
func (b *Buffer) removeEmpty(s *segment) {
	next := s.pop()
	if b.head == s {
		b.head = next
	}

	recycle(s)
}

// Write appends p to the buffer, implementing io.Writer. It cannot
// fail.
func (b *Buffer) Write(p []byte) (int, error) {
	n := len(p)

	for len(p) > 0 {
		s := b.writableSegment(1)
		c := copy(s.data[s.limit:], p)
		s.limit += c
		b.size += int64(c)
		p = p[c:]
	}

	return n, nil
}

// WriteString appends the UTF-8 bytes of str, implementing
// io.StringWriter. It cannot fail.
func (b *Buffer) WriteString(str string) (int, error) {
	n := len(str)

	for len(str) > 0 {
		s := b.writableSegment(1)
		c := copy(s.data[s.limit:], str)
		s.limit += c
		b.size += int64(c)
		str = str[c:]
	}

	return n, nil
}

// WriteByteString appends the contents of bs.
func (b *Buffer) WriteByteString(bs *ByteString) {
	b.Write(bs.data)
}

// WriteStringCharset appends str encoded under the named charset;
// "utf-8" and "utf-32" (big-endian, no byte-order mark) are supported.
func (b *Buffer) WriteStringCharset(str, charset string) error {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8":
		b.WriteString(str)
	case "utf-32", "utf-32be", "utf32":
		for _, r := range str {
			b.WriteInt32(int32(r))
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEncoding, charset)
	}

	return nil
}

// WriteByte appends a single byte, implementing io.ByteWriter. It
// cannot fail.
func (b *Buffer) WriteByte(c byte) error {
	s := b.writableSegment(1)
	s.data[s.limit] = c
	s.limit++
	b.size++

	return nil
}

// WriteInt16 appends v in big-endian order.
func (b *Buffer) WriteInt16(v int16) {
	s := b.writableSegment(2)
	s.data[s.limit] = byte(v >> 8)
	s.data[s.limit+1] = byte(v)
	s.limit += 2
	b.size += 2
}

// WriteInt16LE appends v in little-endian order.
func (b *Buffer) WriteInt16LE(v int16) {
	b.WriteInt16(int16(bits.ReverseBytes16(uint16(v))))
}

// WriteInt32 appends v in big-endian order.
func (b *Buffer) WriteInt32(v int32) {
	s := b.writableSegment(4)
	s.data[s.limit] = byte(v >> 24)
	s.data[s.limit+1] = byte(v >> 16)
	s.data[s.limit+2] = byte(v >> 8)
	s.data[s.limit+3] = byte(v)
	s.limit += 4
	b.size += 4
}

// WriteInt32LE appends v in little-endian order.
func (b *Buffer) WriteInt32LE(v int32) {
	b.WriteInt32(int32(bits.ReverseBytes32(uint32(v))))
}

// WriteInt64 appends v in big-endian order.
func (b *Buffer) WriteInt64(v int64) {
	s := b.writableSegment(8)

	for i := 0; i < 8; i++ {
		s.data[s.limit+i] = byte(v >> (56 - 8*i))
	}

	s.limit += 8
	b.size += 8
}

// WriteInt64LE appends v in little-endian order.
func (b *Buffer) WriteInt64LE(v int64) {
	b.WriteInt64(int64(bits.ReverseBytes64(uint64(v))))
}

// Read removes up to len(p) bytes into p, implementing io.Reader. At
// most one segment is copied per call; an empty buffer returns io.EOF.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.size == 0 {
		return 0, io.EOF
	}

	s := b.head
	n := copy(p, s.data[s.pos:s.limit])
	s.pos += n
	b.size -= int64(n)

	if s.pos == s.limit {
		b.head = s.pop()
		recycle(s)
	}

	return n, nil
}

// ReadByte removes and returns the first byte, implementing
// io.ByteReader. An empty buffer returns io.ErrUnexpectedEOF.
func (b *Buffer) ReadByte() (byte, error) {
	if b.size == 0 {
		return 0, io.ErrUnexpectedEOF
	}

	s := b.head
	c := s.data[s.pos]
	s.pos++
	b.size--

	if s.pos == s.limit {
		b.head = s.pop()
		recycle(s)
	}

	return c, nil
}

// ReadInt16 removes a big-endian 16-bit integer.
func (b *Buffer) ReadInt16() (int16, error) {
	if b.size < 2 {
		return 0, io.ErrUnexpectedEOF
	}

	s := b.head

	if s.size() < 2 {
		hi, _ := b.ReadByte()
		lo, _ := b.ReadByte()

		return int16(uint16(hi)<<8 | uint16(lo)), nil
	}

	v := int16(uint16(s.data[s.pos])<<8 | uint16(s.data[s.pos+1]))
	s.pos += 2
	b.size -= 2

	if s.pos == s.limit {
		b.head = s.pop()
		recycle(s)
	}

	return v, nil
}

// ReadInt16LE removes a little-endian 16-bit integer.
func (b *Buffer) ReadInt16LE() (int16, error) {
	v, err := b.ReadInt16()

	return int16(bits.ReverseBytes16(uint16(v))), err
}

// ReadInt32 removes a big-endian 32-bit integer.
func (b *Buffer) ReadInt32() (int32, error) {
	if b.size < 4 {
		return 0, io.ErrUnexpectedEOF
	}

	s := b.head

	if s.size() < 4 {
		hi, _ := b.ReadInt16()
		lo, _ := b.ReadInt16()

		return int32(uint32(uint16(hi))<<16 | uint32(uint16(lo))), nil
	}

	v := int32(uint32(s.data[s.pos])<<24 | uint32(s.data[s.pos+1])<<16 | uint32(s.data[s.pos+2])<<8 | uint32(s.data[s.pos+3]))
	s.pos += 4
	b.size -= 4

	if s.pos == s.limit {
		b.head = s.pop()
		recycle(s)
	}

	return v, nil
}

// ReadInt32LE removes a little-endian 32-bit integer.
func (b *Buffer) ReadInt32LE() (int32, error) {
	v, err := b.ReadInt32()

	return int32(bits.ReverseBytes32(uint32(v))), err
}

// ReadInt64 removes a big-endian 64-bit integer.
func (b *Buffer) ReadInt64() (int64, error) {
	if b.size < 8 {
		return 0, io.ErrUnexpectedEOF
	}

	s := b.head

	if s.size() < 8 {
		hi, _ := b.ReadInt32()
		lo, _ := b.ReadInt32()

		return int64(uint64(uint32(hi))<<32 | uint64(uint32(lo))), nil
	}

	var v uint64

	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(s.data[s.pos+i])
	}

	s.pos += 8
	b.size -= 8

	if s.pos == s.limit {
		b.head = s.pop()
		recycle(s)
	}

	return int64(v), nil
}

// ReadInt64LE removes a little-endian 64-bit integer.
func (b *Buffer) ReadInt64LE() (int64, error) {
	v, err := b.ReadInt64()

	return int64(bits.ReverseBytes64(uint64(v))), err
}

// ReadBytes removes byteCount bytes and returns them in a new slice,
// returning io.ErrUnexpectedEOF when fewer are held.
func (b *Buffer) ReadBytes(byteCount int64) ([]byte, error) {
	if byteCount < 0 {
		return nil, ErrOutOfRange
	}

	if byteCount > b.size {
		return nil, io.ErrUnexpectedEOF
	}

	p := make([]byte, byteCount)

	for o := 0; o < len(p); {
		n, _ := b.Read(p[o:])
		o += n
	}

	return p, nil
}

// ReadString removes byteCount bytes and returns them as a string.
func (b *Buffer) ReadString(byteCount int64) (string, error) {
	p, err := b.ReadBytes(byteCount)

	return string(p), err
}

// ReadStringCharset removes byteCount bytes and decodes them under the
// named charset; "utf-8" and "utf-32" (big-endian) are supported. A
// UTF-32 byte count not divisible by four fails with ErrEncoding.
func (b *Buffer) ReadStringCharset(byteCount int64, charset string) (string, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8":
		return b.ReadString(byteCount)
	case "utf-32", "utf-32be", "utf32":
		if byteCount%4 != 0 {
			return "", fmt.Errorf("%w: utf-32 length %d not divisible by 4", ErrEncoding, byteCount)
		}

		p, err := b.ReadBytes(byteCount)
		if err != nil {
			return "", err
		}

		var str strings.Builder

		for i := 0; i < len(p); i += 4 {
			str.WriteRune(rune(uint32(p[i])<<24 | uint32(p[i+1])<<16 | uint32(p[i+2])<<8 | uint32(p[i+3])))
		}

		return str.String(), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEncoding, charset)
	}
}

// ReadByteString removes byteCount bytes as an immutable ByteString.
func (b *Buffer) ReadByteString(byteCount int64) (*ByteString, error) {
	p, err := b.ReadBytes(byteCount)
	if err != nil {
		return nil, err
	}

	return &ByteString{data: p}, nil
}

// Byte returns the byte at offset i without consuming it.
func (b *Buffer) Byte(i int64) (byte, error) {
	if i < 0 || i >= b.size {
		return 0, ErrOutOfRange
	}

	s := b.head

	for i >= int64(s.size()) {
		i -= int64(s.size())
		s = s.next
	}

	return s.data[s.pos+int(i)], nil
}

// IndexByte returns the offset of the first occurrence of c at or after
// fromIndex, or -1 when c is absent.
func (b *Buffer) IndexByte(c byte, fromIndex int64) int64 {
	if fromIndex < 0 {
		fromIndex = 0
	}

	s := b.head
	if s == nil {
		return -1
	}

	var offset int64

	for {
		if n := int64(s.size()); fromIndex < n {
			if i := bytes.IndexByte(s.data[s.pos+int(fromIndex):s.limit], c); i >= 0 {
				return offset + fromIndex + int64(i)
			}

			offset += n
			fromIndex = 0
		} else {
			offset += n
			fromIndex -= n
		}

		if s = s.next; s == b.head {
			return -1
		}
	}
}

// Skip discards byteCount bytes from the head of the buffer, recycling
// segments as they empty.
func (b *Buffer) Skip(byteCount int64) error {
	if byteCount < 0 {
		return ErrOutOfRange
	}

	for byteCount > 0 {
		s := b.head
		if s == nil {
			return io.ErrUnexpectedEOF
		}

		toSkip := int(min(byteCount, int64(s.size())))
		s.pos += toSkip
		b.size -= int64(toSkip)
		byteCount -= int64(toSkip)

		if s.pos == s.limit {
			b.head = s.pop()
			recycle(s)
		}
	}

	return nil
}

// Clone returns a copy sharing segment data with b. Reads from and
// writes to either buffer never affect the other.
func (b *Buffer) Clone() *Buffer {
	result := new(Buffer)

	if b.head == nil {
		return result
	}

	result.head = b.head.sharedCopy()
	result.head.next = result.head
	result.head.prev = result.head

	for s := b.head.next; s != b.head; s = s.next {
		result.head.prev.push(s.sharedCopy())
	}

	result.size = b.size

	return result
}

// Equal reports whether b and other hold the same byte sequence,
// whatever the segment layouts.
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil || b.size != other.size {
		return false
	}

	if b.size == 0 {
		return true
	}

	sa, sb := b.head, other.head
	pa, pb := sa.pos, sb.pos

	for remaining := b.size; remaining > 0; {
		count := min(sa.limit-pa, sb.limit-pb)

		if !bytes.Equal(sa.data[pa:pa+count], sb.data[pb:pb+count]) {
			return false
		}

		pa += count
		pb += count
		remaining -= int64(count)

		if pa == sa.limit {
			sa = sa.next
			pa = sa.pos
		}

		if pb == sb.limit {
			sb = sb.next
			pb = sb.pos
		}
	}

	return true
}

// Hash returns a 31-polynomial hash of the byte sequence, invariant
// under segment layout.
func (b *Buffer) Hash() uint32 {
	h := uint32(1)

	if b.head == nil {
		return h
	}

	s := b.head

	for {
		for i := s.pos; i < s.limit; i++ {
			h = 31*h + uint32(s.data[i])
		}

		if s = s.next; s == b.head {
			return h
		}
	}
}

// CopyTo writes byteCount bytes starting at offset to w without
// consuming them.
func (b *Buffer) CopyTo(w io.Writer, offset, byteCount int64) error {
	if offset < 0 || byteCount < 0 || offset+byteCount > b.size {
		return ErrOutOfRange
	}

	if byteCount == 0 {
		return nil
	}

	s := b.head

	for offset >= int64(s.size()) {
		offset -= int64(s.size())
		s = s.next
	}

	for byteCount > 0 {
		pos := s.pos + int(offset)
		count := min(int64(s.limit-pos), byteCount)

		if _, err := w.Write(s.data[pos : pos+int(count)]); err != nil {
			return fmt.Errorf("error copying to writer: %w", err)
		}

		byteCount -= count
		offset = 0
		s = s.next
	}

	return nil
}

// WriteTo drains the buffer into w, implementing io.WriterTo. A partial
// drain composes as io.CopyN(w, b, byteCount).
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	var written int64

	for b.head != nil {
		s := b.head
		n, err := w.Write(s.data[s.pos:s.limit])
		s.pos += n
		b.size -= int64(n)
		written += int64(n)

		if s.pos == s.limit {
			b.head = s.pop()
			recycle(s)
		}

		if err != nil {
			return written, fmt.Errorf("error writing to writer: %w", err)
		}
	}

	return written, nil
}

// ReadFrom fills the buffer from r until EOF, implementing
// io.ReaderFrom. A bounded fill composes as io.CopyN(b, r, byteCount).
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	var total int64

	for {
		s := b.writableSegment(1)
		n, err := r.Read(s.data[s.limit:])
		s.limit += n
		b.size += int64(n)
		total += int64(n)

		if n == 0 && s.pos == s.limit {
			b.removeEmpty(s)
		}

		if errors.Is(err, io.EOF) {
			return total, nil
		} else if err != nil {
			return total, err
		}
	}
}

// ReadTo implements Source, moving up to byteCount bytes into sink by
// splicing segments. An empty buffer returns io.EOF, even for a zero
// byteCount, for consistency with byte-stream semantics.
func (b *Buffer) ReadTo(sink *Buffer, byteCount int64) (int64, error) {
	if byteCount < 0 {
		return 0, ErrOutOfRange
	}

	if b.size == 0 {
		return 0, io.EOF
	}

	byteCount = min(byteCount, b.size)

	if err := sink.WriteFrom(b, byteCount); err != nil {
		return 0, err
	}

	return byteCount, nil
}

// ReadFully moves exactly byteCount bytes into sink, returning
// io.ErrUnexpectedEOF when fewer are held.
func (b *Buffer) ReadFully(sink *Buffer, byteCount int64) error {
	if byteCount > b.size {
		return io.ErrUnexpectedEOF
	}

	return sink.WriteFrom(b, byteCount)
}

// WriteFrom implements Sink, moving byteCount bytes from the head of
// source to the tail of b.
//
// Whole segments move by pointer. A transfer of part of a segment
// either lands in free tail space, or splits the source segment —
// aliasing its array when the prefix is large, copying when small — so
// that big moves stay O(1) per segment while small moves cannot litter
// the ring with fragments. Moved segments merge into the tail whenever
// the tail is an owner segment with room for them (counting the space
// before pos only when the tail is not shared).
func (b *Buffer) WriteFrom(source *Buffer, byteCount int64) error {
	if source == nil || source == b {
		return ErrOutOfRange
	}

	if byteCount < 0 || byteCount > source.size {
		return ErrOutOfRange
	}

	for byteCount > 0 {
		if byteCount < int64(source.head.size()) {
			var tail *segment

			if b.head != nil {
				tail = b.head.prev
			}

			if tail != nil && tail.owner {
				available := int64(SegmentSize - tail.limit)
				if !tail.shared {
					available += int64(tail.pos)
				}

				if byteCount <= available {
					source.head.writeTo(tail, int(byteCount))
					source.size -= byteCount
					b.size += byteCount

					return nil
				}
			}

			source.head = source.head.split(int(byteCount))
		}

		s := source.head
		moved := int64(s.size())
		source.head = s.pop()

		if b.head == nil {
			b.head = s
			s.next = s
			s.prev = s
		} else {
			b.head.prev.push(s).coalesce()
		}

		source.size -= moved
		b.size += moved
		byteCount -= moved
	}

	return nil
}

// ReadAll moves every byte into sink as a single write, returning the
// count moved.
func (b *Buffer) ReadAll(sink Sink) (int64, error) {
	byteCount := b.size

	if byteCount > 0 {
		if err := sink.WriteFrom(b, byteCount); err != nil {
			return 0, err
		}
	}

	return byteCount, nil
}

// WriteAll moves every byte from source, one segment at a time,
// returning the count moved.
func (b *Buffer) WriteAll(source Source) (int64, error) {
	var total int64

	for {
		n, err := source.ReadTo(b, SegmentSize)
		if errors.Is(err, io.EOF) {
			return total, nil
		} else if err != nil {
			return total, err
		}

		total += n
	}
}

// CompleteSegmentByteCount returns the bytes held in every segment
// except a partially filled tail that can still take appends — the
// amount a buffered sink can push on without breaking up a partial tail.
func (b *Buffer) CompleteSegmentByteCount() int64 {
	result := b.size
	if result == 0 {
		return 0
	}

	if tail := b.head.prev; tail.limit < SegmentSize && tail.owner {
		result -= int64(tail.size())
	}

	return result
}

// Reset discards the contents of the buffer, recycling its segments.
func (b *Buffer) Reset() {
	b.Skip(b.size)
}

// Flush implements Sink and is a no-op.
func (b *Buffer) Flush() error {
	return nil
}

// Close implements Source and Sink and is a no-op; a Buffer holds no
// resources beyond its recyclable segments.
func (b *Buffer) Close() error {
	return nil
}

// Timeout implements Source and Sink, returning a shared no-op timeout.
func (b *Buffer) Timeout() *Timeout {
	return noTimeout
}

// String describes the buffer without consuming it; contents above 16
// bytes are summarised by an MD5 checksum of the logical byte sequence.
func (b *Buffer) String() string {
	if b.size == 0 {
		return "Buffer[size=0]"
	}

	if b.size <= 16 {
		data := make([]byte, 0, b.size)
		s := b.head

		for {
			data = append(data, s.data[s.pos:s.limit]...)

			if s = s.next; s == b.head {
				break
			}
		}

		return fmt.Sprintf("Buffer[size=%d data=%s]", b.size, hex.EncodeToString(data))
	}

	h := md5.New()
	s := b.head

	for {
		h.Write(s.data[s.pos:s.limit])

		if s = s.next; s == b.head {
			break
		}
	}

	return fmt.Sprintf("Buffer[size=%d md5=%x]", b.size, h.Sum(nil))
}

var (
	// ErrOutOfRange is returned when an offset or count violates the
	// bounds of the operation.
	ErrOutOfRange = errors.New("out of range")

	// ErrUnsupportedEncoding is returned for an unrecognised charset.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrEncoding is returned for bytes malformed under the declared
	// encoding.
	ErrEncoding = errors.New("encoding error")
)
