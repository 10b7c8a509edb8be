package segio

import (
	"errors"
	"fmt"
	"io"
)

// BufferedSource wraps a Source with an internal Buffer, adding typed
// reads that pull from the wrapped source on demand, one segment-full
// at a time.
//
// BufferedSource also implements io.Reader and io.ByteReader: this is
// its byte-stream view, suitable for handing to decompressors and
// parsers without risking overreads past the bytes they consume.
type BufferedSource struct {
	source Source
	buf    Buffer
	closed bool
}

// NewBufferedSource returns a BufferedSource reading from source.
func NewBufferedSource(source Source) *BufferedSource {
	return &BufferedSource{source: source}
}

// Buffer exposes the internal buffer; callers may inspect or
// pre-populate it.
func (b *BufferedSource) Buffer() *Buffer {
	return &b.buf
}

// Buffered returns the number of bytes held in the internal buffer.
func (b *BufferedSource) Buffered() int64 {
	return b.buf.size
}

// Require ensures the internal buffer holds at least byteCount bytes,
// reading from the wrapped source as needed. It returns
// io.ErrUnexpectedEOF when the source is exhausted first.
func (b *BufferedSource) Require(byteCount int64) error {
	if b.closed {
		return ErrClosed
	}

	if byteCount < 0 {
		return ErrOutOfRange
	}

	for b.buf.size < byteCount {
		if _, err := b.source.ReadTo(&b.buf, SegmentSize); err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}

			return err
		}
	}

	return nil
}

// ReadTo implements Source, filling the internal buffer with one read
// from the wrapped source when it is empty and moving up to byteCount
// bytes from it into sink.
func (b *BufferedSource) ReadTo(sink *Buffer, byteCount int64) (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}

	if byteCount < 0 {
		return 0, ErrOutOfRange
	}

	if b.buf.size == 0 {
		if _, err := b.source.ReadTo(&b.buf, SegmentSize); err != nil {
			return 0, err
		}
	}

	return b.buf.ReadTo(sink, byteCount)
}

// ReadAll streams the remainder of the source into sink, holding no
// more than one segment beyond the wrapped source's own buffering, and
// returns the total moved.
func (b *BufferedSource) ReadAll(sink Sink) (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}

	var total int64

	for {
		_, err := b.source.ReadTo(&b.buf, SegmentSize)
		if err != nil && !errors.Is(err, io.EOF) {
			return total, err
		}

		if b.buf.size > 0 {
			n := b.buf.size

			if werr := sink.WriteFrom(&b.buf, n); werr != nil {
				return total, werr
			}

			total += n
		}

		if err != nil {
			return total, nil
		}
	}
}

// Read copies buffered bytes into p, blocking on a one-segment refill
// from the wrapped source when the buffer is empty. It implements
// io.Reader.
func (b *BufferedSource) Read(p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}

	if b.buf.size == 0 {
		if _, err := b.source.ReadTo(&b.buf, SegmentSize); err != nil {
			return 0, err
		}
	}

	return b.buf.Read(p)
}

// ReadByte returns the next byte, implementing io.ByteReader.
func (b *BufferedSource) ReadByte() (byte, error) {
	if err := b.Require(1); err != nil {
		return 0, err
	}

	return b.buf.ReadByte()
}

// ReadInt16 reads a big-endian 16-bit integer.
func (b *BufferedSource) ReadInt16() (int16, error) {
	if err := b.Require(2); err != nil {
		return 0, err
	}

	return b.buf.ReadInt16()
}

// ReadInt16LE reads a little-endian 16-bit integer.
func (b *BufferedSource) ReadInt16LE() (int16, error) {
	if err := b.Require(2); err != nil {
		return 0, err
	}

	return b.buf.ReadInt16LE()
}

// ReadInt32 reads a big-endian 32-bit integer.
func (b *BufferedSource) ReadInt32() (int32, error) {
	if err := b.Require(4); err != nil {
		return 0, err
	}

	return b.buf.ReadInt32()
}

// ReadInt32LE reads a little-endian 32-bit integer.
func (b *BufferedSource) ReadInt32LE() (int32, error) {
	if err := b.Require(4); err != nil {
		return 0, err
	}

	return b.buf.ReadInt32LE()
}

// ReadInt64 reads a big-endian 64-bit integer.
func (b *BufferedSource) ReadInt64() (int64, error) {
	if err := b.Require(8); err != nil {
		return 0, err
	}

	return b.buf.ReadInt64()
}

// ReadInt64LE reads a little-endian 64-bit integer.
func (b *BufferedSource) ReadInt64LE() (int64, error) {
	if err := b.Require(8); err != nil {
		return 0, err
	}

	return b.buf.ReadInt64LE()
}

// ReadBytes reads exactly byteCount bytes into a new slice.
func (b *BufferedSource) ReadBytes(byteCount int64) ([]byte, error) {
	if err := b.Require(byteCount); err != nil {
		return nil, err
	}

	return b.buf.ReadBytes(byteCount)
}

// ReadString reads exactly byteCount bytes as a string.
func (b *BufferedSource) ReadString(byteCount int64) (string, error) {
	if err := b.Require(byteCount); err != nil {
		return "", err
	}

	return b.buf.ReadString(byteCount)
}

// ReadStringCharset reads exactly byteCount bytes, decoded under the
// named charset.
func (b *BufferedSource) ReadStringCharset(byteCount int64, charset string) (string, error) {
	if err := b.Require(byteCount); err != nil {
		return "", err
	}

	return b.buf.ReadStringCharset(byteCount, charset)
}

// ReadByteString reads exactly byteCount bytes as an immutable
// ByteString.
func (b *BufferedSource) ReadByteString(byteCount int64) (*ByteString, error) {
	if err := b.Require(byteCount); err != nil {
		return nil, err
	}

	return b.buf.ReadByteString(byteCount)
}

// ReadAllBytes reads until the source is exhausted, returning
// everything read.
func (b *BufferedSource) ReadAllBytes() ([]byte, error) {
	if b.closed {
		return nil, ErrClosed
	}

	for {
		if _, err := b.source.ReadTo(&b.buf, SegmentSize); err != nil {
			if errors.Is(err, io.EOF) {
				return b.buf.ReadBytes(b.buf.size)
			}

			return nil, err
		}
	}
}

// ReadAllString reads until the source is exhausted, returning
// everything read as a string.
func (b *BufferedSource) ReadAllString() (string, error) {
	p, err := b.ReadAllBytes()

	return string(p), err
}

// IndexByte returns the offset of the first occurrence of c, reading
// from the wrapped source until found, or -1 once it is exhausted.
func (b *BufferedSource) IndexByte(c byte) (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}

	var from int64

	for {
		if i := b.buf.IndexByte(c, from); i >= 0 {
			return i, nil
		}

		from = b.buf.size

		if _, err := b.source.ReadTo(&b.buf, SegmentSize); err != nil {
			if errors.Is(err, io.EOF) {
				return -1, nil
			}

			return -1, err
		}
	}
}

// Skip discards byteCount bytes, buffering no more than one segment at
// a time. It returns io.ErrUnexpectedEOF when the source is exhausted
// first.
func (b *BufferedSource) Skip(byteCount int64) error {
	if b.closed {
		return ErrClosed
	}

	if byteCount < 0 {
		return ErrOutOfRange
	}

	for byteCount > 0 {
		if b.buf.size == 0 {
			if _, err := b.source.ReadTo(&b.buf, SegmentSize); err != nil {
				if errors.Is(err, io.EOF) {
					return io.ErrUnexpectedEOF
				}

				return err
			}
		}

		toSkip := min(byteCount, b.buf.size)
		b.buf.Skip(toSkip)
		byteCount -= toSkip
	}

	return nil
}

// Exhausted reports whether the buffer is empty and the wrapped source
// can never deliver another byte.
func (b *BufferedSource) Exhausted() (bool, error) {
	if b.closed {
		return false, ErrClosed
	}

	if b.buf.size > 0 {
		return false, nil
	}

	if _, err := b.source.ReadTo(&b.buf, SegmentSize); err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}

		return false, err
	}

	return false, nil
}

// Timeout implements Source, deferring to the wrapped source.
func (b *BufferedSource) Timeout() *Timeout {
	return b.source.Timeout()
}

// Close closes the wrapped source and discards the internal buffer;
// every subsequent read fails with ErrClosed, and a second Close
// returns nil.
func (b *BufferedSource) Close() error {
	if b.closed {
		return nil
	}

	b.closed = true
	err := b.source.Close()
	b.buf.Reset()

	if err != nil {
		return fmt.Errorf("error closing source: %w", err)
	}

	return nil
}

// ErrClosed is returned by any operation on a closed adapter.
var ErrClosed = errors.New("closed")
