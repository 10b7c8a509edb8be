package segio

import (
	"errors"
	"io"
)

// BufferedSink wraps a Sink with an internal Buffer, adding typed
// writes. Complete segments are pushed to the wrapped sink as they
// accumulate; a partial tail waits for more bytes or a Flush.
//
// BufferedSink also implements io.Writer, io.ByteWriter, and
// io.StringWriter, so it can stand in wherever a byte stream is
// written.
type BufferedSink struct {
	sink   Sink
	buf    Buffer
	closed bool
}

// NewBufferedSink returns a BufferedSink writing to sink.
func NewBufferedSink(sink Sink) *BufferedSink {
	return &BufferedSink{sink: sink}
}

// Buffer exposes the internal buffer.
func (b *BufferedSink) Buffer() *Buffer {
	return &b.buf
}

// emit pushes any complete segments to the wrapped sink.
func (b *BufferedSink) emit() error {
	if c := b.buf.CompleteSegmentByteCount(); c > 0 {
		return b.sink.WriteFrom(&b.buf, c)
	}

	return nil
}

// WriteFrom implements Sink.
func (b *BufferedSink) WriteFrom(source *Buffer, byteCount int64) error {
	if b.closed {
		return ErrClosed
	}

	if err := b.buf.WriteFrom(source, byteCount); err != nil {
		return err
	}

	return b.emit()
}

// Write appends p, implementing io.Writer.
func (b *BufferedSink) Write(p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}

	b.buf.Write(p)

	return len(p), b.emit()
}

// WriteString appends the UTF-8 bytes of str, implementing
// io.StringWriter.
func (b *BufferedSink) WriteString(str string) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}

	b.buf.WriteString(str)

	return len(str), b.emit()
}

// WriteStringCharset appends str encoded under the named charset.
func (b *BufferedSink) WriteStringCharset(str, charset string) error {
	if b.closed {
		return ErrClosed
	}

	if err := b.buf.WriteStringCharset(str, charset); err != nil {
		return err
	}

	return b.emit()
}

// WriteByteString appends the contents of bs.
func (b *BufferedSink) WriteByteString(bs *ByteString) error {
	if b.closed {
		return ErrClosed
	}

	b.buf.WriteByteString(bs)

	return b.emit()
}

// WriteByte appends a single byte, implementing io.ByteWriter.
func (b *BufferedSink) WriteByte(c byte) error {
	if b.closed {
		return ErrClosed
	}

	b.buf.WriteByte(c)

	return b.emit()
}

// WriteInt16 appends v in big-endian order.
func (b *BufferedSink) WriteInt16(v int16) error {
	if b.closed {
		return ErrClosed
	}

	b.buf.WriteInt16(v)

	return b.emit()
}

// WriteInt16LE appends v in little-endian order.
func (b *BufferedSink) WriteInt16LE(v int16) error {
	if b.closed {
		return ErrClosed
	}

	b.buf.WriteInt16LE(v)

	return b.emit()
}

// WriteInt32 appends v in big-endian order.
func (b *BufferedSink) WriteInt32(v int32) error {
	if b.closed {
		return ErrClosed
	}

	b.buf.WriteInt32(v)

	return b.emit()
}

// WriteInt32LE appends v in little-endian order.
func (b *BufferedSink) WriteInt32LE(v int32) error {
	if b.closed {
		return ErrClosed
	}

	b.buf.WriteInt32LE(v)

	return b.emit()
}

// WriteInt64 appends v in big-endian order.
func (b *BufferedSink) WriteInt64(v int64) error {
	if b.closed {
		return ErrClosed
	}

	b.buf.WriteInt64(v)

	return b.emit()
}

// WriteInt64LE appends v in little-endian order.
func (b *BufferedSink) WriteInt64LE(v int64) error {
	if b.closed {
		return ErrClosed
	}

	b.buf.WriteInt64LE(v)

	return b.emit()
}

// WriteAll moves every byte from source into the sink, returning the
// count moved.
func (b *BufferedSink) WriteAll(source Source) (int64, error) {
	if b.closed {
		return 0, ErrClosed
	}

	var total int64

	for {
		n, err := source.ReadTo(&b.buf, SegmentSize)
		if errors.Is(err, io.EOF) {
			return total, nil
		} else if err != nil {
			return total, err
		}

		total += n

		if err := b.emit(); err != nil {
			return total, err
		}
	}
}

// Flush pushes every buffered byte to the wrapped sink, then flushes
// it.
func (b *BufferedSink) Flush() error {
	if b.closed {
		return ErrClosed
	}

	if b.buf.size > 0 {
		if err := b.sink.WriteFrom(&b.buf, b.buf.size); err != nil {
			return err
		}
	}

	return b.sink.Flush()
}

// Timeout implements Sink, deferring to the wrapped sink.
func (b *BufferedSink) Timeout() *Timeout {
	return b.sink.Timeout()
}

// Close pushes any buffered bytes and closes the wrapped sink. Both
// steps run even if the first fails; the first error observed is
// returned.
func (b *BufferedSink) Close() error {
	if b.closed {
		return nil
	}

	b.closed = true

	var err error

	if b.buf.size > 0 {
		err = b.sink.WriteFrom(&b.buf, b.buf.size)
	}

	if cerr := b.sink.Close(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}
