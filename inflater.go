package segio

import (
	"compress/flate"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// InflaterSource decompresses a DEFLATE stream read from the wrapped
// source, delivering the inflated bytes through the Source contract.
type InflaterSource struct {
	source *BufferedSource
	engine io.ReadCloser
	raw    bool
	closed bool
}

// NewInflaterSource returns a Source yielding the decompressed content
// of a ZLIB-framed DEFLATE stream.
func NewInflaterSource(source Source) *InflaterSource {
	return &InflaterSource{source: buffered(source)}
}

// NewRawInflaterSource returns a Source yielding the decompressed
// content of a headerless DEFLATE stream, the framing used inside gzip.
func NewRawInflaterSource(source Source) *InflaterSource {
	return &InflaterSource{source: buffered(source), raw: true}
}

func buffered(source Source) *BufferedSource {
	if b, ok := source.(*BufferedSource); ok {
		return b
	}

	return NewBufferedSource(source)
}

// engineInit creates the decompressor on first use, so that
// construction never reads from the source.
func (z *InflaterSource) engineInit() error {
	if z.engine != nil {
		return nil
	}

	if z.raw {
		z.engine = flate.NewReader(z.source)

		return nil
	}

	e, err := zlib.NewReader(z.source)
	if err != nil {
		return inflateError(err)
	}

	z.engine = e

	return nil
}

// ReadTo implements Source, inflating up to byteCount bytes into the
// free tail space of sink. It returns io.EOF once the compressed
// stream has been fully decoded, and io.ErrUnexpectedEOF when the
// stream is truncated.
func (z *InflaterSource) ReadTo(sink *Buffer, byteCount int64) (int64, error) {
	if z.closed {
		return 0, ErrClosed
	}

	if byteCount < 0 {
		return 0, ErrOutOfRange
	}

	if byteCount == 0 {
		return 0, nil
	}

	if err := z.engineInit(); err != nil {
		return 0, err
	}

	for {
		s := sink.writableSegment(1)
		limit := min(byteCount, int64(SegmentSize-s.limit))
		n, err := z.engine.Read(s.data[s.limit : s.limit+int(limit)])
		s.limit += n
		sink.size += int64(n)

		if n == 0 && s.pos == s.limit {
			sink.removeEmpty(s)
		}

		if n > 0 {
			return int64(n), nil
		}

		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		} else if err != nil {
			return 0, inflateError(err)
		}
	}
}

// Timeout implements Source, deferring to the wrapped source.
func (z *InflaterSource) Timeout() *Timeout {
	return z.source.Timeout()
}

// Close closes the decompressor and then the wrapped source; both are
// attempted and the first error is returned.
func (z *InflaterSource) Close() error {
	if z.closed {
		return nil
	}

	z.closed = true

	var err error

	if z.engine != nil {
		err = z.engine.Close()
	}

	if serr := z.source.Close(); serr != nil && err == nil {
		err = serr
	}

	return err
}

// inflateError marks decoder failures as encoding errors, leaving
// transport and end-of-data errors untouched.
func inflateError(err error) error {
	var (
		corrupt  flate.CorruptInputError
		internal flate.InternalError
	)

	if errors.Is(err, zlib.ErrHeader) || errors.Is(err, zlib.ErrChecksum) || errors.Is(err, zlib.ErrDictionary) || errors.As(err, &corrupt) || errors.As(err, &internal) {
		return fmt.Errorf("%w: %s", ErrEncoding, err)
	}

	return err
}
