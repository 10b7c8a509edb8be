package segio

import (
	"compress/flate"
	"errors"
	"hash"
	"hash/crc32"
	"io"

	"vimagination.zapto.org/byteio"
)

const (
	gzipDeflate = 8

	flagText    = 1 << 0
	flagHCRC    = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

const (
	sectionHeader = iota
	sectionBody
	sectionTrailer
	sectionDone
)

// GzipSource decompresses a gzip stream, validating the header fields
// and the CRC-32 and length recorded in the trailer.
type GzipSource struct {
	source   *BufferedSource
	inflater *InflaterSource
	section  int
	crc      hash.Hash32
	size     int64
	closed   bool
}

// NewGzipSource returns a Source yielding the decompressed content of
// the gzip stream read from source.
func NewGzipSource(source Source) *GzipSource {
	b := buffered(source)

	return &GzipSource{
		source:   b,
		inflater: NewRawInflaterSource(b),
		crc:      crc32.NewIEEE(),
	}
}

// ReadTo implements Source. The first read consumes and validates the
// gzip header; once the deflate stream ends, the trailer is consumed
// and verified before io.EOF is returned.
func (g *GzipSource) ReadTo(sink *Buffer, byteCount int64) (int64, error) {
	if g.closed {
		return 0, ErrClosed
	}

	if byteCount < 0 {
		return 0, ErrOutOfRange
	}

	if byteCount == 0 {
		return 0, nil
	}

	if g.section == sectionHeader {
		if err := g.readHeader(); err != nil {
			return 0, err
		}

		g.section = sectionBody
	}

	if g.section == sectionBody {
		n, err := g.inflater.ReadTo(sink, byteCount)
		if n > 0 {
			sink.CopyTo(g.crc, sink.size-n, n)
			g.size += n

			return n, nil
		}

		if !errors.Is(err, io.EOF) {
			return 0, err
		}

		g.section = sectionTrailer
	}

	if g.section == sectionTrailer {
		if err := g.readTrailer(); err != nil {
			return 0, err
		}

		g.section = sectionDone
	}

	return 0, io.EOF
}

// readHeader consumes the fixed header and any optional fields the
// flag byte declares, hashing the header bytes before they are consumed
// when a header CRC is present.
func (g *GzipSource) readHeader() error {
	if err := g.source.Require(10); err != nil {
		return err
	}

	m0, _ := g.source.Buffer().Byte(0)
	m1, _ := g.source.Buffer().Byte(1)
	method, _ := g.source.Buffer().Byte(2)
	flags, _ := g.source.Buffer().Byte(3)

	if m0 != 0x1f || m1 != 0x8b || method != gzipDeflate {
		return ErrInvalidHeader
	}

	if flags&^byte(flagText|flagHCRC|flagExtra|flagName|flagComment) != 0 {
		return ErrUnsupportedFlag
	}

	fhcrc := flags&flagHCRC != 0
	if fhcrc {
		g.source.Buffer().CopyTo(g.crc, 0, 10)
	}

	r := byteio.StickyLittleEndianReader{Reader: g.source}

	r.ReadUint32() // magic, method, and flags, validated above
	r.ReadUint32() // mtime
	r.ReadUint16() // xfl, os

	if flags&flagExtra != 0 {
		if err := g.source.Require(2); err != nil {
			return err
		}

		if fhcrc {
			g.source.Buffer().CopyTo(g.crc, 0, 2)
		}

		length := int64(r.ReadUint16())

		if err := g.source.Require(length); err != nil {
			return err
		}

		if fhcrc {
			g.source.Buffer().CopyTo(g.crc, 0, length)
		}

		if err := g.source.Skip(length); err != nil {
			return err
		}
	}

	if flags&flagName != 0 {
		if err := g.skipTerminated(fhcrc); err != nil {
			return err
		}
	}

	if flags&flagComment != 0 {
		if err := g.skipTerminated(fhcrc); err != nil {
			return err
		}
	}

	if fhcrc {
		if err := g.source.Require(2); err != nil {
			return err
		}

		if uint32(r.ReadUint16()) != g.crc.Sum32()&0xffff {
			return ErrChecksum
		}

		g.crc.Reset()
	}

	return r.Err
}

// skipTerminated consumes a null-terminated header field.
func (g *GzipSource) skipTerminated(fhcrc bool) error {
	index, err := g.source.IndexByte(0)
	if err != nil {
		return err
	}

	if index == -1 {
		return io.ErrUnexpectedEOF
	}

	if fhcrc {
		g.source.Buffer().CopyTo(g.crc, 0, index+1)
	}

	return g.source.Skip(index + 1)
}

// readTrailer consumes the CRC-32 and length that follow the deflate
// stream, comparing both against the decompressed data.
func (g *GzipSource) readTrailer() error {
	if err := g.source.Require(8); err != nil {
		return err
	}

	r := byteio.StickyLittleEndianReader{Reader: g.source}

	if r.ReadUint32() != g.crc.Sum32() {
		return ErrChecksum
	}

	if r.ReadUint32() != uint32(g.size) {
		return ErrSize
	}

	return r.Err
}

// Timeout implements Source, deferring to the wrapped source.
func (g *GzipSource) Timeout() *Timeout {
	return g.source.Timeout()
}

// Close closes the decompressor and the wrapped source.
func (g *GzipSource) Close() error {
	if g.closed {
		return nil
	}

	g.closed = true

	return g.inflater.Close()
}

// GzipSink compresses the bytes written to it into a gzip stream on the
// wrapped sink. Close finishes the stream and writes the trailer.
type GzipSink struct {
	sink     *BufferedSink
	deflater *flate.Writer
	crc      hash.Hash32
	size     int64
	closed   bool
}

// NewGzipSink returns a Sink gzip-compressing everything written to it
// into sink. The fixed ten byte header is buffered immediately; no
// write reaches sink until a segment fills or the GzipSink is flushed
// or closed.
func NewGzipSink(sink Sink) *GzipSink {
	b := NewBufferedSink(sink)
	b.Buffer().Write([]byte{0x1f, 0x8b, gzipDeflate, 0, 0, 0, 0, 0, 0, 0})

	return &GzipSink{sink: b, crc: crc32.NewIEEE()}
}

// WriteFrom implements Sink, deflating byteCount bytes from source
// while folding them into the stream's CRC-32.
func (g *GzipSink) WriteFrom(source *Buffer, byteCount int64) error {
	if g.closed {
		return ErrClosed
	}

	if byteCount < 0 || byteCount > source.size {
		return ErrOutOfRange
	}

	if byteCount == 0 {
		return nil
	}

	if g.deflater == nil {
		g.deflater, _ = flate.NewWriter(g.sink, flate.DefaultCompression)
	}

	for byteCount > 0 {
		s := source.head
		count := min(int(byteCount), s.size())
		chunk := s.data[s.pos : s.pos+count]
		g.crc.Write(chunk)

		if _, err := g.deflater.Write(chunk); err != nil {
			return err
		}

		g.size += int64(count)
		s.pos += count
		source.size -= int64(count)
		byteCount -= int64(count)

		if s.pos == s.limit {
			source.head = s.pop()
			recycle(s)
		}
	}

	return nil
}

// Flush writes any pending compressed bytes with a sync flush, then
// flushes the wrapped sink.
func (g *GzipSink) Flush() error {
	if g.closed {
		return ErrClosed
	}

	if g.deflater != nil {
		if err := g.deflater.Flush(); err != nil {
			return err
		}
	}

	return g.sink.Flush()
}

// Timeout implements Sink, deferring to the wrapped sink.
func (g *GzipSink) Timeout() *Timeout {
	return g.sink.Timeout()
}

// Close finishes the deflate stream, writes the eight byte trailer, and
// closes the wrapped sink. Every step is attempted even after a
// failure; the first error observed is returned.
func (g *GzipSink) Close() error {
	if g.closed {
		return nil
	}

	g.closed = true

	if g.deflater == nil {
		g.deflater, _ = flate.NewWriter(g.sink, flate.DefaultCompression)
	}

	err := g.deflater.Close()

	if werr := g.sink.WriteInt32LE(int32(g.crc.Sum32())); werr != nil && err == nil {
		err = werr
	}

	if werr := g.sink.WriteInt32LE(int32(uint32(g.size))); werr != nil && err == nil {
		err = werr
	}

	if cerr := g.sink.Close(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}

var (
	// ErrInvalidHeader is returned when a gzip stream does not start
	// with the expected magic number and compression method.
	ErrInvalidHeader = errors.New("invalid gzip header")

	// ErrUnsupportedFlag is returned when a reserved header flag bit is
	// set.
	ErrUnsupportedFlag = errors.New("unsupported gzip flag")

	// ErrChecksum is returned when a CRC recorded in the stream does
	// not match the data it covers.
	ErrChecksum = errors.New("crc mismatch")

	// ErrSize is returned when the decompressed length recorded in the
	// trailer does not match the data.
	ErrSize = errors.New("size mismatch")
)
