package segio

import (
	"errors"
	"io"
	"testing"
)

func TestBufferedSourceRead(t *testing.T) {
	source := new(Buffer)
	source.WriteString("a")
	source.WriteString(repeat('b', SegmentSize))
	source.WriteString("c")

	in := NewBufferedSource(source)

	if in.Buffered() != 0 {
		t.Fatalf("expecting 0 buffered bytes, got %d", in.Buffered())
	}

	if source.Size() != SegmentSize+2 {
		t.Fatalf("expecting source size %d, got %d", SegmentSize+2, source.Size())
	}

	// Reading one byte buffers a full segment.
	if c, err := in.ReadByte(); err != nil || c != 'a' {
		t.Fatalf("expecting 'a', got %q (%v)", c, err)
	}

	if in.Buffered() != SegmentSize-1 {
		t.Errorf("expecting %d buffered bytes, got %d", SegmentSize-1, in.Buffered())
	}

	if source.Size() != 2 {
		t.Errorf("expecting source size 2, got %d", source.Size())
	}

	// Reading as much as possible reads the rest of that segment.
	data := make([]byte, SegmentSize*2)

	if n, err := in.Read(data); err != nil || n != SegmentSize-1 {
		t.Fatalf("expecting %d bytes, got %d (%v)", SegmentSize-1, n, err)
	} else if string(data[:n]) != repeat('b', SegmentSize-1) {
		t.Errorf("read returned wrong data")
	}

	if source.Size() != 2 {
		t.Errorf("expecting source size 2, got %d", source.Size())
	}

	// Continuing to read buffers the next segment.
	if c, err := in.ReadByte(); err != nil || c != 'b' {
		t.Fatalf("expecting 'b', got %q (%v)", c, err)
	}

	if in.Buffered() != 1 || source.Size() != 0 {
		t.Errorf("expecting 1 buffered byte and empty source, got %d and %d", in.Buffered(), source.Size())
	}

	if c, err := in.ReadByte(); err != nil || c != 'c' {
		t.Fatalf("expecting 'c', got %q (%v)", c, err)
	}

	if _, err := in.Read(data); !errors.Is(err, io.EOF) {
		t.Errorf("expecting io.EOF, got %v", err)
	}
}

func TestRequireTracksBufferFirst(t *testing.T) {
	source := new(Buffer)
	source.WriteString("bb")

	bufferedSource := NewBufferedSource(source)
	bufferedSource.Buffer().WriteString("aa")

	if err := bufferedSource.Require(2); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if bufferedSource.Buffered() != 2 || source.Size() != 2 {
		t.Errorf("expecting 2 and 2, got %d and %d", bufferedSource.Buffered(), source.Size())
	}
}

func TestRequireIncludesBufferBytes(t *testing.T) {
	source := new(Buffer)
	source.WriteString("b")

	bufferedSource := NewBufferedSource(source)
	bufferedSource.Buffer().WriteString("a")

	if err := bufferedSource.Require(2); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if str, _ := bufferedSource.Buffer().ReadString(2); str != "ab" {
		t.Errorf("expecting %q, got %q", "ab", str)
	}
}

func TestRequireInsufficientData(t *testing.T) {
	source := new(Buffer)
	source.WriteString("a")

	bufferedSource := NewBufferedSource(source)

	if err := bufferedSource.Require(2); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expecting io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestRequireReadsOneSegmentAtATime(t *testing.T) {
	source := new(Buffer)
	source.WriteString(repeat('a', SegmentSize))
	source.WriteString(repeat('b', SegmentSize))

	bufferedSource := NewBufferedSource(source)

	if err := bufferedSource.Require(2); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if source.Size() != SegmentSize || bufferedSource.Buffered() != SegmentSize {
		t.Errorf("expecting %d and %d, got %d and %d", SegmentSize, SegmentSize, source.Size(), bufferedSource.Buffered())
	}
}

func TestBufferedSkipInsufficientData(t *testing.T) {
	source := new(Buffer)
	source.WriteString("a")

	bufferedSource := NewBufferedSource(source)

	if err := bufferedSource.Skip(2); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expecting io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestBufferedSkipReadsOneSegmentAtATime(t *testing.T) {
	source := new(Buffer)
	source.WriteString(repeat('a', SegmentSize))
	source.WriteString(repeat('b', SegmentSize))

	bufferedSource := NewBufferedSource(source)

	if err := bufferedSource.Skip(2); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if source.Size() != SegmentSize || bufferedSource.Buffered() != SegmentSize-2 {
		t.Errorf("expecting %d and %d, got %d and %d", SegmentSize, SegmentSize-2, source.Size(), bufferedSource.Buffered())
	}
}

func TestBufferedSkipTracksBufferFirst(t *testing.T) {
	source := new(Buffer)
	source.WriteString("bb")

	bufferedSource := NewBufferedSource(source)
	bufferedSource.Buffer().WriteString("aa")

	if err := bufferedSource.Skip(2); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if bufferedSource.Buffered() != 0 || source.Size() != 2 {
		t.Errorf("expecting 0 and 2, got %d and %d", bufferedSource.Buffered(), source.Size())
	}
}

func TestOperationsAfterClose(t *testing.T) {
	bufferedSource := NewBufferedSource(new(Buffer))

	if err := bufferedSource.Close(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if err := bufferedSource.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %s", err)
	}

	if _, err := bufferedSource.IndexByte(1); !errors.Is(err, ErrClosed) {
		t.Errorf("expecting ErrClosed from IndexByte, got %v", err)
	}

	if err := bufferedSource.Skip(1); !errors.Is(err, ErrClosed) {
		t.Errorf("expecting ErrClosed from Skip, got %v", err)
	}

	if _, err := bufferedSource.ReadByte(); !errors.Is(err, ErrClosed) {
		t.Errorf("expecting ErrClosed from ReadByte, got %v", err)
	}

	if _, err := bufferedSource.ReadByteString(10); !errors.Is(err, ErrClosed) {
		t.Errorf("expecting ErrClosed from ReadByteString, got %v", err)
	}

	if _, err := bufferedSource.Read(make([]byte, 10)); !errors.Is(err, ErrClosed) {
		t.Errorf("expecting ErrClosed from Read, got %v", err)
	}

	if _, err := bufferedSource.ReadTo(new(Buffer), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("expecting ErrClosed from ReadTo, got %v", err)
	}
}

func TestBufferedSourceReadAll(t *testing.T) {
	source := new(Buffer)
	bufferedSource := NewBufferedSource(source)
	bufferedSource.Buffer().WriteString("abc")
	source.WriteString("def")

	sink := new(Buffer)

	if n, err := bufferedSource.ReadAll(sink); err != nil || n != 6 {
		t.Fatalf("expecting 6 bytes, got %d (%v)", n, err)
	}

	if str, _ := sink.ReadString(6); str != "abcdef" {
		t.Errorf("expecting %q, got %q", "abcdef", str)
	}

	if exhausted, err := bufferedSource.Exhausted(); err != nil || !exhausted {
		t.Errorf("expecting exhausted source, got %t (%v)", exhausted, err)
	}
}

func TestBufferedSourceReadAllExhausted(t *testing.T) {
	bufferedSource := NewBufferedSource(new(Buffer))
	sink := new(mockSink)

	if n, err := bufferedSource.ReadAll(sink); err != nil || n != 0 {
		t.Fatalf("expecting 0 bytes, got %d (%v)", n, err)
	}

	sink.assertLog(t)
}

func TestReadAllReadsOneSegmentAtATime(t *testing.T) {
	write1 := new(Buffer)
	write1.WriteString(repeat('a', SegmentSize))

	write2 := new(Buffer)
	write2.WriteString(repeat('b', SegmentSize))

	write3 := new(Buffer)
	write3.WriteString(repeat('c', SegmentSize))

	source := new(Buffer)
	source.WriteString(repeat('a', SegmentSize) + repeat('b', SegmentSize) + repeat('c', SegmentSize))

	sink := new(mockSink)
	bufferedSource := NewBufferedSource(source)

	if n, err := bufferedSource.ReadAll(sink); err != nil || n != SegmentSize*3 {
		t.Fatalf("expecting %d bytes, got %d (%v)", SegmentSize*3, n, err)
	}

	sink.assertLog(t,
		"write("+write1.String()+", 2048)",
		"write("+write2.String()+", 2048)",
		"write("+write3.String()+", 2048)",
	)
}

func TestBufferedSourceReadBytes(t *testing.T) {
	str := "abcd" + repeat('e', SegmentSize)
	buffer := new(Buffer)
	buffer.WriteString(str)

	source := NewBufferedSource(buffer)

	if p, err := source.ReadAllBytes(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	} else if string(p) != str {
		t.Errorf("read returned wrong data")
	}
}

func TestBufferedSourceReadBytesPartial(t *testing.T) {
	buffer := new(Buffer)
	buffer.WriteString("abcd")

	source := NewBufferedSource(buffer)

	if p, err := source.ReadBytes(3); err != nil {
		t.Fatalf("unexpected error: %s", err)
	} else if string(p) != "abc" {
		t.Errorf("expecting %q, got %q", "abc", p)
	}

	if str, _ := source.ReadString(1); str != "d" {
		t.Errorf("expecting %q, got %q", "d", str)
	}
}

func TestBufferedSourceReadByteString(t *testing.T) {
	buffer := new(Buffer)
	buffer.WriteString("abcd")
	buffer.WriteString(repeat('e', SegmentSize))

	source := NewBufferedSource(buffer)

	if bs, err := source.ReadByteString(3); err != nil {
		t.Fatalf("unexpected error: %s", err)
	} else if bs.UTF8() != "abc" {
		t.Errorf("expecting %q, got %q", "abc", bs.UTF8())
	}

	if str, _ := source.ReadString(1); str != "d" {
		t.Errorf("expecting %q, got %q", "d", str)
	}

	if str, err := source.ReadAllString(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	} else if str != repeat('e', SegmentSize) {
		t.Errorf("read returned wrong data")
	}
}

func TestBufferedSourceIndexByte(t *testing.T) {
	source := new(Buffer)
	source.WriteString(repeat('a', SegmentSize))
	source.WriteString("b")

	bufferedSource := NewBufferedSource(source)

	if i, err := bufferedSource.IndexByte('b'); err != nil || i != SegmentSize {
		t.Errorf("expecting %d, got %d (%v)", SegmentSize, i, err)
	}

	if i, err := bufferedSource.IndexByte('c'); err != nil || i != -1 {
		t.Errorf("expecting -1, got %d (%v)", i, err)
	}
}

func TestBufferedSourceTypedReads(t *testing.T) {
	source := new(Buffer)
	source.WriteInt16(0x1234)
	source.WriteInt32(0x12345678)
	source.WriteInt64(0x123456789abcdef0)
	source.WriteInt16LE(0x1234)
	source.WriteInt32LE(0x12345678)
	source.WriteInt64LE(0x123456789abcdef0)

	bufferedSource := NewBufferedSource(source)

	if v, err := bufferedSource.ReadInt16(); err != nil || v != 0x1234 {
		t.Errorf("expecting 0x1234, got %#x (%v)", v, err)
	}

	if v, err := bufferedSource.ReadInt32(); err != nil || v != 0x12345678 {
		t.Errorf("expecting 0x12345678, got %#x (%v)", v, err)
	}

	if v, err := bufferedSource.ReadInt64(); err != nil || v != 0x123456789abcdef0 {
		t.Errorf("expecting 0x123456789abcdef0, got %#x (%v)", v, err)
	}

	if v, err := bufferedSource.ReadInt16LE(); err != nil || v != 0x1234 {
		t.Errorf("expecting 0x1234, got %#x (%v)", v, err)
	}

	if v, err := bufferedSource.ReadInt32LE(); err != nil || v != 0x12345678 {
		t.Errorf("expecting 0x12345678, got %#x (%v)", v, err)
	}

	if v, err := bufferedSource.ReadInt64LE(); err != nil || v != 0x123456789abcdef0 {
		t.Errorf("expecting 0x123456789abcdef0, got %#x (%v)", v, err)
	}

	if _, err := bufferedSource.ReadInt16(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expecting io.ErrUnexpectedEOF, got %v", err)
	}
}
