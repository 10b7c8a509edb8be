package segio

import "io"

// NewSource returns a Source reading from r. The source owns a Timeout
// whose deadline is checked before every read of r; Close closes r when
// it is an io.Closer. Files and network connections satisfy io.Reader,
// so this is also the constructor for those transports.
func NewSource(r io.Reader) Source {
	return &readerSource{r: r}
}

type readerSource struct {
	r       io.Reader
	timeout Timeout
	closed  bool
}

func (r *readerSource) ReadTo(sink *Buffer, byteCount int64) (int64, error) {
	if byteCount < 0 {
		return 0, ErrOutOfRange
	}

	if byteCount == 0 {
		return 0, nil
	}

	for {
		if err := r.timeout.Check(); err != nil {
			return 0, err
		}

		s := sink.writableSegment(1)
		limit := min(byteCount, int64(SegmentSize-s.limit))
		n, err := r.r.Read(s.data[s.limit : s.limit+int(limit)])
		s.limit += n
		sink.size += int64(n)

		if n == 0 && s.pos == s.limit {
			sink.removeEmpty(s)
		}

		if n > 0 {
			return int64(n), nil
		}

		if err != nil {
			return 0, err
		}
	}
}

func (r *readerSource) Timeout() *Timeout {
	return &r.timeout
}

func (r *readerSource) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// NewSink returns a Sink writing to w. The sink owns a Timeout whose
// deadline is checked before every write of w; Flush forwards to w's
// own Flush method when it has one, and Close closes w when it is an
// io.Closer.
func NewSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

type writerSink struct {
	w       io.Writer
	timeout Timeout
	closed  bool
}

func (w *writerSink) WriteFrom(source *Buffer, byteCount int64) error {
	if byteCount < 0 || byteCount > source.size {
		return ErrOutOfRange
	}

	for byteCount > 0 {
		if err := w.timeout.Check(); err != nil {
			return err
		}

		s := source.head
		count := min(int(byteCount), s.size())
		n, err := w.w.Write(s.data[s.pos : s.pos+count])
		s.pos += n
		source.size -= int64(n)
		byteCount -= int64(n)

		if s.pos == s.limit {
			source.head = s.pop()
			recycle(s)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

type flusher interface {
	Flush() error
}

func (w *writerSink) Flush() error {
	if f, ok := w.w.(flusher); ok {
		return f.Flush()
	}

	return nil
}

func (w *writerSink) Timeout() *Timeout {
	return &w.timeout
}

func (w *writerSink) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
