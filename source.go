package segio

// Source supplies a stream of bytes. Sources deliver bytes in arrival
// order and signal permanent exhaustion with io.EOF.
type Source interface {
	// ReadTo removes up to byteCount bytes from the source and appends
	// them to sink, returning the number moved. It returns io.EOF once
	// the source is exhausted and no more bytes will ever arrive.
	ReadTo(sink *Buffer, byteCount int64) (int64, error)

	// Timeout returns the timeout applied to read operations.
	Timeout() *Timeout

	// Close releases held resources. It is safe to call more than once.
	Close() error
}

// Sink receives a stream of bytes.
type Sink interface {
	// WriteFrom removes byteCount bytes from source and appends them to
	// the sink. On failure the sink remains valid but the position of
	// the lost bytes is unspecified.
	WriteFrom(source *Buffer, byteCount int64) error

	// Flush pushes any buffered bytes down to the underlying resource.
	Flush() error

	// Timeout returns the timeout applied to write operations.
	Timeout() *Timeout

	// Close flushes and releases held resources. It is safe to call
	// more than once.
	Close() error
}
