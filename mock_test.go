package segio

import (
	"fmt"
	"slices"
	"testing"
)

// mockSink records the calls made to it and fails the scheduled ones,
// consuming nothing on failure.
type mockSink struct {
	log   []string
	errs  map[int]error
	calls int
}

func (m *mockSink) op(format string, args ...interface{}) error {
	m.log = append(m.log, fmt.Sprintf(format, args...))
	err := m.errs[m.calls]
	m.calls++

	return err
}

func (m *mockSink) WriteFrom(source *Buffer, byteCount int64) error {
	if err := m.op("write(%s, %d)", source, byteCount); err != nil {
		return err
	}

	return source.Skip(byteCount)
}

func (m *mockSink) Flush() error {
	return m.op("flush()")
}

func (m *mockSink) Timeout() *Timeout {
	return noTimeout
}

func (m *mockSink) Close() error {
	return m.op("close()")
}

func (m *mockSink) scheduleError(call int, err error) {
	if m.errs == nil {
		m.errs = make(map[int]error)
	}

	m.errs[call] = err
}

func (m *mockSink) assertLog(t *testing.T, expected ...string) {
	t.Helper()

	if !slices.Equal(m.log, expected) {
		t.Errorf("expecting log %v, got %v", expected, m.log)
	}
}

func (m *mockSink) assertLogContains(t *testing.T, entry string) {
	t.Helper()

	if !slices.Contains(m.log, entry) {
		t.Errorf("expecting log to contain %q, got %v", entry, m.log)
	}
}
