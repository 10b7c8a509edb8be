package segio

const (
	// SegmentSize is the fixed capacity, in bytes, of every segment.
	SegmentSize = 2048

	// shareMinimum is the smallest split that aliases the underlying
	// array instead of copying.
	shareMinimum = 1024
)

// segment is a fixed-capacity page of bytes, linked into a circular
// ring owned by a Buffer. The readable bytes are data[pos:limit]. A
// shared segment aliases an array visible through other segments and
// its stored bytes must not change; only an owner segment may grow its
// limit.
type segment struct {
	data       []byte
	pos, limit int
	shared     bool
	owner      bool
	next, prev *segment
}

func (s *segment) size() int {
	return s.limit - s.pos
}

// sharedCopy returns a view of s aliasing the same array, marking both
// segments shared.
func (s *segment) sharedCopy() *segment {
	s.shared = true

	return &segment{
		data:   s.data,
		pos:    s.pos,
		limit:  s.limit,
		shared: true,
	}
}

// push inserts n after s in the ring and returns it.
func (s *segment) push(n *segment) *segment {
	n.prev = s
	n.next = s.next
	s.next.prev = n
	s.next = n

	return n
}

// pop removes s from the ring, returning its successor, or nil if the
// ring collapses.
func (s *segment) pop() *segment {
	result := s.next
	if result == s {
		result = nil
	}

	s.prev.next = s.next
	s.next.prev = s.prev
	s.next = nil
	s.prev = nil

	return result
}

// split divides s into a prefix holding its first byteCount bytes and a
// suffix holding the rest, links the prefix before s, and returns it.
// Large prefixes alias the array; small ones are copied into a fresh
// segment so short transfers do not multiply views of the same page.
func (s *segment) split(byteCount int) *segment {
	if byteCount <= 0 || byteCount > s.size() {
		panic("segio: split byteCount out of range")
	}

	var prefix *segment

	if byteCount >= shareMinimum {
		prefix = s.sharedCopy()
	} else {
		prefix = take()
		copy(prefix.data, s.data[s.pos:s.pos+byteCount])
	}

	prefix.limit = prefix.pos + byteCount
	s.pos += byteCount
	s.prev.push(prefix)

	return prefix
}

// coalesce merges s into its predecessor when the combined bytes fit in
// one page, recycling s. A no-op when the predecessor cannot accept
// them.
func (s *segment) coalesce() {
	if s.prev == s {
		panic("segio: cannot coalesce lone segment")
	}

	if !s.prev.owner {
		return
	}

	byteCount := s.size()

	available := SegmentSize - s.prev.limit
	if !s.prev.shared {
		available += s.prev.pos
	}

	if byteCount > available {
		return
	}

	s.writeTo(s.prev, byteCount)
	s.pop()
	recycle(s)
}

// writeTo moves byteCount bytes from s to sink, compacting sink in
// place when the bytes fit the page but not the tail gap.
func (s *segment) writeTo(sink *segment, byteCount int) {
	if !sink.owner {
		panic("segio: write to read-only segment")
	}

	if sink.limit+byteCount > SegmentSize {
		if sink.shared || sink.limit+byteCount-sink.pos > SegmentSize {
			panic("segio: segment overflow")
		}

		sink.compact()
	}

	copy(sink.data[sink.limit:], s.data[s.pos:s.pos+byteCount])
	sink.limit += byteCount
	s.pos += byteCount
}

// compact shifts the readable bytes down to the start of the array,
// reclaiming the space ahead of pos.
func (s *segment) compact() {
	copy(s.data, s.data[s.pos:s.limit])
	s.limit -= s.pos
	s.pos = 0
}
