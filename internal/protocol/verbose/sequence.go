package verbose

// Gap describes a break in the server's message numbering.
type Gap struct {
	Expected int64
	Got      int64
}

// Sequence tracks the last message_num seen on one session.
type Sequence struct {
	last int64
	seen bool
	gaps uint64
}

// Observe records n and returns the gap it reveals, if any. The stored
// number always becomes n; gaps are never corrected.
func (s *Sequence) Observe(n int64) (Gap, bool) {
	defer func() {
		s.last = n
		s.seen = true
	}()
	if !s.seen || n == s.last+1 {
		return Gap{}, false
	}
	s.gaps++
	return Gap{Expected: s.last + 1, Got: n}, true
}

// Last returns the last observed number, or -1 before the first message.
func (s *Sequence) Last() int64 {
	if !s.seen {
		return -1
	}
	return s.last
}

func (s *Sequence) Gaps() uint64 { return s.gaps }
