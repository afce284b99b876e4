package wish

import (
	"strconv"
	"sync"
	"time"
)

// IDSource mints time-derived ids that strictly increase within a process,
// even when two are requested in the same millisecond.
type IDSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDSource returns an IDSource reading the given clock; nil means time.Now.
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next returns a fresh id.
func (s *IDSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.now().UnixMilli()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 10)
}

// Observe raises the floor so ids loaded from storage are never reissued.
func (s *IDSource) Observe(id string) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	s.mu.Lock()
	if n > s.last {
		s.last = n
	}
	s.mu.Unlock()
}
