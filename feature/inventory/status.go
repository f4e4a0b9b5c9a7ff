package inventory

import (
	"sync"
	"time"
)

type statusStore struct {
	mu sync.RWMutex
	st Status
}

func (s *statusStore) get() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

func (s *statusStore) succeed(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.CycleCount = s.st.CycleCount + 1
	s.st = st
}

func (s *statusStore) fail(start time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.LastCycle = start
	s.st.DurationMs = time.Since(start).Milliseconds()
	s.st.Error = err.Error()
	s.st.CycleCount++
}
