package server

import (
	"sync"
	"time"
)

// Reasons a run is refused by the limiter
const (
	reasonConcurrent = "too many concurrent runs"
	reasonRate       = "rate limit exceeded"
)

// RunLimiter bounds concurrent runs and runs started per sliding minute.
// A zero limit disables that check.
type RunLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	maxConcurrent     int
	started           []time.Time
	running           int
	now               func() time.Time
}

// NewRunLimiter creates a limiter with the given limits
func NewRunLimiter(requestsPerMinute, maxConcurrent int) *RunLimiter {
	return &RunLimiter{
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
		now:               time.Now,
	}
}

// Acquire admits a run or returns the reason it was refused. Every admitted
// run must be followed by exactly one Release.
func (l *RunLimiter) Acquire() (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxConcurrent > 0 && l.running >= l.maxConcurrent {
		return false, reasonConcurrent
	}

	now := l.now()
	l.prune(now)
	if l.requestsPerMinute > 0 && len(l.started) >= l.requestsPerMinute {
		return false, reasonRate
	}

	l.started = append(l.started, now)
	l.running++
	return true, ""
}

// Release marks an admitted run as finished
func (l *RunLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running > 0 {
		l.running--
	}
}

// Stats returns the runs started in the last minute and the runs in flight
func (l *RunLimiter) Stats() (started, running int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return len(l.started), l.running
}

// prune drops start times older than one minute
func (l *RunLimiter) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(l.started) && !l.started[i].After(cutoff) {
		i++
	}
	l.started = l.started[i:]
}
