package ratelimit

import (
	"sync"

	"github.com/Ethan0723/Insight-Hub/internal/logger"
)

// Limiter guards the model endpoint within a single run: an optional hard
// call budget, and a breaker that trips after consecutive transport
// failures so one dead endpoint does not turn into a storm of doomed calls.
type Limiter struct {
	mu            sync.Mutex
	calls         int
	maxCalls      int // 0 = unlimited
	consecFails   int
	tripThreshold int // 0 = never trip
	tripped       bool
}

func NewLimiter(maxCalls, tripThreshold int) *Limiter {
	return &Limiter{
		maxCalls:      maxCalls,
		tripThreshold: tripThreshold,
	}
}

// Allow reports whether another model call may be attempted.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tripped {
		return false
	}
	if l.maxCalls > 0 && l.calls >= l.maxCalls {
		logger.Warn("model call budget exhausted", "calls", l.calls, "budget", l.maxCalls)
		return false
	}
	return true
}

// Use records one attempted model call.
func (l *Limiter) Use() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
}

// RecordSuccess resets the consecutive-failure streak.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecFails = 0
}

// RecordTransportFailure counts an endpoint-unreachable failure and trips
// the breaker once the streak reaches the threshold. Tripped state lasts
// for the remainder of the run.
func (l *Limiter) RecordTransportFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.consecFails++
	if l.tripThreshold > 0 && l.consecFails >= l.tripThreshold && !l.tripped {
		l.tripped = true
		logger.Error("model endpoint unreachable repeatedly, halting summary attempts for this run",
			"consecutive_failures", l.consecFails)
	}
}

// Tripped reports whether the breaker has halted summary generation.
func (l *Limiter) Tripped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tripped
}

// Calls returns the number of model calls attempted so far.
func (l *Limiter) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
