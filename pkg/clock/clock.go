// Package clock provides the time-source and timer-scheduling collaborators
// the persistency engine consumes from its host: a millisecond wall clock
// and a single-shot timer that can be re-armed. A real implementation backed
// by the OS clock and time.AfterFunc is provided for production use, and a
// deterministic fake is provided so tests can advance time explicitly
// instead of racing real goroutines; the delayed-reclamation behavior is
// only practical to assert against a virtual clock.
package clock

import (
	"sync"
	"time"
)

// TimerHandle identifies an armed timer so it can later be cancelled via
// ClearTimer. The zero value never refers to a live timer.
type TimerHandle uint64

// Clock is the narrow interface the engine uses for wall-clock reads and
// single-shot timer scheduling. Implementations must be safe for concurrent
// use because the timer callback fires from a goroutine distinct from the
// caller that armed it; the engine treats the callback as a new top-level
// call.
type Clock interface {
	// NowMillis returns the current time as a millisecond timestamp.
	NowMillis() int64

	// SetTimer arms a single-shot timer that invokes fn after delayMillis
	// milliseconds have elapsed, and returns a handle that can cancel it.
	SetTimer(delayMillis int64, fn func()) TimerHandle

	// ClearTimer cancels a previously armed timer. Clearing an unknown or
	// already-fired handle is a no-op.
	ClearTimer(handle TimerHandle)
}

// System is a Clock backed by the OS wall clock and time.AfterFunc.
type System struct {
	mu     sync.Mutex
	next   TimerHandle
	timers map[TimerHandle]*time.Timer
}

// NewSystem constructs a Clock backed by real OS time.
func NewSystem() *System {
	return &System{timers: make(map[TimerHandle]*time.Timer)}
}

// NowMillis returns time.Now() as Unix milliseconds.
func (s *System) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// SetTimer arms a real OS timer via time.AfterFunc.
func (s *System) SetTimer(delayMillis int64, fn func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	handle := s.next

	s.timers[handle] = time.AfterFunc(time.Duration(delayMillis)*time.Millisecond, func() {
		s.mu.Lock()
		delete(s.timers, handle)
		s.mu.Unlock()
		fn()
	})

	return handle
}

// ClearTimer stops the OS timer associated with handle, if still armed.
func (s *System) ClearTimer(handle TimerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[handle]; ok {
		t.Stop()
		delete(s.timers, handle)
	}
}
