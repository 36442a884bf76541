package clock

import "sort"

// armedTimer is a pending callback at a virtual deadline.
type armedTimer struct {
	handle   TimerHandle
	deadline int64
	fn       func()
	cleared  bool
}

// Fake is a deterministic, manually-advanced Clock for tests. Time only
// moves when Advance is called; SetTimer never schedules a goroutine, so
// firing a timer is entirely under the test's control.
type Fake struct {
	now    int64
	next   TimerHandle
	timers []*armedTimer
}

// NewFake constructs a Fake clock starting at the given millisecond time.
func NewFake(startMillis int64) *Fake {
	return &Fake{now: startMillis}
}

// NowMillis returns the fake's current virtual time.
func (f *Fake) NowMillis() int64 {
	return f.now
}

// SetTimer records a pending callback at now+delayMillis. It does not fire
// until a matching or later Advance call.
func (f *Fake) SetTimer(delayMillis int64, fn func()) TimerHandle {
	f.next++
	handle := f.next

	f.timers = append(f.timers, &armedTimer{
		handle:   handle,
		deadline: f.now + delayMillis,
		fn:       fn,
	})

	return handle
}

// ClearTimer marks a pending timer as cancelled so Advance skips it.
func (f *Fake) ClearTimer(handle TimerHandle) {
	for _, t := range f.timers {
		if t.handle == handle {
			t.cleared = true
		}
	}
}

// Advance moves the virtual clock forward by deltaMillis and synchronously
// fires every non-cancelled timer whose deadline is now due, in deadline
// order. A timer's callback may itself arm new timers; those are only fired
// by a subsequent Advance call, never by the one that scheduled them.
func (f *Fake) Advance(deltaMillis int64) {
	f.now += deltaMillis

	var due []*armedTimer
	var fire []*armedTimer
	for _, t := range f.timers {
		if !t.cleared && t.deadline <= f.now {
			fire = append(fire, t)
		} else if !t.cleared {
			due = append(due, t)
		}
	}
	f.timers = due

	sort.Slice(fire, func(i, j int) bool { return fire[i].deadline < fire[j].deadline })
	for _, t := range fire {
		t.fn()
	}
}

// Pending reports how many timers remain armed (not cleared, not yet fired).
func (f *Fake) Pending() int {
	n := 0
	for _, t := range f.timers {
		if !t.cleared {
			n++
		}
	}
	return n
}
