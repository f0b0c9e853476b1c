package room

import "time"

// TimerHandle identifies one scheduled timer owned by a room. The zero value
// is never issued, so fields holding a handle can be cancelled untested.
type TimerHandle int

// timerFired is posted into the room inbox by timer goroutines. The handle
// travels with the callback so the loop can discard fires from timers that
// were cancelled while the fire was in flight.
type timerFired struct {
	handle TimerHandle
	fn     func()
}

type timerEntry struct {
	stop      func()
	repeating bool
}

// Scheduler owns every timer of one room. Handles are created and cancelled
// only from the room goroutine; fires are funneled back through the room
// inbox, so a callback can never run concurrently with another room handler
// or reach the room after CancelAll at disposal.
type Scheduler struct {
	post   func(timerFired) bool
	next   TimerHandle
	active map[TimerHandle]timerEntry
}

func newScheduler(post func(timerFired) bool) *Scheduler {
	return &Scheduler{post: post, active: make(map[TimerHandle]timerEntry)}
}

// After schedules fn to run once on the room goroutine after d.
func (s *Scheduler) After(d time.Duration, fn func()) TimerHandle {
	s.next++
	handle := s.next
	t := time.AfterFunc(d, func() {
		s.post(timerFired{handle: handle, fn: fn})
	})
	s.active[handle] = timerEntry{stop: func() { t.Stop() }}
	return handle
}

// Every schedules fn to run on the room goroutine at every multiple of d
// until the handle is cancelled.
func (s *Scheduler) Every(d time.Duration, fn func()) TimerHandle {
	s.next++
	handle := s.next
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !s.post(timerFired{handle: handle, fn: fn}) {
					return
				}
			}
		}
	}()
	s.active[handle] = timerEntry{stop: func() { close(stop) }, repeating: true}
	return handle
}

// Cancel stops a timer. In-flight fires for the handle are discarded by the
// room loop. Cancelling the zero handle or a finished timer is a no-op.
func (s *Scheduler) Cancel(handle TimerHandle) {
	entry, ok := s.active[handle]
	if !ok {
		return
	}
	delete(s.active, handle)
	entry.stop()
}

// CancelAll stops every outstanding timer; called on disposal.
func (s *Scheduler) CancelAll() {
	for handle, entry := range s.active {
		delete(s.active, handle)
		entry.stop()
	}
}

// accept reports whether a fired handle is still current and retires
// one-shot entries so they do not linger in the active set.
func (s *Scheduler) accept(f timerFired) bool {
	entry, ok := s.active[f.handle]
	if !ok {
		return false
	}
	if !entry.repeating {
		delete(s.active, f.handle)
	}
	return true
}
