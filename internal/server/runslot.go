package server

// runSlot serializes portal runs. The engine drives a single browser against
// a rate-limited portal, so at most one run may be active per deployment;
// callers that lose the race get a busy response instead of queueing.
type runSlot struct {
	ch chan struct{}
}

func newRunSlot() *runSlot {
	return &runSlot{ch: make(chan struct{}, 1)}
}

// TryAcquire claims the slot without blocking.
func (s *runSlot) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the slot. Releasing an unheld slot is a no-op.
func (s *runSlot) Release() {
	select {
	case <-s.ch:
	default:
	}
}

// Busy reports whether a run is active.
func (s *runSlot) Busy() bool {
	return len(s.ch) > 0
}
