package supervisor

import "sync"

// Barrier is the process-wide pause/resume gate Sessions block on between
// commands. Engage/Disengage are the 's'/'g' operator commands; Sessions
// currently inside a Store operation always run it to completion before
// observing a pause, since the barrier is only ever checked between
// commands (session.Session.Run), never inside CommandInterpreter.
type Barrier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
}

// NewBarrier returns a disengaged Barrier.
func NewBarrier() *Barrier {
	b := &Barrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Engage sets the barrier; every Session that next calls WaitIfPaused
// blocks until Disengage is called.
func (b *Barrier) Engage() {
	b.mu.Lock()
	b.paused = true
	b.mu.Unlock()
}

// Disengage clears the barrier and wakes every Session waiting on it.
func (b *Barrier) Disengage() {
	b.mu.Lock()
	b.paused = false
	b.mu.Unlock()
	b.cond.Broadcast()
}

// WaitIfPaused blocks while the barrier is engaged. It implements
// session.PauseBarrier.
func (b *Barrier) WaitIfPaused() {
	b.mu.Lock()
	for b.paused {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
