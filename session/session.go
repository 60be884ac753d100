// Package session implements the client-facing worker loop: read a
// command line from a transport, wait out any pause barrier, interpret
// it, write back the response, and keep track of how long the whole thing
// took.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/nbtaylor/concurrentkv/interp"
	"github.com/nbtaylor/concurrentkv/transport"
)

// PauseBarrier is the capability a Session needs from the Supervisor: a
// way to block until nobody has engaged the global pause. Sessions never
// see the Supervisor's slot table or join machinery, only this barrier.
type PauseBarrier interface {
	WaitIfPaused()
}

// Session is one client-facing worker bound to a Transport at creation. A
// Session holds no Store lock across loop iterations; the pause barrier is
// only ever checked between commands, never inside a Store operation.
type Session struct {
	transport transport.Transport
	interp    *interp.Interpreter
	barrier   PauseBarrier

	mu          sync.Mutex
	serviceTime time.Duration
}

// New binds a Session to t, dispatching through ip and observing barrier
// between commands.
func New(t transport.Transport, ip *interp.Interpreter, barrier PauseBarrier) *Session {
	return &Session{transport: t, interp: ip, barrier: barrier}
}

// Run executes the main loop until the transport reports end-of-input or a
// transport error occurs. It always closes the transport before returning.
func (s *Session) Run(ctx context.Context) error {
	defer s.transport.Close()

	s.barrier.WaitIfPaused()
	start := time.Now()

	for {
		line, ok, err := s.transport.ReadLine(ctx)
		if err != nil {
			s.recordServiceTime(start)
			return err
		}
		if !ok {
			_ = s.transport.WriteResponse(interp.AllDone)
			break
		}

		s.barrier.WaitIfPaused()

		response := s.interp.Interpret(line)
		if err := s.transport.WriteResponse(response); err != nil {
			s.recordServiceTime(start)
			return err
		}
	}

	s.recordServiceTime(start)
	return nil
}

func (s *Session) recordServiceTime(start time.Time) {
	s.mu.Lock()
	s.serviceTime = time.Since(start)
	s.mu.Unlock()
}

// ServiceTime returns the wall-clock duration from the first post-barrier
// resume to loop exit. It is safe to call concurrently with Run, though
// the value is only final once Run has returned.
func (s *Session) ServiceTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serviceTime
}
