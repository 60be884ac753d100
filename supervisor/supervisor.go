// Package supervisor implements the process-wide controller: it creates
// client Sessions (windowed or file-backed), broadcasts the pause/resume
// barrier, reaps Sessions once they finish, and records each one's service
// time. It is the Go counterpart of server.c's slot table, join mutex and
// operator command switch.
package supervisor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nbtaylor/concurrentkv/interp"
	"github.com/nbtaylor/concurrentkv/session"
	"github.com/nbtaylor/concurrentkv/store"
	"github.com/nbtaylor/concurrentkv/transport"
)

// MaxSessions bounds the slot table, matching the MAX_SIZE of 1000 in the
// original server.c.
const MaxSessions = 1000

// ErrNoFreeSlots is returned by the create methods when the slot table is
// full.
var ErrNoFreeSlots = errors.New("supervisor: no free session slots")

// Status is a slot's lifecycle state.
type Status int

const (
	Free Status = iota
	Running
	Reapable
)

type slot struct {
	status  Status
	session *session.Session
	done    chan struct{}
}

// Supervisor owns the slot table, the pause barrier, and the single Store
// and Interpreter shared by every Session it creates.
type Supervisor struct {
	store   *store.Store
	interp  *interp.Interpreter
	barrier *Barrier
	log     *logrus.Logger

	mu    sync.Mutex
	slots [MaxSessions]slot
}

// New returns a Supervisor wrapping s, logging operational narration to
// log.
func New(s *store.Store, log *logrus.Logger) *Supervisor {
	return &Supervisor{
		store:   s,
		interp:  interp.New(s),
		barrier: NewBarrier(),
		log:     log,
	}
}

func (sup *Supervisor) claimFreeSlot() (int, error) {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	for i := range sup.slots {
		if sup.slots[i].status == Free {
			sup.slots[i].status = Running
			return i, nil
		}
	}
	return -1, ErrNoFreeSlots
}

func (sup *Supervisor) releaseSlot(id int) {
	sup.mu.Lock()
	sup.slots[id] = slot{}
	sup.mu.Unlock()
}

func (sup *Supervisor) start(id int, t transport.Transport) {
	sess := session.New(t, sup.interp, sup.barrier)
	done := make(chan struct{})

	sup.mu.Lock()
	sup.slots[id].session = sess
	sup.slots[id].done = done
	sup.mu.Unlock()

	go func() {
		defer close(done)
		if err := sess.Run(context.Background()); err != nil {
			sup.log.WithError(err).WithField("slot", id).Warn("session exited with an error")
		}
		sup.mu.Lock()
		sup.slots[id].status = Reapable
		sup.mu.Unlock()
	}()

	sup.log.WithField("slot", id).Info("session created")
}

// CreateWindowed creates a Session over the interactive stand-in transport
// bound to r/w (typically os.Stdin/os.Stdout), in the next free slot. It
// returns the slot id.
func (sup *Supervisor) CreateWindowed(r io.Reader, w io.Writer) (int, error) {
	id, err := sup.claimFreeSlot()
	if err != nil {
		return -1, err
	}
	t := transport.NewInteractiveStandIn(r, w, nil)
	sup.start(id, t)
	return id, nil
}

// CreateFile creates a file-backed Session reading commands from inPath
// and writing responses to outPath (or stdout if outPath is empty).
func (sup *Supervisor) CreateFile(inPath, outPath string) (int, error) {
	id, err := sup.claimFreeSlot()
	if err != nil {
		return -1, err
	}

	t, err := transport.NewFileTransport(inPath, outPath)
	if err != nil {
		sup.releaseSlot(id)
		return -1, errors.Wrap(err, "create file-backed session")
	}

	sup.start(id, t)
	return id, nil
}

// Pause engages the pause barrier: Sessions currently inside a command
// continue to completion, then block at their next barrier check.
func (sup *Supervisor) Pause() {
	sup.barrier.Engage()
	sup.log.Info("pause barrier engaged")
}

// Resume disengages the pause barrier and wakes every waiting Session.
func (sup *Supervisor) Resume() {
	sup.barrier.Disengage()
	sup.log.Info("pause barrier disengaged")
}

// finishSlot joins the goroutine backing slot i (if any), logs its service
// time, and frees the slot. It must be called with sup.mu unheld.
func (sup *Supervisor) finishSlot(i int) {
	sup.mu.Lock()
	done := sup.slots[i].done
	sess := sup.slots[i].session
	sup.mu.Unlock()

	if done != nil {
		<-done
	}

	var svc time.Duration
	if sess != nil {
		svc = sess.ServiceTime()
	}
	sup.log.WithFields(logrus.Fields{
		"slot":            i,
		"service_time_ms": svc.Milliseconds(),
	}).Info("session joined")

	sup.releaseSlot(i)
}

// ReapFinished opportunistically joins every slot currently Reapable,
// without blocking on any slot that is still Running. Supervisor's caller
// invokes this between operator commands.
func (sup *Supervisor) ReapFinished() {
	for i := range sup.slots {
		sup.mu.Lock()
		reapable := sup.slots[i].status == Reapable
		sup.mu.Unlock()
		if !reapable {
			continue
		}
		sup.finishSlot(i)
	}
}

// Join blocks until every Running or Reapable slot has finished, then
// frees them all, reporting each one's service time. This is the 'w'
// operator command and the implicit final join on shutdown.
func (sup *Supervisor) Join() {
	for i := range sup.slots {
		sup.mu.Lock()
		occupied := sup.slots[i].status != Free
		sup.mu.Unlock()
		if !occupied {
			continue
		}
		sup.finishSlot(i)
	}
}
