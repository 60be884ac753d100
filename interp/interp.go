// Package interp implements the command interpreter: a pure function from
// a command line and a Store to a human-readable response string. It is
// stateless and safe to share across every Session, since all mutable
// state lives in the store.Store it is bound to.
package interp

import (
	"bufio"
	"os"
	"strings"

	"github.com/nbtaylor/concurrentkv/store"
)

// maxTokenBytes is the per-token cap on name/value tokens in the text
// protocol; a longer token makes the whole command ill-formed.
const maxTokenBytes = 255

// Response phrases.
const (
	respNotFound       = "not found"
	respAdded          = "added"
	respAlreadyPresent = "already in database"
	respRemoved        = "removed"
	respNotPresent     = "not in database"
	respFileProcessed  = "file processed"
	respBadFileName    = "bad file name"
	respIllFormed      = "ill-formed command"
	respAllocation     = "allocation failed"
	respAllDone        = "all done"
)

// Interpreter dispatches command lines against a single Store. The zero
// value is not usable; construct one with New.
type Interpreter struct {
	store *store.Store
}

// New returns an Interpreter bound to s.
func New(s *store.Store) *Interpreter {
	return &Interpreter{store: s}
}

// AllDone is the response Session writes when a transport reports
// end-of-input; it is never produced by Interpret itself, mirroring how
// the original interpret_command's caller intercepted the EOF sentinel
// before ever calling into the interpreter.
const AllDone = respAllDone

// Interpret parses one command line and returns the response string. It
// never panics on malformed input; every recoverable error is converted to
// a response phrase here rather than propagated to the caller.
func (ip *Interpreter) Interpret(line string) string {
	line = strings.TrimRight(line, "\r\n")
	if len(line) <= 1 {
		return respIllFormed
	}

	verb := line[0]
	rest := line[1:]

	switch verb {
	case 'q':
		return ip.query(rest)
	case 'a':
		return ip.add(rest)
	case 'd':
		return ip.delete(rest)
	case 'f':
		return ip.file(rest)
	default:
		return respIllFormed
	}
}

// token returns the first whitespace-delimited token of s, or "" if s has
// none.
func token(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (ip *Interpreter) query(rest string) string {
	name := token(rest)
	if name == "" || len(name) > maxTokenBytes {
		return respIllFormed
	}

	value, found := ip.store.Query([]byte(name))
	if !found {
		return respNotFound
	}
	return string(value)
}

func (ip *Interpreter) add(rest string) string {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return respIllFormed
	}
	name, value := fields[0], fields[1]
	if name == "" || value == "" || len(name) > maxTokenBytes || len(value) > maxTokenBytes {
		return respIllFormed
	}

	outcome, err := ip.store.Add([]byte(name), []byte(value))
	if err != nil {
		return respAllocation
	}
	if outcome == store.Added {
		return respAdded
	}
	return respAlreadyPresent
}

func (ip *Interpreter) delete(rest string) string {
	name := token(rest)
	if name == "" || len(name) > maxTokenBytes {
		return respIllFormed
	}

	if ip.store.Delete([]byte(name)) == store.Removed {
		return respRemoved
	}
	return respNotPresent
}

// file opens the named file and feeds each of its lines back through
// Interpret, discarding the per-line responses - it shares the same Store
// as the caller but never holds a Store lock while reading the file, since
// each recursive Interpret call only holds locks for the duration of its
// own Store operation.
func (ip *Interpreter) file(rest string) string {
	path := token(rest)
	if path == "" {
		return respIllFormed
	}

	f, err := os.Open(path)
	if err != nil {
		return respBadFileName
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ip.Interpret(scanner.Text())
	}

	return respFileProcessed
}
