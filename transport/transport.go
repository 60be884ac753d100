// Package transport defines the capability a Session needs from whatever
// delivers it command lines and carries back its responses, plus the two
// concrete implementations this repository owns: a file-pair transport for
// batch sessions, and a minimal stand-in for an interactive windowed
// transport, whose real xterm-and-window-process machinery lives outside
// this repository.
package transport

import "context"

// Transport is everything session.Session needs: read one command line at
// a time, write a response, and release resources on close. ReadLine's ok
// return mirrors the original serve()'s "-1 means the other side closed
// the pipe" convention: ok is false on end-of-input (and on every call
// after it) and on a read error, which is returned in err; the returned
// line is meaningless whenever ok is false.
type Transport interface {
	ReadLine(ctx context.Context) (line string, ok bool, err error)
	WriteResponse(response string) error
	Close() error
}
