package transport

import (
	"bufio"
	"context"
	"io"
)

// InteractiveStandIn is a minimal implementation of Transport over an
// arbitrary reader/writer pair. It exists so the Supervisor's "e" command
// has a concrete, testable session to create; it is deliberately not an
// attempt to reproduce the xterm-and-window-process machinery of the
// original client_create, whose xterm-and-window-process machinery lives
// outside this repository; only its Transport contract matters here.
type InteractiveStandIn struct {
	scanner *bufio.Scanner
	writer  *bufio.Writer
	closer  io.Closer
}

// NewInteractiveStandIn builds a Transport over r/w. If c is non-nil, Close
// delegates to it; callers that pass os.Stdin/os.Stdout should pass a nil
// closer, since a Session must never close the process's standard streams.
func NewInteractiveStandIn(r io.Reader, w io.Writer, c io.Closer) *InteractiveStandIn {
	return &InteractiveStandIn{
		scanner: bufio.NewScanner(r),
		writer:  bufio.NewWriter(w),
		closer:  c,
	}
}

func (t *InteractiveStandIn) ReadLine(_ context.Context) (string, bool, error) {
	if !t.scanner.Scan() {
		return "", false, t.scanner.Err()
	}
	return t.scanner.Text(), true, nil
}

func (t *InteractiveStandIn) WriteResponse(response string) error {
	if _, err := t.writer.WriteString(response); err != nil {
		return err
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return err
	}
	return t.writer.Flush()
}

func (t *InteractiveStandIn) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

var _ Transport = (*InteractiveStandIn)(nil)
