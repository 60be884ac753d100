package transport

import (
	"bufio"
	"context"
	"os"

	"github.com/pkg/errors"
)

// FileTransport reads command lines from one file and writes responses to
// another, the batch-mode counterpart to an interactive session. It
// mirrors client_create_no_window from the original server.c: an empty
// output path means responses go to the process's own stdout.
type FileTransport struct {
	in     *os.File
	out    *os.File
	closeO bool // only close out if we opened it ourselves (not stdout)

	scanner *bufio.Scanner
	writer  *bufio.Writer
}

// NewFileTransport opens inPath for reading and outPath for writing
// (truncating it), or writes to os.Stdout if outPath is empty.
func NewFileTransport(inPath, outPath string) (*FileTransport, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open input file %q", inPath)
	}

	var out *os.File
	closeO := false
	if outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(outPath)
		if err != nil {
			in.Close()
			return nil, errors.Wrapf(err, "open output file %q", outPath)
		}
		closeO = true
	}

	return &FileTransport{
		in:      in,
		out:     out,
		closeO:  closeO,
		scanner: bufio.NewScanner(in),
		writer:  bufio.NewWriter(out),
	}, nil
}

// ReadLine returns the next command line, or ok=false once the input file
// is exhausted.
func (t *FileTransport) ReadLine(_ context.Context) (string, bool, error) {
	if !t.scanner.Scan() {
		return "", false, t.scanner.Err()
	}
	return t.scanner.Text(), true, nil
}

// WriteResponse appends response and a newline to the output file.
func (t *FileTransport) WriteResponse(response string) error {
	if _, err := t.writer.WriteString(response); err != nil {
		return err
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return err
	}
	return t.writer.Flush()
}

// Close releases the underlying files. The input file is always closed;
// the output file is only closed if this transport opened it itself (it
// never closes os.Stdout).
func (t *FileTransport) Close() error {
	inErr := t.in.Close()
	var outErr error
	if t.closeO {
		outErr = t.out.Close()
	}
	if inErr != nil {
		return inErr
	}
	return outErr
}

var _ Transport = (*FileTransport)(nil)
