// Command concurrentkv runs the concurrent key/value store server: an
// operator reads menu commands from stdin ('e'/'E' create a session, 's'
// pauses all sessions, 'g' resumes them, 'w' joins every outstanding
// session) until stdin is closed, at which point the server performs a
// final join and exits.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nbtaylor/concurrentkv/store"
	"github.com/nbtaylor/concurrentkv/supervisor"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "concurrentkv",
	Short: "A concurrent, lock-coupled key/value store server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return errors.Wrapf(err, "parse --log-level %q", logLevel)
		}
		log := logrus.New()
		log.SetLevel(level)

		sup := supervisor.New(store.New(), log)
		return runOperatorLoop(cmd.InOrStdin(), cmd.OutOrStdout(), sup, log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"logging verbosity (trace, debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runOperatorLoop reads single-character operator commands until in is
// exhausted, then joins every outstanding session before returning.
func runOperatorLoop(in io.Reader, out io.Writer, sup *supervisor.Supervisor, log *logrus.Logger) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		sup.ReapFinished()

		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		verb := line[0]

		switch verb {
		case supervisor.VerbCreateWindowed:
			if _, err := sup.CreateWindowed(os.Stdin, os.Stdout); err != nil {
				log.WithError(err).Warn("could not create windowed session")
			}
		case supervisor.VerbCreateFile:
			inPath, outPath, err := promptFilePaths(scanner, out)
			if err != nil {
				log.WithError(err).Warn("could not read file session paths")
				continue
			}
			if _, err := sup.CreateFile(inPath, outPath); err != nil {
				log.WithError(err).Warn("could not create file-backed session")
			}
		default:
			if !sup.DispatchSimple(verb) {
				fmt.Fprintln(out, "Invalid Command")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read operator command")
	}

	sup.Join()
	return nil
}

// promptFilePaths reads the input-file and output-file paths for an 'E'
// command, one per line.
func promptFilePaths(scanner *bufio.Scanner, out io.Writer) (inPath, outPath string, err error) {
	fmt.Fprint(out, "input file: ")
	if !scanner.Scan() {
		return "", "", errors.New("no input file path supplied")
	}
	inPath = scanner.Text()

	fmt.Fprint(out, "output file: ")
	if !scanner.Scan() {
		return "", "", errors.New("no output file path supplied")
	}
	outPath = scanner.Text()

	return inPath, outPath, nil
}
