package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// FileReader decodes a T from --file or, when the flag is unset, from piped
// stdin. A bare terminal on stdin is rejected rather than blocking forever.
type FileReader[T any] struct {
	path string
}

// Flag returns the -f/--file flag wired to this reader. Register it on the
// command that calls Read.
func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to JSON file (reads from stdin if not provided)",
		Destination: &fr.path,
	}
}

// Read decodes the input into a T.
func (fr *FileReader[T]) Read() (T, error) {
	var input T

	var src io.Reader
	switch {
	case fr.path != "":
		f, err := os.Open(fr.path)
		if err != nil {
			return input, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		src = f
	case term.IsTerminal(int(os.Stdin.Fd())):
		return input, errors.New("no input provided (stdin is a terminal); use -f or pipe JSON")
	default:
		src = os.Stdin
	}

	if err := json.NewDecoder(src).Decode(&input); err != nil {
		return input, fmt.Errorf("decode JSON: %w", err)
	}
	return input, nil
}
