// Package iojson reads and writes JSON at the CLI boundary: pretty-printed
// output for --json flags and decoding of piped or file-based input.
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Error is the shape emitted when a command fails in JSON mode.
type Error struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// MarshalError renders an Error, falling back to a hand-built blob when the
// payload itself cannot be marshaled (which indicates a bug in the caller).
func MarshalError(msg string, data map[string]any) string {
	bits, err := json.MarshalIndent(Error{Message: msg, Data: data}, "", "  ")
	if err != nil {
		m, _ := json.Marshal(msg)
		e, _ := json.Marshal(err.Error())
		return fmt.Sprintf(`{"message":%s,"data":{"json_error":%s}}`, m, e)
	}
	return string(bits)
}

// WriteError prints an Error to stderr.
func WriteError(msg string, data map[string]any) error {
	_, err := fmt.Fprintln(os.Stderr, MarshalError(msg, data))
	return err
}

// WriteWith marshals obj indented to w; marshal failures are reported on ew
// instead so the primary stream never carries half a document.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	bits, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		_, werr := fmt.Fprintln(ew, MarshalError("error marshaling output", map[string]any{"json_error": err.Error()}))
		return werr
	}

	_, err = fmt.Fprintln(w, string(bits))
	return err
}

// Write calls WriteWith with [os.Stdout] and [os.Stderr].
func Write(obj any) error {
	return WriteWith(os.Stdout, os.Stderr, obj)
}
