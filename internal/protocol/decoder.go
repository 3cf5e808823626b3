package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DataPrefix is the transport framing prefix some producers put in front of
// each line (server-sent-events style). The decoder strips it.
const DataPrefix = "data:"

// LineError reports a single line that failed to parse. It is recoverable:
// the decoder keeps its position and the next call moves past the bad line.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("protocol: line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Decoder turns an ordered stream of UTF-8 text lines into messages. Blank
// lines are skipped and an optional data: prefix is stripped before parsing.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

// NewDecoder wraps an already-opened line stream. The decoder performs no
// network I/O and no retries; transport concerns stay with the caller.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	// Layout chunks can be large; raise the per-line limit well past the
	// bufio default.
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Decoder{scanner: s}
}

// Next returns the next message. It returns io.EOF when the stream ends, a
// *LineError for a malformed line (callers may skip and continue), and a
// *UnknownKindError (wrapped in *LineError) for unrecognized kinds.
func (d *Decoder) Next() (Message, error) {
	for d.scanner.Scan() {
		d.line++
		text := strings.TrimSpace(d.scanner.Text())
		if text == "" {
			continue
		}
		text = strings.TrimSpace(strings.TrimPrefix(text, DataPrefix))
		if text == "" {
			continue
		}
		msg, err := Decode([]byte(text))
		if err != nil {
			return nil, &LineError{Line: d.line, Text: text, Err: err}
		}
		return msg, nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
