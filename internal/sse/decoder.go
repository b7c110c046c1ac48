// Package sse decodes line-oriented server-sent event streams into data
// frames. Only `data:` lines carry payloads; comments, event-type lines and
// keep-alives are skipped.
package sse

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const dataPrefix = "data:"

// DoneSentinel is the payload a provider sends to mark the end of a stream.
const DoneSentinel = "[DONE]"

// Frame is one decoded unit of the push stream.
type Frame struct {
	// Data is the raw payload with the prefix and surrounding whitespace
	// stripped. For the terminal frame it equals DoneSentinel.
	Data string
	// Done marks the terminal sentinel frame.
	Done bool
}

// Decoder pulls data frames out of a raw event stream. It is single-pass:
// once the terminal sentinel has been yielded, Next returns false regardless
// of any remaining input.
type Decoder struct {
	scanner *bufio.Scanner
	frame   Frame
	done    bool
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	// Allow for large chunks; single deltas can carry long payloads.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &Decoder{scanner: scanner}
}

// Next advances to the next data frame, skipping blank and non-data lines.
// It returns false when the input is exhausted, a read error occurred, or the
// previous frame was the terminal sentinel.
func (d *Decoder) Next() bool {
	if d.done {
		return false
	}

	for d.scanner.Scan() {
		// Malformed encoding is recovered permissively; corruption in one
		// frame must not abort the whole stream.
		line := strings.ToValidUTF8(d.scanner.Text(), string(utf8.RuneError))
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		d.frame = Frame{Data: data, Done: data == DoneSentinel}
		if d.frame.Done {
			d.done = true
		}
		return true
	}

	d.done = true
	return false
}

// Frame returns the frame produced by the last successful call to Next.
func (d *Decoder) Frame() Frame {
	return d.frame
}

// Err returns the first error encountered while reading the underlying
// stream, if any. Reaching EOF or the terminal sentinel is not an error.
func (d *Decoder) Err() error {
	if err := d.scanner.Err(); err != nil {
		return fmt.Errorf("stream read error: %w", err)
	}
	return nil
}
