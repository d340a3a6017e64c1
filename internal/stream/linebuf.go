// Package stream is the wire transport: it opens one streaming HTTP request
// per outgoing message and decodes the chunked response body into an ordered
// sequence of text deltas terminated by exactly one Done or Error.
package stream

import "bytes"

// LineBuffer reassembles '\n'-delimited lines from arbitrarily split byte
// chunks. Feed returns the complete lines a chunk finishes; an unterminated
// trailing partial is retained and prepended to the next chunk. Working on
// raw bytes means a multi-byte UTF-8 sequence straddling a chunk boundary is
// whole again before it is ever converted to a string.
type LineBuffer struct {
	rem []byte
}

// Feed appends p to the buffered residue and returns all complete lines,
// without their trailing newline.
func (b *LineBuffer) Feed(p []byte) []string {
	b.rem = append(b.rem, p...)
	var lines []string
	for {
		i := bytes.IndexByte(b.rem, '\n')
		if i < 0 {
			return lines
		}
		lines = append(lines, string(b.rem[:i]))
		b.rem = b.rem[i+1:]
	}
}

// Flush returns the retained partial line, if any, and resets the buffer.
// Called once at end-of-stream so a final unterminated line is not dropped.
func (b *LineBuffer) Flush() (string, bool) {
	if len(b.rem) == 0 {
		return "", false
	}
	line := string(b.rem)
	b.rem = nil
	return line, true
}
