package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// dataPrefix frames a delta line; the remainder after the prefix is the
// verbatim delta text. Every other line is reserved and ignored.
const dataPrefix = "data: "

// Kind discriminates stream events.
type Kind int

const (
	KindDelta Kind = iota
	KindDone
	KindError
)

// Event is one transport event. For one opened stream the sequence is zero
// or more Delta events followed by exactly one Done or Error, never both.
type Event struct {
	Kind  Kind
	Delta string // set for KindDelta
	Err   error  // set for KindError
}

// Client talks to the chat backend.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

// NewClient returns a Client for the given base URL. A zero timeout means
// the stream may run indefinitely.
func NewClient(base string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// OpenStream issues one POST {base}/chat/ request carrying the message and
// session id, and returns a channel of events in arrival order. The channel
// is closed after the terminal event. The caller's goroutine never blocks;
// reading happens on a dedicated goroutine.
func (c *Client) OpenStream(ctx context.Context, message, sessionID string) <-chan Event {
	events := make(chan Event, 32)
	go func() {
		defer close(events)
		c.stream(ctx, message, sessionID, events)
	}()
	return events
}

func (c *Client) stream(ctx context.Context, message, sessionID string, events chan<- Event) {
	payload, err := json.Marshal(chatRequest{Message: message, SessionID: sessionID})
	if err != nil {
		events <- Event{Kind: KindError, Err: fmt.Errorf("encoding request: %w", err)}
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/", bytes.NewReader(payload))
	if err != nil {
		events <- Event{Kind: KindError, Err: fmt.Errorf("building request: %w", err)}
		return
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("opening stream", zap.String("session_id", sessionID), zap.Int("message_len", len(message)))

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("stream request failed", zap.Error(err))
		events <- Event{Kind: KindError, Err: fmt.Errorf("request failed: %w", err)}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.log.Warn("stream rejected", zap.String("status", resp.Status))
		events <- Event{Kind: KindError, Err: fmt.Errorf("backend returned %s", resp.Status)}
		return
	}

	// Read the body incrementally; each chunk feeds the line buffer and each
	// complete "data: " line becomes one delta.
	var buf LineBuffer
	chunk := make([]byte, 4096)
	deltas := 0
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			for _, line := range buf.Feed(chunk[:n]) {
				deltas += emit(events, line)
			}
		}
		switch {
		case err == io.EOF:
			if line, ok := buf.Flush(); ok {
				deltas += emit(events, line)
			}
			c.log.Debug("stream complete", zap.String("session_id", sessionID), zap.Int("deltas", deltas))
			events <- Event{Kind: KindDone}
			return
		case err != nil:
			c.log.Warn("stream read failed", zap.String("session_id", sessionID), zap.Error(err))
			events <- Event{Kind: KindError, Err: fmt.Errorf("reading stream: %w", err)}
			return
		}
	}
}

// emit sends a Delta for an event payload line and reports how many deltas
// it produced (0 or 1). Non-payload lines, blank separators included, are
// ignored.
func emit(events chan<- Event, line string) int {
	if !strings.HasPrefix(line, dataPrefix) {
		return 0
	}
	events <- Event{Kind: KindDelta, Delta: line[len(dataPrefix):]}
	return 1
}
