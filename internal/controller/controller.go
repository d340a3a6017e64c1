// Package controller owns the session/streaming state machine. It turns user
// intents (send, new, switch, delete) into store mutations and transport
// calls, and transport events back into store mutations. At most one stream
// is in flight process-wide.
package controller

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"kbchat/internal/chat"
	"kbchat/internal/stream"
)

// Phase is the controller's streaming state.
type Phase int

const (
	Idle Phase = iota
	Streaming
)

// interruptionMarker is appended to the assistant reply when a stream fails.
const interruptionMarker = "\n\n[connection interrupted]"

// StreamOpener abstracts the transport so tests can script event sequences.
type StreamOpener interface {
	OpenStream(ctx context.Context, message, sessionID string) <-chan stream.Event
}

// Controller drives the conversation model. It is not safe for concurrent
// use: all intents and events must be applied from a single event loop (the
// TUI update loop), which is also what guarantees deltas land in arrival
// order.
type Controller struct {
	opener StreamOpener
	log    *zap.Logger

	// cancelOnNavigate selects the navigation policy: when true, moving the
	// active session away from the one a stream was opened for suppresses
	// further deltas. When false (the default), the stream keeps updating
	// the captured session in the background.
	cancelOnNavigate bool

	state   chat.State
	phase   Phase
	aborted bool
	// streamID is the session id captured at send time; deltas target it
	// regardless of where the user navigates afterwards.
	streamID string
}

// Option configures a Controller.
type Option func(*Controller)

// WithCancelOnNavigate makes navigation away from the streaming session
// suppress the remaining deltas instead of letting the stream finish in the
// background. The transport still drains the response either way.
func WithCancelOnNavigate(on bool) Option {
	return func(c *Controller) { c.cancelOnNavigate = on }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// New returns a Controller with a single fresh active session.
func New(opener StreamOpener, opts ...Option) *Controller {
	c := &Controller{
		opener: opener,
		log:    zap.NewNop(),
		state:  chat.NewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOpener swaps the transport used for subsequent sends. An in-flight
// stream, if any, is unaffected. Used when a config reload changes the
// backend endpoint.
func (c *Controller) SetOpener(opener StreamOpener) {
	c.opener = opener
}

// Snapshot is the read-only projection the UI renders from.
type Snapshot struct {
	Sessions  []chat.Session
	Active    chat.Session
	ActiveID  string
	Streaming bool
}

// Snapshot returns the current read model.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Sessions:  c.state.Sessions,
		Active:    c.state.Active(),
		ActiveID:  c.state.ActiveID,
		Streaming: c.phase == Streaming,
	}
}

// Send appends the user message plus an empty assistant placeholder to the
// active session and opens a stream bound to that session's id. It reports
// false, with no observable effect, when the text trims to nothing or a
// stream is already in flight. The caller feeds every event from the
// returned channel back through Apply.
func (c *Controller) Send(ctx context.Context, text string) (<-chan stream.Event, bool) {
	text = strings.TrimSpace(text)
	if text == "" || c.phase == Streaming {
		return nil, false
	}

	id := c.state.ActiveID
	c.state = c.state.Append(id,
		chat.NewUserMessage(text),
		chat.NewAssistantPlaceholder(),
	)
	c.phase = Streaming
	c.aborted = false
	c.streamID = id

	c.log.Info("send", zap.String("session_id", id), zap.Int("text_len", len(text)))
	return c.opener.OpenStream(ctx, text, id), true
}

// Apply folds one transport event into the model.
func (c *Controller) Apply(ev stream.Event) {
	switch ev.Kind {
	case stream.KindDelta:
		if !c.aborted {
			c.state = c.state.AppendDelta(c.streamID, ev.Delta)
		}
	case stream.KindDone:
		c.phase = Idle
	case stream.KindError:
		// Partial text already streamed in is kept; the marker records the
		// break. No retry.
		c.log.Warn("stream interrupted", zap.String("session_id", c.streamID), zap.Error(ev.Err))
		c.state = c.state.AppendDelta(c.streamID, interruptionMarker)
		c.phase = Idle
	}
}

// NewSession creates a fresh session and makes it active.
func (c *Controller) NewSession() {
	c.state = c.state.NewSession()
	c.noteNavigation()
}

// SwitchSession moves the active pointer. Absent ids are a no-op.
func (c *Controller) SwitchSession(id string) {
	c.state = c.state.Switch(id)
	c.noteNavigation()
}

// DeleteSession removes a session; the collection never empties and the
// active pointer always resolves afterwards.
func (c *Controller) DeleteSession(id string) {
	c.state = c.state.Delete(id)
	c.noteNavigation()
}

// noteNavigation applies the cancel-on-navigate policy after any intent that
// may have moved the active pointer off the streaming session.
func (c *Controller) noteNavigation() {
	if c.cancelOnNavigate && c.phase == Streaming && c.state.ActiveID != c.streamID {
		c.aborted = true
	}
}
