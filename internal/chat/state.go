package chat

import "github.com/samber/lo"

// State is an immutable snapshot of the session collection plus the active
// pointer. Every mutating operation returns a fresh State and leaves the
// receiver untouched, so a renderer holding an old snapshot never observes a
// torn update. The collection is never empty and ActiveID always resolves to
// a member.
type State struct {
	Sessions []Session
	ActiveID string
}

// NewState returns a collection holding a single fresh session, active.
func NewState() State {
	s := newSession()
	return State{Sessions: []Session{s}, ActiveID: s.ID}
}

// Active returns the active session. Falls back to the first session should
// the pointer ever dangle; the invariant says it never does.
func (s State) Active() Session {
	if sess, ok := s.Session(s.ActiveID); ok {
		return sess
	}
	return s.Sessions[0]
}

// Session looks up a session by id.
func (s State) Session(id string) (Session, bool) {
	return lo.Find(s.Sessions, func(sess Session) bool { return sess.ID == id })
}

// NewSession prepends a fresh session and makes it active.
func (s State) NewSession() State {
	fresh := newSession()
	return State{
		Sessions: append([]Session{fresh}, s.Sessions...),
		ActiveID: fresh.ID,
	}
}

// Append adds messages to the named session in call order. When the session
// was empty before the append, its title is derived from the first user
// message among them; the title is never recomputed afterwards. Unknown
// session ids are a no-op.
func (s State) Append(sessionID string, msgs ...Message) State {
	sessions := lo.Map(s.Sessions, func(sess Session, _ int) Session {
		if sess.ID != sessionID {
			return sess
		}
		wasEmpty := len(sess.Messages) == 0
		sess.Messages = append(append([]Message(nil), sess.Messages...), msgs...)
		if wasEmpty {
			if first, ok := lo.Find(msgs, func(m Message) bool { return m.Role == RoleUser }); ok {
				sess.Title = deriveTitle(first.Content)
			}
		}
		return sess
	})
	return State{Sessions: sessions, ActiveID: s.ActiveID}
}

// AppendDelta concatenates text onto the last message of the named session,
// if and only if that message is an assistant message. Anything else drops
// the delta: a stray delta must not corrupt a user message.
func (s State) AppendDelta(sessionID, text string) State {
	sessions := lo.Map(s.Sessions, func(sess Session, _ int) Session {
		if sess.ID != sessionID || len(sess.Messages) == 0 {
			return sess
		}
		last := len(sess.Messages) - 1
		if sess.Messages[last].Role != RoleAssistant {
			return sess
		}
		msgs := append([]Message(nil), sess.Messages...)
		msgs[last].Content += text
		sess.Messages = msgs
		return sess
	})
	return State{Sessions: sessions, ActiveID: s.ActiveID}
}

// Delete removes the named session. An emptied collection gets exactly one
// fresh session synthesized; deleting the active session transfers activity
// to the first remaining one.
func (s State) Delete(sessionID string) State {
	sessions := lo.Filter(s.Sessions, func(sess Session, _ int) bool {
		return sess.ID != sessionID
	})
	if len(sessions) == 0 {
		sessions = []Session{newSession()}
	}
	active := s.ActiveID
	if sessionID == active {
		active = sessions[0].ID
	}
	return State{Sessions: sessions, ActiveID: active}
}

// Switch sets the active pointer. No-op when the id is absent.
func (s State) Switch(sessionID string) State {
	if _, ok := s.Session(sessionID); !ok {
		return s
	}
	return State{Sessions: s.Sessions, ActiveID: sessionID}
}
