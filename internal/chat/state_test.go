package chat_test

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"kbchat/internal/chat"
)

func send(s chat.State, sessionID, text string) chat.State {
	return s.Append(sessionID, chat.NewUserMessage(text), chat.NewAssistantPlaceholder())
}

func TestNewStateHasOneActiveSession(t *testing.T) {
	s := chat.NewState()
	if len(s.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(s.Sessions))
	}
	if s.ActiveID != s.Sessions[0].ID {
		t.Errorf("active id %q does not match the only session %q", s.ActiveID, s.Sessions[0].ID)
	}
	if got := s.Sessions[0].Title; got != chat.DefaultTitle {
		t.Errorf("fresh session title = %q, want %q", got, chat.DefaultTitle)
	}
}

func TestTitleDerivedFromFirstUserMessage(t *testing.T) {
	s := chat.NewState()
	id := s.ActiveID

	s = send(s, id, "Hello world, this is a test message")
	if got, want := s.Active().Title, "Hello world, this is"; got != want {
		t.Fatalf("title = %q, want %q", got, want)
	}

	// A second message must not recompute the title.
	s = send(s, id, "completely different text")
	if got, want := s.Active().Title, "Hello world, this is"; got != want {
		t.Errorf("title changed on second send: %q, want %q", got, want)
	}
}

func TestTitleShorterThanLimitKeptWhole(t *testing.T) {
	s := chat.NewState()
	s = send(s, s.ActiveID, "  hi there  ")
	if got := s.Active().Title; got != "hi there" {
		t.Errorf("title = %q, want %q", got, "hi there")
	}
}

func TestAppendUnknownSessionIsNoop(t *testing.T) {
	s := chat.NewState()
	next := send(s, "no-such-id", "hello")
	if len(next.Active().Messages) != 0 {
		t.Errorf("append to unknown session mutated the active session")
	}
}

func TestAppendDeltaOnlyTargetsAssistantTail(t *testing.T) {
	s := chat.NewState()
	id := s.ActiveID

	// Empty session: delta has no target, drop.
	s2 := s.AppendDelta(id, "stray")
	if len(s2.Active().Messages) != 0 {
		t.Fatalf("delta to empty session created a message")
	}

	// Last message is a user message: drop rather than corrupt it.
	s3 := s.Append(id, chat.NewUserMessage("question"))
	s3 = s3.AppendDelta(id, "stray")
	if got := s3.Active().Messages[0].Content; got != "question" {
		t.Errorf("user message corrupted by delta: %q", got)
	}

	// Proper placeholder tail: deltas concatenate in order.
	s4 := send(s, id, "question")
	s4 = s4.AppendDelta(id, "a").AppendDelta(id, "b")
	msgs := s4.Active().Messages
	if got := msgs[len(msgs)-1].Content; got != "ab" {
		t.Errorf("assistant content = %q, want %q", got, "ab")
	}
}

func TestDeleteActiveReassignsToFirstRemaining(t *testing.T) {
	s := chat.NewState().NewSession().NewSession() // 3 sessions, newest active
	victim := s.ActiveID

	s = s.Delete(victim)
	if len(s.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(s.Sessions))
	}
	if s.ActiveID != s.Sessions[0].ID {
		t.Errorf("active id %q, want first remaining %q", s.ActiveID, s.Sessions[0].ID)
	}
}

func TestDeleteNonActiveKeepsActive(t *testing.T) {
	s := chat.NewState()
	first := s.ActiveID
	s = s.NewSession()
	active := s.ActiveID

	s = s.Delete(first)
	if s.ActiveID != active {
		t.Errorf("active id changed to %q after deleting a background session", s.ActiveID)
	}
}

func TestDeleteLastSessionSynthesizesFreshOne(t *testing.T) {
	s := chat.NewState()
	old := s.ActiveID

	s = s.Delete(old)
	if len(s.Sessions) != 1 {
		t.Fatalf("expected 1 synthesized session, got %d", len(s.Sessions))
	}
	if s.Sessions[0].ID == old {
		t.Errorf("synthesized session reused the deleted id")
	}
	if s.ActiveID != s.Sessions[0].ID {
		t.Errorf("synthesized session is not active")
	}
}

func TestSwitchAbsentIsNoop(t *testing.T) {
	s := chat.NewState()
	if got := s.Switch("no-such-id"); got.ActiveID != s.ActiveID {
		t.Errorf("switch to absent id moved the active pointer")
	}
}

// Older snapshots must stay valid after any mutation; a renderer may still be
// holding one.
func TestSnapshotsAreImmutable(t *testing.T) {
	s := chat.NewState()
	id := s.ActiveID
	s = send(s, id, "question")

	before := s
	beforeLen := len(before.Active().Messages)
	beforeContent := before.Active().Messages[beforeLen-1].Content

	_ = s.AppendDelta(id, "mutation")
	_ = s.NewSession()
	_ = s.Delete(id)

	if len(before.Active().Messages) != beforeLen {
		t.Errorf("snapshot message count changed")
	}
	if got := before.Active().Messages[beforeLen-1].Content; got != beforeContent {
		t.Errorf("snapshot content changed: %q, want %q", got, beforeContent)
	}
}

// Property: the final assistant content equals the concatenation of all
// deltas in delivery order.
func TestDeltaOrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := chat.NewState()
		id := s.ActiveID
		s = send(s, id, "question")

		deltas := rapid.SliceOfN(rapid.String(), 0, 20).Draw(t, "deltas")
		for _, d := range deltas {
			s = s.AppendDelta(id, d)
		}

		msgs := s.Active().Messages
		got := msgs[len(msgs)-1].Content
		if want := strings.Join(deltas, ""); got != want {
			t.Fatalf("assistant content = %q, want %q", got, want)
		}
	})
}

// Property: no sequence of operations empties the collection or leaves the
// active pointer dangling.
func TestCollectionInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := chat.NewState()

		n := rapid.IntRange(1, 40).Draw(t, "ops")
		for i := 0; i < n; i++ {
			pick := func() string {
				idx := rapid.IntRange(0, len(s.Sessions)-1).Draw(t, "idx")
				return s.Sessions[idx].ID
			}
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				s = s.NewSession()
			case 1:
				s = s.Delete(pick())
			case 2:
				s = s.Switch(pick())
			case 3:
				s = send(s, pick(), rapid.StringN(1, 40, -1).Draw(t, "text"))
			}

			if len(s.Sessions) < 1 {
				t.Fatalf("collection emptied after op %d", i)
			}
			if _, ok := s.Session(s.ActiveID); !ok {
				t.Fatalf("active id %q does not resolve after op %d", s.ActiveID, i)
			}
		}
	})
}
