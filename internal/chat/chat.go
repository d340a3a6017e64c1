// Package chat holds the in-memory conversation model: messages, sessions,
// and the immutable collection state the rest of the application reads from.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultTitle is the placeholder title a session carries until its first
// user message arrives.
const DefaultTitle = "new conversation"

// titleRuneLimit caps derived session titles at 20 characters.
const titleRuneLimit = 20

// Message is a single entry in a session transcript.
// Content grows in place only for the assistant placeholder while a reply is
// streaming; a user message's content is never rewritten.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one conversation thread: an append-only message log with its own
// identity and a title derived from the first user message.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// NewUserMessage builds a user message from already-trimmed input text.
func NewUserMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
}

// NewAssistantPlaceholder builds the empty assistant message that absorbs
// streamed deltas.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
	}
}

func newSession() Session {
	return Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		CreatedAt: time.Now(),
	}
}

// deriveTitle returns the first 20 characters of the trimmed text.
func deriveTitle(text string) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) > titleRuneLimit {
		r = r[:titleRuneLimit]
	}
	return string(r)
}
