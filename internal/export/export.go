// Package export renders a session transcript to a shareable file.
// Export is one-way: nothing written here is ever read back into the client.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kbchat/internal/chat"
)

// TranscriptRenderer serializes a session transcript to bytes.
type TranscriptRenderer interface {
	Render(s chat.Session) ([]byte, error)
}

// JSONRenderer renders the transcript as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(s chat.Session) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// MarkdownRenderer renders the transcript as human-readable Markdown.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(s chat.Session) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", s.Title)
	fmt.Fprintf(&sb, "_Started %s — %d messages_\n\n",
		s.CreatedAt.Format("2006-01-02 15:04:05"),
		len(s.Messages),
	)

	for _, m := range s.Messages {
		speaker := "You"
		if m.Role == chat.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&sb, "## %s (%s)\n\n", speaker, m.CreatedAt.Format("15:04:05"))
		sb.WriteString(m.Content)
		sb.WriteString("\n\n")
	}

	return []byte(sb.String()), nil
}

// ForFormat returns the renderer and file extension for the given format.
func ForFormat(format string) (TranscriptRenderer, string, error) {
	switch format {
	case "markdown", "md", "":
		return &MarkdownRenderer{}, "md", nil
	case "json":
		return &JSONRenderer{}, "json", nil
	default:
		return nil, "", fmt.Errorf("unknown export format %q", format)
	}
}

// Write renders the session and writes it into dir atomically via a temp
// file + os.Rename. It returns the path of the written file.
func Write(s chat.Session, format, dir string) (string, error) {
	renderer, ext, err := ForFormat(format)
	if err != nil {
		return "", err
	}
	data, err := renderer.Render(s)
	if err != nil {
		return "", fmt.Errorf("rendering transcript: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("kbchat-%s.%s", time.Now().Format("20060102-150405"), ext))

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(dir, "kbchat-*.tmp")
	if err != nil {
		return "", fmt.Errorf("exporting transcript: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("exporting transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("exporting transcript: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("exporting transcript: %w", err)
	}
	return path, nil
}
