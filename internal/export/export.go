// Package export renders a conversation log as JSON, Markdown or HTML.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Format is an export output format.
type Format string

// Supported formats.
const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ErrUnknownFormat is returned by Render for formats other than the supported ones.
var ErrUnknownFormat = errors.New("unknown export format")

// Message is one exported message.
type Message struct {
	Index     int       `json:"index"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the exported view of a conversation.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Document is a rendered export.
type Document struct {
	ContentType string
	Filename    string
	Body        []byte
}

// ParseFormat maps a query value onto a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatMarkdown, FormatHTML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Render renders conv in format f.
func Render(conv Conversation, f Format) (Document, error) {
	switch f {
	case FormatJSON:
		body, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return Document{}, fmt.Errorf("failed to marshal conversation: %w", err)
		}
		return Document{ContentType: "application/json", Filename: filename(conv, "json"), Body: body}, nil

	case FormatMarkdown:
		return Document{
			ContentType: "text/markdown; charset=utf-8",
			Filename:    filename(conv, "md"),
			Body:        []byte(Markdown(conv)),
		}, nil

	case FormatHTML:
		var buf bytes.Buffer
		buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
		buf.WriteString(htmlEscape(conv.Title))
		buf.WriteString("</title></head><body>\n")
		if err := md.Convert([]byte(Markdown(conv)), &buf); err != nil {
			return Document{}, fmt.Errorf("failed to render html: %w", err)
		}
		buf.WriteString("</body></html>\n")
		return Document{ContentType: "text/html; charset=utf-8", Filename: filename(conv, "html"), Body: buf.Bytes()}, nil

	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Markdown renders the conversation as a Markdown transcript.
func Markdown(conv Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	fmt.Fprintf(&b, "_Exported %s_\n", conv.UpdatedAt.UTC().Format(time.RFC3339))

	for _, m := range conv.Messages {
		b.WriteString("\n")
		switch {
		case m.Role == "assistant" && m.Model != "":
			fmt.Fprintf(&b, "## Assistant (%s/%s)\n\n", m.Provider, m.Model)
		case m.Role == "assistant":
			b.WriteString("## Assistant\n\n")
		default:
			b.WriteString("## User\n\n")
		}
		b.WriteString(strings.TrimRight(m.Content, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func filename(conv Conversation, ext string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, conv.Title)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "conversation"
	}
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "-")
	}
	return slug + "." + ext
}

func htmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}
