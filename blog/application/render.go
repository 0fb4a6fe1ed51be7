package application

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/plantware/blogcms/blog/domain"
)

// ContentRenderer converts a block-structured document to HTML for the
// public read path.
type ContentRenderer interface {
	Render(doc *domain.Document) (string, error)
}

type contentRenderer struct {
	markdown goldmark.Markdown
}

// NewContentRenderer builds the renderer used for published posts. Block
// text is treated as inline Markdown, which is how the editor stored
// emphasis and links.
func NewContentRenderer() ContentRenderer {
	markdown := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Strikethrough,
		),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)

	return &contentRenderer{
		markdown: markdown,
	}
}

func (r *contentRenderer) Render(doc *domain.Document) (string, error) {
	if doc == nil {
		return "", nil
	}

	// Unparseable legacy content renders as one escaped paragraph.
	if doc.Raw != "" {
		return "<p>" + html.EscapeString(doc.Raw) + "</p>\n", nil
	}

	var out strings.Builder
	for _, block := range doc.Blocks {
		switch block.Type {
		case domain.BlockHeader:
			level := block.Data.Level
			if level < 1 || level > 6 {
				level = 2
			}
			fmt.Fprintf(&out, "<h%d>%s</h%d>\n", level, html.EscapeString(block.Data.Text), level)

		case domain.BlockParagraph:
			converted, err := r.convert(block.Data.Text)
			if err != nil {
				return "", err
			}
			out.WriteString(converted)

		case domain.BlockList:
			tag := "ul"
			if block.Data.Style == "ordered" {
				tag = "ol"
			}
			fmt.Fprintf(&out, "<%s>\n", tag)
			for _, item := range block.Data.Items {
				fmt.Fprintf(&out, "<li>%s</li>\n", html.EscapeString(item))
			}
			fmt.Fprintf(&out, "</%s>\n", tag)

		case domain.BlockQuote:
			converted, err := r.convert(block.Data.Text)
			if err != nil {
				return "", err
			}
			out.WriteString("<blockquote>\n" + converted + "</blockquote>\n")
			if block.Data.Caption != "" {
				fmt.Fprintf(&out, "<cite>%s</cite>\n", html.EscapeString(block.Data.Caption))
			}

		default:
			// Unknown block types are skipped rather than failing the page.
			continue
		}
	}

	return out.String(), nil
}

func (r *contentRenderer) convert(text string) (string, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to convert block text: %w", err)
	}
	return buf.String(), nil
}
