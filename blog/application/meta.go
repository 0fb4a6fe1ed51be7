package application

import (
	"strings"
	"unicode"

	"github.com/plantware/blogcms/blog/domain"
)

const (
	// wordsPerMinute matches the estimate the editor showed authors.
	wordsPerMinute = 200

	maxExcerptLength = 160
)

// EstimateReadTime returns the read time of a document in whole minutes,
// never less than 1 for non-empty content.
func EstimateReadTime(doc *domain.Document) int {
	words := countWords(doc.PlainText())
	if words == 0 {
		return 0
	}

	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	return minutes
}

// DeriveExcerpt produces a short plain-text excerpt from the document,
// cut at a word boundary.
func DeriveExcerpt(doc *domain.Document) string {
	text := strings.TrimSpace(doc.PlainText())
	if len(text) <= maxExcerptLength {
		return text
	}

	cut := text[:maxExcerptLength]
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " .,;:") + "..."
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
