package client

import (
	"fmt"
	"strings"

	"github.com/plantware/blogcms/blog/domain"
)

const maxTitleLength = 200

// Validate checks a post against the publishing rules before it is sent to
// the server. All violations are collected into a single validation error
// rather than failing on the first.
func Validate(post *domain.Post) error {
	var violations []string

	title := strings.TrimSpace(post.Title)
	if title == "" {
		violations = append(violations, "title is required")
	} else if len(title) > maxTitleLength {
		violations = append(violations, fmt.Sprintf("title must be %d characters or fewer", maxTitleLength))
	}

	if post.Content == nil || post.Content.IsEmpty() {
		violations = append(violations, "content must have at least one block")
	}

	if post.Status != "" && post.Status != domain.StatusDraft && post.Status != domain.StatusPublished {
		violations = append(violations, fmt.Sprintf("status must be %q or %q", domain.StatusDraft, domain.StatusPublished))
	}

	if len(violations) == 0 {
		return nil
	}
	return &Error{
		Kind:       KindValidation,
		Message:    "post failed validation",
		Violations: violations,
	}
}
