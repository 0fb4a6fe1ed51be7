package domain

import (
	"regexp"
	"strings"
)

var (
	slugStripRegex    = regexp.MustCompile(`[^a-z0-9 -]`)
	slugSpaceRegex    = regexp.MustCompile(`\s+`)
	slugCollapseRegex = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe slug from a post title: lowercase, strip
// everything but letters, digits, spaces, and hyphens, turn whitespace runs
// into single hyphens, collapse hyphen runs, and trim leading/trailing
// hyphens. Uniqueness is the repository's concern, not Slugify's.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStripRegex.ReplaceAllString(s, "")
	s = slugSpaceRegex.ReplaceAllString(s, "-")
	s = slugCollapseRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
