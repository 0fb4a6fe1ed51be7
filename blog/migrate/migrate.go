package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/plantware/blogcms/blog/application"
	"github.com/plantware/blogcms/blog/domain"
)

// Migrator imports legacy post exports from a directory of JSON files into
// the repository. Re-runs are safe: posts whose slug is already stored are
// skipped.
type Migrator struct {
	dir  string
	repo domain.PostRepository
}

func New(dir string, repo domain.PostRepository) *Migrator {
	return &Migrator{dir: dir, repo: repo}
}

// Report summarizes a migration run.
type Report struct {
	Total    int      `json:"total"`
	Migrated int      `json:"migrated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// legacyPost mirrors the export format of the previous system. Ids there
// were opaque strings, so they are dropped and the store assigns fresh
// ones. Content arrives either as block JSON or as a plain string.
type legacyPost struct {
	ID              json.RawMessage  `json:"id"`
	Title           string           `json:"title"`
	Slug            string           `json:"slug"`
	Content         *domain.Document `json:"content"`
	Excerpt         string           `json:"excerpt"`
	Category        string           `json:"category"`
	Status          string           `json:"status"`
	Author          string           `json:"author"`
	AuthorTitle     string           `json:"authorTitle"`
	AuthorAvatar    string           `json:"authorAvatar"`
	FeaturedImage   string           `json:"featuredImage"`
	CoverImage      string           `json:"coverImage"`
	IsFeatured      bool             `json:"isFeatured"`
	MetaTitle       string           `json:"metaTitle"`
	MetaDescription string           `json:"metaDescription"`
	Keywords        string           `json:"keywords"`
	ImageAlt        string           `json:"imageAlt"`
	ReadTime        int              `json:"readTime"`
	CanonicalURL    string           `json:"canonicalUrl"`
	SEOScore        int              `json:"seoScore"`
}

func (lp *legacyPost) toDomain() *domain.Post {
	return &domain.Post{
		Title:           lp.Title,
		Slug:            lp.Slug,
		Content:         lp.Content,
		Excerpt:         lp.Excerpt,
		Category:        lp.Category,
		Status:          lp.Status,
		Author:          lp.Author,
		AuthorTitle:     lp.AuthorTitle,
		AuthorAvatar:    lp.AuthorAvatar,
		FeaturedImage:   lp.FeaturedImage,
		CoverImage:      lp.CoverImage,
		IsFeatured:      lp.IsFeatured,
		MetaTitle:       lp.MetaTitle,
		MetaDescription: lp.MetaDescription,
		Keywords:        lp.Keywords,
		ImageAlt:        lp.ImageAlt,
		ReadTime:        lp.ReadTime,
		CanonicalURL:    lp.CanonicalURL,
		SEOScore:        lp.SEOScore,
	}
}

// Run imports every .json file in the source directory. An unreadable
// directory is fatal; a bad file or a failed insert is recorded in the
// report and the run continues.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading legacy posts directory %s: %w", m.dir, err)
	}

	report := &Report{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		posts, err := readLegacyFile(path)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		for _, lp := range posts {
			report.Total++
			m.importPost(ctx, entry.Name(), lp, report)
		}
	}

	log.Info().
		Int("total", report.Total).
		Int("migrated", report.Migrated).
		Int("skipped", report.Skipped).
		Int("errors", len(report.Errors)).
		Msg("legacy post migration finished")
	return report, nil
}

func (m *Migrator) importPost(ctx context.Context, file string, lp *legacyPost, report *Report) {
	if strings.TrimSpace(lp.Title) == "" {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: post without a title", file))
		return
	}

	slug := lp.Slug
	if slug == "" {
		slug = domain.Slugify(lp.Title)
	}
	_, err := m.repo.GetBySlug(ctx, slug)
	switch {
	case err == nil:
		report.Skipped++
		log.Debug().Str("slug", slug).Msg("already migrated, skipping")
		return
	case !errors.Is(err, domain.ErrPostNotFound):
		report.Errors = append(report.Errors, fmt.Sprintf("%s: checking slug %q: %v", file, slug, err))
		return
	}

	post := lp.toDomain()
	if post.ReadTime == 0 {
		post.ReadTime = application.EstimateReadTime(post.Content)
	}
	if post.Excerpt == "" {
		post.Excerpt = application.DeriveExcerpt(post.Content)
	}
	if _, err := m.repo.Create(ctx, post); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: inserting %q: %v", file, lp.Title, err))
		return
	}
	report.Migrated++
}

// readLegacyFile accepts either a single post object or an array of posts.
func readLegacyFile(path string) ([]*legacyPost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var posts []*legacyPost
		if err := json.Unmarshal(data, &posts); err != nil {
			return nil, fmt.Errorf("parsing post array: %w", err)
		}
		return posts, nil
	}

	var post legacyPost
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("parsing post: %w", err)
	}
	return []*legacyPost{&post}, nil
}
