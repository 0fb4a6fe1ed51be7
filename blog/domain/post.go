package domain

import (
	"context"
	"errors"
	"time"
)

// Post statuses. Only these two values participate in status filtering.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Defaults applied when a post is created without the corresponding field.
const (
	DefaultCategory     = "Technology"
	DefaultAuthor       = "Admin"
	DefaultAuthorTitle  = "Content Creator"
	DefaultAuthorAvatar = "AD"
)

var (
	// ErrPostNotFound is returned when a lookup, update, or delete targets
	// a post that does not exist in the store.
	ErrPostNotFound = errors.New("post not found")

	// ErrDuplicateSlug is returned when an explicitly provided slug collides
	// with a slug already held by another post.
	ErrDuplicateSlug = errors.New("slug already in use")
)

// Post represents a blog article.
// Content is a block-structured document serialized to a string column for
// storage. ID and CreatedAt are assigned at creation time and never change.
type Post struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Content         *Document `json:"content"`
	Excerpt         string    `json:"excerpt"`
	Category        string    `json:"category"`
	Status          string    `json:"status"`
	Author          string    `json:"author"`
	AuthorTitle     string    `json:"authorTitle"`
	AuthorAvatar    string    `json:"authorAvatar"`
	FeaturedImage   string    `json:"featuredImage"`
	CoverImage      string    `json:"coverImage"`
	IsFeatured      bool      `json:"isFeatured"`
	MetaTitle       string    `json:"metaTitle"`
	MetaDescription string    `json:"metaDescription"`
	Keywords        string    `json:"keywords"`
	ImageAlt        string    `json:"imageAlt"`
	ReadTime        int       `json:"readTime"`
	CanonicalURL    string    `json:"canonicalUrl"`
	SEOScore        int       `json:"seoScore"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// PostPatch describes a partial update. Only non-nil fields overwrite the
// stored values; id and createdAt are not patchable.
type PostPatch struct {
	Title           *string   `json:"title,omitempty"`
	Slug            *string   `json:"slug,omitempty"`
	Content         *Document `json:"content,omitempty"`
	Excerpt         *string   `json:"excerpt,omitempty"`
	Category        *string   `json:"category,omitempty"`
	Status          *string   `json:"status,omitempty"`
	Author          *string   `json:"author,omitempty"`
	AuthorTitle     *string   `json:"authorTitle,omitempty"`
	AuthorAvatar    *string   `json:"authorAvatar,omitempty"`
	FeaturedImage   *string   `json:"featuredImage,omitempty"`
	CoverImage      *string   `json:"coverImage,omitempty"`
	IsFeatured      *bool     `json:"isFeatured,omitempty"`
	MetaTitle       *string   `json:"metaTitle,omitempty"`
	MetaDescription *string   `json:"metaDescription,omitempty"`
	Keywords        *string   `json:"keywords,omitempty"`
	ImageAlt        *string   `json:"imageAlt,omitempty"`
	ReadTime        *int      `json:"readTime,omitempty"`
	CanonicalURL    *string   `json:"canonicalUrl,omitempty"`
	SEOScore        *int      `json:"seoScore,omitempty"`
}

// PostFilter narrows List results. Zero values mean "no constraint".
type PostFilter struct {
	Status   string
	Category string
	Search   string
	Limit    int
}

// BulkDeleteResult reports the outcome of a bulk delete, which removes what
// it can and reports per-id failures instead of aborting.
type BulkDeleteResult struct {
	Deleted []int64           `json:"deleted"`
	Errors  []BulkDeleteError `json:"errors"`
}

type BulkDeleteError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

type PostRepository interface {
	List(ctx context.Context, filter PostFilter) ([]*Post, error)
	GetByID(ctx context.Context, id int64) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	Create(ctx context.Context, p *Post) (*Post, error)
	Update(ctx context.Context, id int64, patch PostPatch) (*Post, error)
	Delete(ctx context.Context, id int64) error
	BulkDelete(ctx context.Context, ids []int64) (*BulkDeleteResult, error)
	GenerateUniqueSlug(ctx context.Context, base string, excludeID int64) (string, error)

	ListPublished(ctx context.Context) ([]*Post, error)
	ListFeatured(ctx context.Context) ([]*Post, error)
}

// ApplyDefaults fills the defaultable descriptive fields on a new post.
func (p *Post) ApplyDefaults() {
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.Author == "" {
		p.Author = DefaultAuthor
	}
	if p.AuthorTitle == "" {
		p.AuthorTitle = DefaultAuthorTitle
	}
	if p.AuthorAvatar == "" {
		p.AuthorAvatar = DefaultAuthorAvatar
	}
}

// Apply merges the patch into the post, overwriting only the provided
// fields. The caller owns slug re-derivation and timestamp updates.
func (patch PostPatch) Apply(p *Post) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Content != nil {
		p.Content = patch.Content
	}
	if patch.Excerpt != nil {
		p.Excerpt = *patch.Excerpt
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Author != nil {
		p.Author = *patch.Author
	}
	if patch.AuthorTitle != nil {
		p.AuthorTitle = *patch.AuthorTitle
	}
	if patch.AuthorAvatar != nil {
		p.AuthorAvatar = *patch.AuthorAvatar
	}
	if patch.FeaturedImage != nil {
		p.FeaturedImage = *patch.FeaturedImage
	}
	if patch.CoverImage != nil {
		p.CoverImage = *patch.CoverImage
	}
	if patch.IsFeatured != nil {
		p.IsFeatured = *patch.IsFeatured
	}
	if patch.MetaTitle != nil {
		p.MetaTitle = *patch.MetaTitle
	}
	if patch.MetaDescription != nil {
		p.MetaDescription = *patch.MetaDescription
	}
	if patch.Keywords != nil {
		p.Keywords = *patch.Keywords
	}
	if patch.ImageAlt != nil {
		p.ImageAlt = *patch.ImageAlt
	}
	if patch.ReadTime != nil {
		p.ReadTime = *patch.ReadTime
	}
	if patch.CanonicalURL != nil {
		p.CanonicalURL = *patch.CanonicalURL
	}
	if patch.SEOScore != nil {
		p.SEOScore = *patch.SEOScore
	}
}
