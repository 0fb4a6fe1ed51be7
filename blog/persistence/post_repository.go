package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/plantware/blogcms/blog/domain"
	"github.com/plantware/blogcms/shared/db"
)

var _ domain.PostRepository = (*SQLitePostRepository)(nil)

// SQLitePostRepository implements domain.PostRepository over a SQL database
// (SQLite). Content documents are serialized to the content column on write
// and parsed back on read; unparseable stored content is passed through as
// a raw string rather than failing the read.
type SQLitePostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new SQLitePostRepository from a standard sql.DB
func NewPostRepository(db *sql.DB) *SQLitePostRepository {
	return &SQLitePostRepository{
		db: db,
	}
}

const postColumns = `
	id, title, slug, content, excerpt, category, status,
	author, author_title, author_avatar, featured_image, cover_image,
	is_featured, meta_title, meta_description, keywords, image_alt,
	read_time, canonical_url, seo_score, created_at, updated_at
`

const insertPostQuery = `
	INSERT INTO posts (
		title, slug, content, excerpt, category, status,
		author, author_title, author_avatar, featured_image, cover_image,
		is_featured, meta_title, meta_description, keywords, image_alt,
		read_time, canonical_url, seo_score, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Create persists a new post. A missing slug is derived from the title with
// uniqueness resolution; an explicit slug that collides fails with
// domain.ErrDuplicateSlug. The slug check and insert share one transaction
// to narrow the check-then-insert window; the UNIQUE constraint on the slug
// column backstops concurrent writers.
func (r *SQLitePostRepository) Create(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	if p == nil {
		return nil, fmt.Errorf("post cannot be nil")
	}
	if p.Title == "" && p.Slug == "" {
		return nil, fmt.Errorf("post needs a title or an explicit slug")
	}

	post := *p
	post.ApplyDefaults()

	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		if post.Slug == "" {
			slug, err := r.GenerateUniqueSlug(txCtx, domain.Slugify(post.Title), 0)
			if err != nil {
				return err
			}
			post.Slug = slug
		} else {
			taken, err := r.slugTaken(txCtx, post.Slug, 0)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: %q", domain.ErrDuplicateSlug, post.Slug)
			}
		}

		content, err := post.Content.Serialize()
		if err != nil {
			return fmt.Errorf("failed to serialize content: %w", err)
		}

		executor := db.GetExecutor(txCtx, r.db)
		result, err := executor.ExecContext(txCtx, insertPostQuery,
			post.Title, post.Slug, content, post.Excerpt, post.Category, post.Status,
			post.Author, post.AuthorTitle, post.AuthorAvatar, post.FeaturedImage, post.CoverImage,
			post.IsFeatured, post.MetaTitle, post.MetaDescription, post.Keywords, post.ImageAlt,
			post.ReadTime, post.CanonicalURL, post.SEOScore, post.CreatedAt, post.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read inserted id: %w", err)
		}
		post.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &post, nil
}

const updatePostQuery = `
	UPDATE posts SET
		title = ?, slug = ?, content = ?, excerpt = ?, category = ?, status = ?,
		author = ?, author_title = ?, author_avatar = ?, featured_image = ?, cover_image = ?,
		is_featured = ?, meta_title = ?, meta_description = ?, keywords = ?, image_alt = ?,
		read_time = ?, canonical_url = ?, seo_score = ?, updated_at = ?
	WHERE id = ?
`

// Update merges the patch into the stored post. Only patched fields change;
// id and created_at are preserved no matter what the patch carries. When the
// title changes without an explicit slug, the slug is re-derived.
func (r *SQLitePostRepository) Update(ctx context.Context, id int64, patch domain.PostPatch) (*domain.Post, error) {
	var updated *domain.Post

	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		post, err := r.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		createdAt := post.CreatedAt
		prevSlug := post.Slug
		patch.Apply(post)
		post.ID = id
		post.CreatedAt = createdAt
		post.UpdatedAt = time.Now().UTC()

		// An empty patched slug counts as absent: the stored slug stays,
		// or is re-derived below when the title changed.
		if patch.Slug != nil && *patch.Slug == "" {
			post.Slug = prevSlug
		}

		switch {
		case patch.Slug != nil && *patch.Slug != "":
			taken, err := r.slugTaken(txCtx, post.Slug, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: %q", domain.ErrDuplicateSlug, post.Slug)
			}
		case patch.Title != nil:
			slug, err := r.GenerateUniqueSlug(txCtx, domain.Slugify(post.Title), id)
			if err != nil {
				return err
			}
			post.Slug = slug
		}

		content, err := post.Content.Serialize()
		if err != nil {
			return fmt.Errorf("failed to serialize content: %w", err)
		}

		executor := db.GetExecutor(txCtx, r.db)
		_, err = executor.ExecContext(txCtx, updatePostQuery,
			post.Title, post.Slug, content, post.Excerpt, post.Category, post.Status,
			post.Author, post.AuthorTitle, post.AuthorAvatar, post.FeaturedImage, post.CoverImage,
			post.IsFeatured, post.MetaTitle, post.MetaDescription, post.Keywords, post.ImageAlt,
			post.ReadTime, post.CanonicalURL, post.SEOScore, post.UpdatedAt,
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}

		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// GetByID retrieves a single post by id.
func (r *SQLitePostRepository) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	query := "SELECT " + postColumns + " FROM posts WHERE id = ?"

	executor := db.GetExecutor(ctx, r.db)
	var row postRow
	err := row.scan(executor.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", domain.ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return row.toDomain(), nil
}

// GetBySlug retrieves a single post by slug.
func (r *SQLitePostRepository) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	query := "SELECT " + postColumns + " FROM posts WHERE slug = ?"

	executor := db.GetExecutor(ctx, r.db)
	var row postRow
	err := row.scan(executor.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: slug %q", domain.ErrPostNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by slug: %w", err)
	}

	return row.toDomain(), nil
}

// List retrieves posts matching the filter, newest updated_at first.
// Search matches case-insensitively against title, content, and excerpt.
func (r *SQLitePostRepository) List(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	query := "SELECT " + postColumns + " FROM posts"
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(title LIKE ? OR content LIKE ? OR excerpt LIKE ?)")
		term := "%" + filter.Search + "%"
		args = append(args, term, term, term)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return r.queryPosts(ctx, query, args...)
}

// ListPublished retrieves published posts, newest updated_at first.
func (r *SQLitePostRepository) ListPublished(ctx context.Context) ([]*domain.Post, error) {
	return r.List(ctx, domain.PostFilter{Status: domain.StatusPublished})
}

const listFeaturedQuery = `
	SELECT ` + postColumns + `
	FROM posts
	WHERE is_featured = 1 AND status = 'published'
	ORDER BY updated_at DESC
`

// ListFeatured retrieves featured published posts, newest updated_at first.
func (r *SQLitePostRepository) ListFeatured(ctx context.Context) ([]*domain.Post, error) {
	return r.queryPosts(ctx, listFeaturedQuery)
}

// Delete removes a post. Deleting an absent post fails with
// domain.ErrPostNotFound.
func (r *SQLitePostRepository) Delete(ctx context.Context, id int64) error {
	executor := db.GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrPostNotFound, id)
	}

	return nil
}

// BulkDelete removes the given posts, collecting per-id failures instead of
// aborting the batch.
func (r *SQLitePostRepository) BulkDelete(ctx context.Context, ids []int64) (*domain.BulkDeleteResult, error) {
	result := &domain.BulkDeleteResult{
		Deleted: make([]int64, 0, len(ids)),
		Errors:  make([]domain.BulkDeleteError, 0),
	}

	for _, id := range ids {
		if err := r.Delete(ctx, id); err != nil {
			result.Errors = append(result.Errors, domain.BulkDeleteError{ID: id, Error: err.Error()})
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}

	return result, nil
}

// GenerateUniqueSlug appends -1, -2, ... to base until no post other than
// excludeID holds the candidate. Deterministic for a given store state.
func (r *SQLitePostRepository) GenerateUniqueSlug(ctx context.Context, base string, excludeID int64) (string, error) {
	candidate := base
	for counter := 1; ; counter++ {
		taken, err := r.slugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}

func (r *SQLitePostRepository) slugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	query := "SELECT id FROM posts WHERE slug = ?"
	args := []any{slug}
	if excludeID != 0 {
		query += " AND id != ?"
		args = append(args, excludeID)
	}

	executor := db.GetExecutor(ctx, r.db)
	var id int64
	err := executor.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check slug %q: %w", slug, err)
	}
	return true, nil
}

func (r *SQLitePostRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*domain.Post, error) {
	executor := db.GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0)
	for rows.Next() {
		var row postRow
		if err := row.scanRows(rows); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, row.toDomain())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

// postRow is a private struct used to scan database rows. Content stays a
// string here and is parsed into a document in toDomain.
type postRow struct {
	ID              int64
	Title           string
	Slug            string
	Content         sql.NullString
	Excerpt         string
	Category        string
	Status          string
	Author          string
	AuthorTitle     string
	AuthorAvatar    string
	FeaturedImage   string
	CoverImage      string
	IsFeatured      bool
	MetaTitle       string
	MetaDescription string
	Keywords        string
	ImageAlt        string
	ReadTime        int
	CanonicalURL    string
	SEOScore        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (pr *postRow) fields() []any {
	return []any{
		&pr.ID, &pr.Title, &pr.Slug, &pr.Content, &pr.Excerpt, &pr.Category, &pr.Status,
		&pr.Author, &pr.AuthorTitle, &pr.AuthorAvatar, &pr.FeaturedImage, &pr.CoverImage,
		&pr.IsFeatured, &pr.MetaTitle, &pr.MetaDescription, &pr.Keywords, &pr.ImageAlt,
		&pr.ReadTime, &pr.CanonicalURL, &pr.SEOScore, &pr.CreatedAt, &pr.UpdatedAt,
	}
}

func (pr *postRow) scan(row *sql.Row) error {
	return row.Scan(pr.fields()...)
}

func (pr *postRow) scanRows(rows *sql.Rows) error {
	return rows.Scan(pr.fields()...)
}

// toDomain converts a scanned row to a domain.Post, parsing the stored
// content string back into a document.
func (pr *postRow) toDomain() *domain.Post {
	return &domain.Post{
		ID:              pr.ID,
		Title:           pr.Title,
		Slug:            pr.Slug,
		Content:         domain.ParseDocument(pr.Content.String),
		Excerpt:         pr.Excerpt,
		Category:        pr.Category,
		Status:          pr.Status,
		Author:          pr.Author,
		AuthorTitle:     pr.AuthorTitle,
		AuthorAvatar:    pr.AuthorAvatar,
		FeaturedImage:   pr.FeaturedImage,
		CoverImage:      pr.CoverImage,
		IsFeatured:      pr.IsFeatured,
		MetaTitle:       pr.MetaTitle,
		MetaDescription: pr.MetaDescription,
		Keywords:        pr.Keywords,
		ImageAlt:        pr.ImageAlt,
		ReadTime:        pr.ReadTime,
		CanonicalURL:    pr.CanonicalURL,
		SEOScore:        pr.SEOScore,
		CreatedAt:       pr.CreatedAt,
		UpdatedAt:       pr.UpdatedAt,
	}
}
