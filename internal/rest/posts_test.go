package rest

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/plantware/blogcms/blog/application"
	"github.com/plantware/blogcms/blog/domain"
	"github.com/plantware/blogcms/blog/persistence"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			content TEXT,
			excerpt TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'Technology',
			status TEXT NOT NULL DEFAULT 'draft',
			author TEXT NOT NULL DEFAULT 'Admin',
			author_title TEXT NOT NULL DEFAULT 'Content Creator',
			author_avatar TEXT NOT NULL DEFAULT 'AD',
			featured_image TEXT NOT NULL DEFAULT '',
			cover_image TEXT NOT NULL DEFAULT '',
			is_featured INTEGER NOT NULL DEFAULT 0,
			meta_title TEXT NOT NULL DEFAULT '',
			meta_description TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			image_alt TEXT NOT NULL DEFAULT '',
			read_time INTEGER NOT NULL DEFAULT 0,
			canonical_url TEXT NOT NULL DEFAULT '',
			seo_score INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("failed to create posts table: %v", err)
	}

	router := gin.New()
	handler := NewPostsHandler(persistence.NewPostRepository(db), application.NewContentRenderer())
	NewApi(router, handler, "test")
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodePost(t *testing.T, w *httptest.ResponseRecorder) domain.Post {
	t.Helper()
	var post domain.Post
	if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
		t.Fatalf("failed to decode post: %v", err)
	}
	return post
}

func decodePosts(t *testing.T, w *httptest.ResponseRecorder) []domain.Post {
	t.Helper()
	var posts []domain.Post
	if err := json.Unmarshal(w.Body.Bytes(), &posts); err != nil {
		t.Fatalf("failed to decode posts: %v", err)
	}
	return posts
}

func paragraphBody(title, text string) map[string]any {
	return map[string]any{
		"title": title,
		"content": map[string]any{
			"blocks": []map[string]any{
				{"type": "paragraph", "data": map[string]any{"text": text}},
			},
		},
	}
}

func TestCreatePost(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/posts", paragraphBody("Hello World", "Welcome."))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	post := decodePost(t, w)
	if post.ID == 0 {
		t.Error("expected a server-assigned id")
	}
	if post.Slug != "hello-world" {
		t.Errorf("expected slug hello-world, got %q", post.Slug)
	}
	if post.Status != domain.StatusDraft {
		t.Errorf("expected draft default, got %q", post.Status)
	}
}

func TestCreateDerivesReadTimeAndExcerpt(t *testing.T) {
	router := setupRouter(t)

	text := strings.Repeat("machining tolerances matter on every production run ", 10)
	w := doJSON(t, router, http.MethodPost, "/api/posts", paragraphBody("Derived Metadata", text))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	post := decodePost(t, w)
	if post.ReadTime != 1 {
		t.Errorf("ReadTime = %d, want 1 for ~80 words", post.ReadTime)
	}
	if post.Excerpt == "" || len(post.Excerpt) > 163 {
		t.Errorf("expected a derived excerpt, got %q", post.Excerpt)
	}

	// Caller-supplied values are kept.
	body := paragraphBody("Explicit Metadata", text)
	body["readTime"] = 7
	body["excerpt"] = "hand-written summary"
	post = decodePost(t, doJSON(t, router, http.MethodPost, "/api/posts", body))
	if post.ReadTime != 7 {
		t.Errorf("ReadTime = %d, want explicit 7", post.ReadTime)
	}
	if post.Excerpt != "hand-written summary" {
		t.Errorf("Excerpt = %q, want explicit value", post.Excerpt)
	}
}

func TestCreateDuplicateSlugRejected(t *testing.T) {
	router := setupRouter(t)

	body := paragraphBody("First", "text")
	body["slug"] = "taken"
	if w := doJSON(t, router, http.MethodPost, "/api/posts", body); w.Code != http.StatusCreated {
		t.Fatalf("setup create failed: %d", w.Code)
	}

	body2 := paragraphBody("Second", "text")
	body2["slug"] = "taken"
	w := doJSON(t, router, http.MethodPost, "/api/posts", body2)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate slug, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "slug already exists") {
		t.Errorf("unexpected error body: %s", w.Body.String())
	}
}

func TestGetPostNotFound(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/posts/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/posts/not-a-number", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestUpdateMergesAndMapsErrors(t *testing.T) {
	router := setupRouter(t)

	created := decodePost(t, doJSON(t, router, http.MethodPost, "/api/posts", paragraphBody("Original Title", "text")))

	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/posts/%d", created.ID), map[string]any{
		"excerpt": "just the excerpt",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decodePost(t, w)
	if updated.Title != "Original Title" {
		t.Errorf("untouched field changed: %q", updated.Title)
	}
	if updated.Excerpt != "just the excerpt" {
		t.Errorf("patched field not applied: %q", updated.Excerpt)
	}
	if updated.ID != created.ID {
		t.Errorf("id changed on update: %d != %d", updated.ID, created.ID)
	}

	if w := doJSON(t, router, http.MethodPut, "/api/posts/999", map[string]any{"title": "x"}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 updating missing post, got %d", w.Code)
	}
}

func TestDeletePost(t *testing.T) {
	router := setupRouter(t)

	created := decodePost(t, doJSON(t, router, http.MethodPost, "/api/posts", paragraphBody("Doomed", "text")))

	w := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/posts/%d", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":true`) {
		t.Errorf("unexpected delete body: %s", w.Body.String())
	}

	if w := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/posts/%d", created.ID), nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/posts/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", w.Code)
	}

	doJSON(t, router, http.MethodPost, "/api/posts", paragraphBody("CNC Spindle Maintenance", "text"))
	doJSON(t, router, http.MethodPost, "/api/posts", paragraphBody("Inventory Basics", "text"))

	w = doJSON(t, router, http.MethodGet, "/api/posts/search?q=spindle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	posts := decodePosts(t, w)
	if len(posts) != 1 || posts[0].Title != "CNC Spindle Maintenance" {
		t.Errorf("unexpected search results: %+v", posts)
	}
}

func TestBulkDelete(t *testing.T) {
	router := setupRouter(t)

	first := decodePost(t, doJSON(t, router, http.MethodPost, "/api/posts", paragraphBody("One", "text")))

	if w := doJSON(t, router, http.MethodPost, "/api/posts/bulk-delete", map[string]any{"postIds": []int64{}}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids, got %d", w.Code)
	}

	w := doJSON(t, router, http.MethodPost, "/api/posts/bulk-delete", map[string]any{"postIds": []int64{first.ID, 999}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result domain.BulkDeleteResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(result.Deleted) != 1 || len(result.Errors) != 1 {
		t.Errorf("unexpected bulk result: %+v", result)
	}
}

func TestGetBySlugWithRendering(t *testing.T) {
	router := setupRouter(t)

	body := map[string]any{
		"title": "Render Me",
		"content": map[string]any{
			"blocks": []map[string]any{
				{"type": "header", "data": map[string]any{"text": "Shop Floor", "level": 2}},
				{"type": "paragraph", "data": map[string]any{"text": "Plain text."}},
			},
		},
	}
	doJSON(t, router, http.MethodPost, "/api/posts", body)

	w := doJSON(t, router, http.MethodGet, "/api/posts/slug/render-me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	plain := decodePost(t, w)
	if plain.Content == nil || len(plain.Content.Blocks) != 2 {
		t.Errorf("expected full content on slug fetch, got %+v", plain.Content)
	}

	w = doJSON(t, router, http.MethodGet, "/api/posts/slug/render-me?render=html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rendered struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rendered); err != nil {
		t.Fatalf("failed to decode rendered response: %v", err)
	}
	if !strings.Contains(rendered.HTML, "<h2>Shop Floor</h2>") {
		t.Errorf("expected rendered header, got %q", rendered.HTML)
	}

	if w := doJSON(t, router, http.MethodGet, "/api/posts/slug/missing", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown slug, got %d", w.Code)
	}
}

func TestCreatePublishFilterFlow(t *testing.T) {
	router := setupRouter(t)

	created := decodePost(t, doJSON(t, router, http.MethodPost, "/api/posts", paragraphBody("Lifecycle", "text")))
	if created.Status != domain.StatusDraft {
		t.Fatalf("expected new post to start as draft, got %q", created.Status)
	}

	published := decodePosts(t, doJSON(t, router, http.MethodGet, "/api/posts?status=published", nil))
	if len(published) != 0 {
		t.Fatalf("draft should not appear in published filter: %+v", published)
	}

	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/posts/%d", created.ID), map[string]any{
		"status": domain.StatusPublished,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("publish failed: %d", w.Code)
	}

	published = decodePosts(t, doJSON(t, router, http.MethodGet, "/api/posts?status=published", nil))
	if len(published) != 1 || published[0].ID != created.ID {
		t.Fatalf("expected the published post in the filter, got %+v", published)
	}
	if published[0].Content != nil {
		t.Error("list responses should omit content")
	}
}

func TestHealth(t *testing.T) {
	router := setupRouter(t)

	for _, path := range []string{"/api/health", "/health"} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 from %s, got %d", path, w.Code)
		}
		var body struct {
			Status  string `json:"status"`
			Version string `json:"version"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode health body: %v", err)
		}
		if body.Status != "ok" || body.Version != "test" {
			t.Errorf("unexpected health body from %s: %+v", path, body)
		}
	}
}
