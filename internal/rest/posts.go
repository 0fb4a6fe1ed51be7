package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/plantware/blogcms/blog/application"
	"github.com/plantware/blogcms/blog/domain"
)

// PostsHandler serves the post endpoints over a repository.
type PostsHandler struct {
	repo     domain.PostRepository
	renderer application.ContentRenderer
}

func NewPostsHandler(repo domain.PostRepository, renderer application.ContentRenderer) *PostsHandler {
	return &PostsHandler{repo: repo, renderer: renderer}
}

// List returns post metadata, optionally filtered by status, category,
// search term, and limit. Content bodies are omitted; fetch a single post
// for the full document.
func (h *PostsHandler) List(c *gin.Context) {
	filter := domain.PostFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	posts, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stripContent(posts))
}

func (h *PostsHandler) ListPublished(c *gin.Context) {
	posts, err := h.repo.ListPublished(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stripContent(posts))
}

func (h *PostsHandler) ListFeatured(c *gin.Context) {
	posts, err := h.repo.ListFeatured(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stripContent(posts))
}

// Search requires a q parameter and optionally narrows by category and
// status.
func (h *PostsHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search query is required"})
		return
	}
	posts, err := h.repo.List(c.Request.Context(), domain.PostFilter{
		Search:   q,
		Category: c.Query("category"),
		Status:   c.Query("status"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stripContent(posts))
}

func (h *PostsHandler) GetByID(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	post, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostsHandler) GetBySlug(c *gin.Context) {
	post, err := h.repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}
	if c.Query("render") == "html" {
		html, err := h.renderer.Render(post.Content)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, renderedPost{Post: post, HTML: html})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostsHandler) Create(c *gin.Context) {
	var post domain.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post body: " + err.Error()})
		return
	}
	if post.ReadTime == 0 {
		post.ReadTime = application.EstimateReadTime(post.Content)
	}
	if post.Excerpt == "" {
		post.Excerpt = application.DeriveExcerpt(post.Content)
	}
	created, err := h.repo.Create(c.Request.Context(), &post)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *PostsHandler) Update(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var patch domain.PostPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post body: " + err.Error()})
		return
	}
	updated, err := h.repo.Update(c.Request.Context(), id, patch)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *PostsHandler) Delete(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PostsHandler) BulkDelete(c *gin.Context) {
	var req struct {
		PostIDs []int64 `json:"postIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.PostIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "postIds must not be empty"})
		return
	}
	result, err := h.repo.BulkDelete(c.Request.Context(), req.PostIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type renderedPost struct {
	*domain.Post
	HTML string `json:"html"`
}

func postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("postId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return 0, false
	}
	return id, true
}

// stripContent drops the content body from list responses.
func stripContent(posts []*domain.Post) []*domain.Post {
	out := make([]*domain.Post, len(posts))
	for i, p := range posts {
		meta := *p
		meta.Content = nil
		out[i] = &meta
	}
	return out
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, domain.ErrDuplicateSlug):
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug already exists"})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
