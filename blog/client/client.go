package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/plantware/blogcms/blog/domain"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultCacheTTL  = 5 * time.Minute
	defaultCacheSize = 128

	cacheKeyAllPosts = "all_posts"
)

func cacheKeyPost(id int64) string {
	return fmt.Sprintf("post_%d", id)
}

// PostClient is the application-facing storage façade over the blog HTTP
// API. It layers read caching, retry with backoff, offline handling, local
// validation, and user notifications on top of plain requests.
type PostClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	retry      RetryConfig
	notifier   Notifier

	cacheTTL  time.Duration
	cacheSize int
	cache     *expirable.LRU[string, any]

	mu     sync.RWMutex
	online bool
}

// Option configures a PostClient.
type Option func(*PostClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *PostClient) { c.httpClient = hc }
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *PostClient) { c.timeout = d }
}

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(rc RetryConfig) Option {
	return func(c *PostClient) { c.retry = rc }
}

// WithCacheTTL sets how long cached reads stay fresh.
func WithCacheTTL(d time.Duration) Option {
	return func(c *PostClient) { c.cacheTTL = d }
}

// WithCacheSize caps the number of cached entries.
func WithCacheSize(n int) Option {
	return func(c *PostClient) { c.cacheSize = n }
}

// WithNotifier routes user-facing notifications to n.
func WithNotifier(n Notifier) Option {
	return func(c *PostClient) { c.notifier = n }
}

// New builds a PostClient for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *PostClient {
	c := &PostClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		retry:      DefaultRetryConfig(),
		notifier:   LogNotifier{},
		cacheTTL:   defaultCacheTTL,
		cacheSize:  defaultCacheSize,
		online:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = expirable.NewLRU[string, any](c.cacheSize, nil, c.cacheTTL)
	return c
}

// SetOnline flips the connectivity flag. While offline, every operation
// fails fast with a network-kind error without touching the wire.
func (c *PostClient) SetOnline(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()

	if !changed {
		return
	}
	if online {
		c.notifier.Notify(LevelSuccess, "Connection restored.")
	} else {
		c.notifier.Notify(LevelWarning, "You are offline. Changes cannot be saved until the connection returns.")
	}
}

// Online reports the current connectivity flag.
func (c *PostClient) Online() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

// do runs one API call with retry. body is marshalled once and replayed on
// every attempt; out, when non-nil, receives the decoded response.
func (c *PostClient) do(ctx context.Context, method, path string, body, out any) error {
	if !c.Online() {
		return &Error{Kind: KindNetwork, Message: "offline: request not attempted"}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindClient, Message: "encoding request body: " + err.Error(), cause: err}
		}
	}

	for attempt := 0; ; attempt++ {
		err := c.attempt(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if attempt >= c.retry.MaxRetries || !shouldRetry(err) {
			return err
		}
		if sleepErr := sleep(ctx, c.retry.Delay(attempt)); sleepErr != nil {
			return err
		}
	}
}

func (c *PostClient) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Kind: KindClient, Message: "building request: " + err.Error(), cause: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "reading response: " + err.Error(), cause: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		return newStatusError(resp.StatusCode, apiErr.Error)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{Kind: KindUnknown, Message: "decoding response: " + err.Error(), cause: err}
		}
	}
	return nil
}

func classifyTransport(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Message: "request timed out", cause: err}
	}
	return &Error{Kind: KindNetwork, Message: "request failed: " + err.Error(), cause: err}
}

// fail normalizes err into a client Error and emits the matching
// notification.
func (c *PostClient) fail(err error) error {
	var clientErr *Error
	if !errors.As(err, &clientErr) {
		clientErr = &Error{Kind: KindUnknown, Message: err.Error(), cause: err}
		err = clientErr
	}
	c.notifier.Notify(LevelError, clientErr.UserMessage())
	return err
}

// GetAll returns every post, serving repeated calls from the cache until
// the TTL lapses or a write invalidates it.
func (c *PostClient) GetAll(ctx context.Context) ([]*domain.Post, error) {
	if v, ok := c.cache.Get(cacheKeyAllPosts); ok {
		return v.([]*domain.Post), nil
	}
	var posts []*domain.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &posts); err != nil {
		return nil, c.fail(err)
	}
	c.cache.Add(cacheKeyAllPosts, posts)
	return posts, nil
}

// List fetches posts matching the filter. Filtered reads bypass the cache.
func (c *PostClient) List(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	q := make([]string, 0, 4)
	if filter.Status != "" {
		q = append(q, "status="+urlEscape(filter.Status))
	}
	if filter.Category != "" {
		q = append(q, "category="+urlEscape(filter.Category))
	}
	if filter.Search != "" {
		q = append(q, "search="+urlEscape(filter.Search))
	}
	if filter.Limit > 0 {
		q = append(q, fmt.Sprintf("limit=%d", filter.Limit))
	}
	path := "/api/posts"
	if len(q) > 0 {
		path += "?" + strings.Join(q, "&")
	}
	var posts []*domain.Post
	if err := c.do(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, c.fail(err)
	}
	return posts, nil
}

// GetPublished returns published posts only.
func (c *PostClient) GetPublished(ctx context.Context) ([]*domain.Post, error) {
	var posts []*domain.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts/published", nil, &posts); err != nil {
		return nil, c.fail(err)
	}
	return posts, nil
}

// GetFeatured returns featured published posts.
func (c *PostClient) GetFeatured(ctx context.Context) ([]*domain.Post, error) {
	var posts []*domain.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts/featured", nil, &posts); err != nil {
		return nil, c.fail(err)
	}
	return posts, nil
}

// GetPost returns one post by id, reading through the cache.
func (c *PostClient) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	key := cacheKeyPost(id)
	if v, ok := c.cache.Get(key); ok {
		return v.(*domain.Post), nil
	}
	var post domain.Post
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil, &post); err != nil {
		return nil, c.fail(err)
	}
	c.cache.Add(key, &post)
	return &post, nil
}

// GetPostBySlug returns one post by slug. Slug reads are not cached.
func (c *PostClient) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	var post domain.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts/slug/"+url.PathEscape(slug), nil, &post); err != nil {
		return nil, c.fail(err)
	}
	return &post, nil
}

// Create validates the post locally and creates it on the server. The list
// cache is dropped so the next GetAll sees the new post.
func (c *PostClient) Create(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := Validate(post); err != nil {
		return nil, c.fail(err)
	}
	var created domain.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", post, &created); err != nil {
		return nil, c.fail(err)
	}
	c.cache.Remove(cacheKeyAllPosts)
	c.cache.Add(cacheKeyPost(created.ID), &created)
	c.notifier.Notify(LevelSuccess, fmt.Sprintf("Post %q created.", created.Title))
	return &created, nil
}

// Update validates locally, sends the full post as an update, and refreshes
// the cached copy while dropping the stale list.
func (c *PostClient) Update(ctx context.Context, id int64, post *domain.Post) (*domain.Post, error) {
	if err := Validate(post); err != nil {
		return nil, c.fail(err)
	}
	var updated domain.Post
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/posts/%d", id), post, &updated); err != nil {
		return nil, c.fail(err)
	}
	c.cache.Add(cacheKeyPost(id), &updated)
	c.cache.Remove(cacheKeyAllPosts)
	c.notifier.Notify(LevelSuccess, fmt.Sprintf("Post %q updated.", updated.Title))
	return &updated, nil
}

// Delete removes a post and clears the cache entirely.
func (c *PostClient) Delete(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, nil); err != nil {
		return c.fail(err)
	}
	c.cache.Purge()
	c.notifier.Notify(LevelSuccess, "Post deleted.")
	return nil
}

// BulkDelete removes several posts in one call and clears the cache.
func (c *PostClient) BulkDelete(ctx context.Context, ids []int64) (*domain.BulkDeleteResult, error) {
	req := struct {
		PostIDs []int64 `json:"postIds"`
	}{PostIDs: ids}
	var result domain.BulkDeleteResult
	if err := c.do(ctx, http.MethodPost, "/api/posts/bulk-delete", req, &result); err != nil {
		return nil, c.fail(err)
	}
	c.cache.Purge()
	c.notifier.Notify(LevelSuccess, fmt.Sprintf("%d posts deleted.", len(result.Deleted)))
	return &result, nil
}

// Save resolves create-versus-update. A post carrying an id is updated if
// the server still has it and recreated without the id if it does not; a
// post without an id is created.
func (c *PostClient) Save(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if post.ID > 0 {
		_, err := c.GetPost(ctx, post.ID)
		switch {
		case err == nil:
			return c.Update(ctx, post.ID, post)
		case IsNotFound(err):
			fresh := *post
			fresh.ID = 0
			return c.Create(ctx, &fresh)
		default:
			return nil, err
		}
	}
	return c.Create(ctx, post)
}

// SearchPosts runs a server-side search. q must be non-empty.
func (c *PostClient) SearchPosts(ctx context.Context, q, category, status string) ([]*domain.Post, error) {
	params := []string{"q=" + urlEscape(q)}
	if category != "" {
		params = append(params, "category="+urlEscape(category))
	}
	if status != "" {
		params = append(params, "status="+urlEscape(status))
	}
	var posts []*domain.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts/search?"+strings.Join(params, "&"), nil, &posts); err != nil {
		return nil, c.fail(err)
	}
	return posts, nil
}

// Health is the server's health report.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// CheckHealth asks the server whether it is up.
func (c *PostClient) CheckHealth(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &h); err != nil {
		return nil, c.fail(err)
	}
	return &h, nil
}

// ImportPosts creates each post in sequence, continuing past individual
// failures. It returns the created posts and one error per failed item.
func (c *PostClient) ImportPosts(ctx context.Context, posts []*domain.Post) ([]*domain.Post, []error) {
	var (
		created []*domain.Post
		errs    []error
	)
	for i, post := range posts {
		p, err := c.Create(ctx, post)
		if err != nil {
			errs = append(errs, fmt.Errorf("importing post %d (%q): %w", i, post.Title, err))
			continue
		}
		created = append(created, p)
	}
	return created, errs
}

// ExportPosts fetches the given posts, silently skipping any that cannot
// be retrieved.
func (c *PostClient) ExportPosts(ctx context.Context, ids []int64) ([]*domain.Post, error) {
	posts := make([]*domain.Post, 0, len(ids))
	for _, id := range ids {
		p, err := c.GetPost(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Statistics summarizes the post collection.
type Statistics struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"byStatus"`
	ByCategory  map[string]int `json:"byCategory"`
	ByAuthor    map[string]int `json:"byAuthor"`
	AvgReadTime int            `json:"avgReadTime"`
}

// GetStatistics computes collection statistics from the full post list.
func (c *PostClient) GetStatistics(ctx context.Context) (*Statistics, error) {
	posts, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Statistics{
		Total:      len(posts),
		ByStatus:   make(map[string]int),
		ByCategory: make(map[string]int),
		ByAuthor:   make(map[string]int),
	}
	totalRead := 0
	for _, p := range posts {
		stats.ByStatus[p.Status]++
		stats.ByCategory[p.Category]++
		stats.ByAuthor[p.Author]++
		totalRead += p.ReadTime
	}
	if len(posts) > 0 {
		stats.AvgReadTime = totalRead / len(posts)
	}
	return stats, nil
}

// CacheStats describes the current cache contents.
type CacheStats struct {
	Entries int      `json:"entries"`
	Keys    []string `json:"keys"`
}

// GetCacheStats reports what the cache currently holds.
func (c *PostClient) GetCacheStats() CacheStats {
	keys := c.cache.Keys()
	return CacheStats{Entries: c.cache.Len(), Keys: keys}
}

// ClearCache drops every cached entry.
func (c *PostClient) ClearCache() {
	c.cache.Purge()
}

func urlEscape(s string) string {
	return url.QueryEscape(s)
}
