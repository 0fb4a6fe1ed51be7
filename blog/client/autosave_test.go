package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantware/blogcms/blog/domain"
)

func TestAutoSaverSkipsUnchangedDrafts(t *testing.T) {
	var saves atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, testPost(1, "Draft"))
	})
	mux.HandleFunc("PUT /api/posts/1", func(w http.ResponseWriter, r *http.Request) {
		saves.Add(1)
		writeJSON(w, http.StatusOK, testPost(1, "Draft"))
	})
	c, _ := newTestClient(t, mux)

	draft := testPost(1, "Draft")
	saver := NewAutoSaver(c, func() *domain.Post { return draft }, 15*time.Millisecond)
	saver.Start(context.Background())
	defer saver.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), saves.Load(), "identical snapshots should save once")
}

func TestAutoSaverSavesWhenDraftChanges(t *testing.T) {
	var saves atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, testPost(1, "v"))
	})
	mux.HandleFunc("PUT /api/posts/1", func(w http.ResponseWriter, r *http.Request) {
		saves.Add(1)
		writeJSON(w, http.StatusOK, testPost(1, "v"))
	})
	c, _ := newTestClient(t, mux)

	var version atomic.Int64
	saver := NewAutoSaver(c, func() *domain.Post {
		return testPost(1, "v"+string(rune('a'+version.Load())))
	}, 15*time.Millisecond)
	saver.Start(context.Background())
	defer saver.Stop()

	time.Sleep(40 * time.Millisecond)
	version.Add(1)
	time.Sleep(40 * time.Millisecond)
	assert.GreaterOrEqual(t, saves.Load(), int64(2), "changed draft triggers another save")
}

func TestAutoSaverDisablesAfterThreeFailures(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	}))
	t.Cleanup(srv.Close)

	notifier := &recordingNotifier{}
	c := New(srv.URL,
		WithNotifier(notifier),
		WithRetryConfig(RetryConfig{MaxRetries: 0, InitialDelay: time.Millisecond, Multiplier: 2}),
	)

	var version atomic.Int64
	saver := NewAutoSaver(c, func() *domain.Post {
		version.Add(1)
		return testPost(1, "v"+string(rune('a'+version.Load())))
	}, 10*time.Millisecond)
	saver.Start(context.Background())

	require.Eventually(t, saver.Disabled, time.Second, 5*time.Millisecond)
	settled := attempts.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, attempts.Load(), "no further saves after self-disable")

	notifier.mu.Lock()
	last := notifier.messages[len(notifier.messages)-1]
	notifier.mu.Unlock()
	assert.Contains(t, last, "Auto-save has been disabled")
	assert.GreaterOrEqual(t, notifier.count(LevelWarning), 2, "warnings for the first two failures")

	// Restarting a disabled saver is refused.
	saver.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, attempts.Load())
}

func TestAutoSaverNilSnapshotIsNoop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no draft, no requests")
	})
	c, _ := newTestClient(t, handler)

	saver := NewAutoSaver(c, func() *domain.Post { return nil }, 10*time.Millisecond)
	saver.Start(context.Background())
	time.Sleep(40 * time.Millisecond)
	saver.Stop()
}
