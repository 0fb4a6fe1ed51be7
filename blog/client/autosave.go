package client

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/plantware/blogcms/blog/domain"
)

const (
	defaultAutoSaveInterval = 30 * time.Second
	maxAutoSaveFailures     = 3
)

// SnapshotFunc returns the draft currently being edited, or nil when there
// is nothing to save.
type SnapshotFunc func() *domain.Post

// AutoSaver periodically persists the caller's working draft through a
// PostClient. Ticks where the draft has not changed since the last
// successful save are skipped. After three consecutive failed saves the
// saver disables itself and raises a persistent alert so the user knows
// their work is no longer being saved.
type AutoSaver struct {
	client   *PostClient
	snapshot SnapshotFunc
	interval time.Duration

	mu        sync.Mutex
	running   bool
	disabled  bool
	failures  int
	lastSaved []byte
	stop      chan struct{}
	done      chan struct{}
}

// NewAutoSaver builds an AutoSaver over client. interval <= 0 selects the
// 30s default.
func NewAutoSaver(client *PostClient, snapshot SnapshotFunc, interval time.Duration) *AutoSaver {
	if interval <= 0 {
		interval = defaultAutoSaveInterval
	}
	return &AutoSaver{
		client:   client,
		snapshot: snapshot,
		interval: interval,
	}
}

// Start launches the save loop. It is a no-op if the saver is already
// running or has disabled itself.
func (a *AutoSaver) Start(ctx context.Context) {
	a.mu.Lock()
	if a.running || a.disabled {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	stop, done := a.stop, a.done
	a.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				a.tick(ctx)
			}
		}
	}()
}

// Stop halts the save loop and waits for the in-flight tick, if any, to
// finish. Saves already on the wire are not cancelled.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stop)
	done := a.done
	a.mu.Unlock()
	<-done
}

// Disabled reports whether the saver shut itself off after repeated
// failures.
func (a *AutoSaver) Disabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disabled
}

func (a *AutoSaver) tick(ctx context.Context) {
	draft := a.snapshot()
	if draft == nil {
		return
	}
	current, err := json.Marshal(draft)
	if err != nil {
		log.Error().Err(err).Msg("auto-save: encoding draft")
		return
	}

	a.mu.Lock()
	unchanged := a.lastSaved != nil && bytes.Equal(current, a.lastSaved)
	a.mu.Unlock()
	if unchanged {
		return
	}

	if _, err := a.client.Save(ctx, draft); err != nil {
		a.recordFailure(err)
		return
	}

	a.mu.Lock()
	a.failures = 0
	a.lastSaved = current
	a.mu.Unlock()
}

func (a *AutoSaver) recordFailure(err error) {
	a.mu.Lock()
	a.failures++
	failures := a.failures
	giveUp := failures >= maxAutoSaveFailures
	if giveUp {
		a.disabled = true
		if a.running {
			a.running = false
			close(a.stop)
		}
	}
	a.mu.Unlock()

	log.Warn().Err(err).Int("failures", failures).Msg("auto-save failed")
	if giveUp {
		a.client.notifier.Notify(LevelError, "Auto-save has been disabled after repeated failures. Save your work manually.")
	} else {
		a.client.notifier.Notify(LevelWarning, "Auto-save failed. Will retry on the next interval.")
	}
}
