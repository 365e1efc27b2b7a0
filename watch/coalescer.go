// Package watch implements the Event Coalescer: it subscribes
// to source-file change events and coalesces bursts of create/modify
// events behind a single re-armable timer before dispatching them to the
// indexer in parallel, while deletions and renames are dispatched
// immediately.
package watch

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/antflydb/vaultsearch/sourcedoc"
)

// Kind identifies the source-file event types a watcher distinguishes.
type Kind string

const (
	KindCreate          Kind = "create"
	KindModify          Kind = "modify"
	KindDelete          Kind = "delete"
	KindRename          Kind = "rename"
	KindMetadataChanged Kind = "metadata_changed"
)

// Event is one source-file change notification.
type Event struct {
	Kind  Kind
	ID    string         // the file's current id
	OldID string         // previous id, set only for KindRename
	File  sourcedoc.File // current file handle, unset for KindDelete
}

// Indexer is the subset of vault.Indexer the coalescer drives.
type Indexer interface {
	UpsertIfChanged(f sourcedoc.File) (bool, error)
	Rename(oldID string, f sourcedoc.File) (bool, error)
	Remove(id string)
}

const defaultDelay = 500 * time.Millisecond

// Coalescer batches create/modify events behind one re-armable timer.
// The zero value is not usable; use New.
type Coalescer struct {
	indexer Indexer
	delay   time.Duration

	mu      sync.Mutex
	pending map[string]sourcedoc.File
	timer   *time.Timer

	logger *zap.Logger
}

// New creates a Coalescer dispatching to indexer, coalescing for delay
// (500ms if delay <= 0).
func New(indexer Indexer, delay time.Duration) *Coalescer {
	if delay <= 0 {
		delay = defaultDelay
	}
	return &Coalescer{
		indexer: indexer,
		delay:   delay,
		pending: make(map[string]sourcedoc.File),
		logger:  zap.NewNop(),
	}
}

// SetLogger attaches a structured logger for dispatch events. A nil logger
// is ignored; an unset Coalescer logs nowhere.
func (c *Coalescer) SetLogger(l *zap.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Handle processes one source-file event.
func (c *Coalescer) Handle(ev Event) {
	switch ev.Kind {
	case KindDelete:
		c.mu.Lock()
		delete(c.pending, ev.ID)
		c.mu.Unlock()
		c.logger.Debug("dispatching delete", zap.String("id", ev.ID))
		c.indexer.Remove(ev.ID)

	case KindRename:
		c.mu.Lock()
		delete(c.pending, ev.OldID)
		delete(c.pending, ev.ID)
		c.mu.Unlock()
		c.logger.Debug("dispatching rename", zap.String("old_id", ev.OldID), zap.String("id", ev.ID))
		if _, err := c.indexer.Rename(ev.OldID, ev.File); err != nil {
			c.logger.Warn("rename dispatch failed", zap.String("id", ev.ID), zap.Error(err))
		}

	case KindCreate, KindModify, KindMetadataChanged:
		c.addPending(ev.ID, ev.File)
	}
}

// addPending adds id to the pending set and (re)arms the single timer.
func (c *Coalescer) addPending(id string, f sourcedoc.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[id] = f
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.fire)
}

// fire drains the pending set and upserts every entry in parallel.
func (c *Coalescer) fire() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]sourcedoc.File)
	c.timer = nil
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, f := range pending {
		wg.Add(1)
		go func(f sourcedoc.File) {
			defer wg.Done()
			if _, err := c.indexer.UpsertIfChanged(f); err != nil {
				c.logger.Warn("coalesced upsert failed", zap.String("id", f.ID()), zap.Error(err))
			}
		}(f)
	}
	wg.Wait()
	c.logger.Debug("fired pending batch", zap.Int("count", len(pending)))
}

// Pending reports how many ids are currently waiting for the timer to
// fire, exposed as a gauge by the health server.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
