package fsdoc

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/antflydb/vaultsearch/watch"
)

// Watcher turns fsnotify filesystem events into watch.Event values scoped
// to the markdown files a Source would walk, for feeding a
// watch.Coalescer. fsnotify reports rename as a pair of events on most
// platforms (RENAME on the old path, CREATE on the new one); this watcher
// does not attempt to correlate them into a single KindRename, since
// fsnotify gives no reliable inode-level pairing across platforms —
// renames surface as a delete followed by a create, which the coalescer
// handles correctly as two independent ids.
type Watcher struct {
	source *Source
	fsw    *fsnotify.Watcher
}

// NewWatcher starts watching every directory under source's BaseDir.
func NewWatcher(source *Source) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{source: source, fsw: fsw}
	if err := w.addTree(source.cfg.BaseDir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}

// Run delivers events to handle until ctx is cancelled or the underlying
// watcher's channel closes.
func (w *Watcher) Run(ctx context.Context, handle func(watch.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if wev, ok := w.toEvent(ev); ok {
				handle(wev)
			}
		case <-w.fsw.Errors:
			// Logged by the caller's indexer on the next failed read;
			// fsnotify errors here are transport-level, not per-file.
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) toEvent(ev fsnotify.Event) (watch.Event, bool) {
	if !strings.HasSuffix(strings.ToLower(ev.Name), ".md") && !strings.HasSuffix(strings.ToLower(ev.Name), ".markdown") {
		return watch.Event{}, false
	}
	rel, err := filepath.Rel(w.source.cfg.BaseDir, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return watch.Event{Kind: watch.KindDelete, ID: rel}, true
	case ev.Op&fsnotify.Create != 0:
		info, err := os.Stat(ev.Name)
		if err != nil {
			return watch.Event{}, false
		}
		return watch.Event{Kind: watch.KindCreate, ID: rel, File: &File{absPath: ev.Name, relPath: rel, info: info}}, true
	case ev.Op&fsnotify.Write != 0:
		info, err := os.Stat(ev.Name)
		if err != nil {
			return watch.Event{}, false
		}
		return watch.Event{Kind: watch.KindModify, ID: rel, File: &File{absPath: ev.Name, relPath: rel, info: info}}, true
	default:
		return watch.Event{}, false
	}
}
