package seed

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = 300 * time.Millisecond

// Watcher re-ingests a seed file whenever it changes. Documents are upserted
// by their derived ID; entries removed from the file stay in the index.
type Watcher struct {
	path     string
	embedder Embedder
	index    Index
	logger   *zap.Logger
}

func NewWatcher(path string, embedder Embedder, index Index, logger *zap.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		embedder: embedder,
		index:    index,
		logger:   logger.With(zap.String("seed_path", path)),
	}
}

// Run blocks until ctx is done. The parent directory is watched so that
// editors replacing the file atomically are noticed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch seed directory: %w", err)
	}

	w.logger.Info("watching seed file for changes")

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				timer.Reset(debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("seed watcher error", zap.Error(err))
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

// relevant reports whether ev may have changed the seed file content
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) reload(ctx context.Context) {
	docs, err := Load(w.path)
	if err != nil {
		w.logger.Warn("seed file reload failed, keeping current documents", zap.Error(err))
		return
	}

	if err := Ingest(ctx, docs, w.embedder, w.index); err != nil {
		w.logger.Warn("seed file ingest failed", zap.Error(err))
		return
	}

	w.logger.Info("seed file re-ingested", zap.Int("documents", len(docs)))
}
