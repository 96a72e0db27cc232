package animation

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// OverrideWatcher reloads sequences.yaml into a Sequencer whenever the file
// changes. The parent directory is watched so the file may be created later.
type OverrideWatcher struct {
	path     string
	seq      *Sequencer
	logger   *zap.Logger
	debounce time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewOverrideWatcher creates a watcher for path.
func NewOverrideWatcher(path string, seq *Sequencer, logger *zap.Logger) *OverrideWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverrideWatcher{path: path, seq: seq, logger: logger, debounce: 200 * time.Millisecond}
}

// Reload applies the file's current contents. Invalid files are logged and
// leave the current table untouched.
func (w *OverrideWatcher) Reload() error {
	m, err := LoadSequences(w.path)
	if err != nil {
		w.logger.Warn("sequence overrides rejected", zap.String("path", w.path), zap.Error(err))
		return err
	}
	w.seq.SetSequences(m)
	return nil
}

// Start loads the file once and begins watching it.
func (w *OverrideWatcher) Start(ctx context.Context) error {
	_ = w.Reload()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, fw)
	return nil
}

func (w *OverrideWatcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.done)
	defer func() { _ = fw.Close() }()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(w.path) {
				continue
			}
			if evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) || evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
				pending = time.After(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sequence watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if w.Reload() == nil {
				w.logger.Info("sequence overrides reloaded", zap.String("path", w.path))
			}
		}
	}
}

// Stop stops watching and waits for the loop to exit.
func (w *OverrideWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}
