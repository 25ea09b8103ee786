package plugin

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchHandler is called when a manifest in a watched plugin directory is
// created or modified. Handlers must be non-blocking.
type WatchHandler func(manifestPath string)

// Watcher watches plugin search paths for manifest changes, so the host
// can tell an operator that a restart will pick up new or updated
// plugins. It does not reload anything itself.
type Watcher struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher
	logger  *zap.Logger
	handler WatchHandler

	closed bool
	done   chan struct{}
}

// NewWatcher creates a watcher over the given search paths. Paths that do
// not exist are skipped.
func NewWatcher(paths []string, handler WatchHandler, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		watcher: fsw,
		logger:  logger,
		handler: handler,
		done:    make(chan struct{}),
	}

	for _, path := range paths {
		if err := fsw.Add(path); err != nil {
			logger.Debug("Not watching plugin path", zap.String("path", path), zap.Error(err))
		}
	}

	go w.run()
	return w, nil
}

// run forwards manifest events until the watcher closes.
func (w *Watcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			// Watch newly created plugin directories so their manifests
			// are seen too.
			if event.Has(fsnotify.Create) {
				if filepath.Ext(event.Name) == "" {
					_ = w.watcher.Add(event.Name)
				}
			}
			if filepath.Base(event.Name) != ManifestFile {
				continue
			}
			w.logger.Info("Plugin manifest changed; restart to pick it up",
				zap.String("manifest", event.Name))
			if w.handler != nil {
				w.handler(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Plugin watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err := w.watcher.Close()
	<-w.done
	return err
}
