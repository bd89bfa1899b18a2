package templates

import (
	"path/filepath"
	"strings"
	"sync"

	"albumserver/internal/cache"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher drops cached templates when the files behind them change so edits
// to a template directory show up without a restart
type Watcher struct {
	dir     string
	cache   *cache.TemplateCache
	logger  *logrus.Logger
	watcher *fsnotify.Watcher

	done      chan struct{}
	closeOnce sync.Once

	// notify, when set, is called after each invalidation
	notify func(name string)
}

// NewWatcher starts watching dir and invalidating entries of tc
func NewWatcher(dir string, tc *cache.TemplateCache, logger *logrus.Logger) (*Watcher, error) {
	return newWatcher(dir, tc, logger, nil)
}

func newWatcher(dir string, tc *cache.TemplateCache, logger *logrus.Logger, notify func(string)) (*Watcher, error) {
	if logger == nil {
		logger = logrus.New()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:     dir,
		cache:   tc,
		logger:  logger,
		watcher: fw,
		done:    make(chan struct{}),
		notify:  notify,
	}
	go w.run()

	logger.WithField("templates_dir", dir).Info("Template watcher started")
	return w, nil
}

// run selects on watcher channels and dispatches events
func (w *Watcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Template watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".html") {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.cache.Delete(name)
	w.logger.WithFields(logrus.Fields{
		"template": name,
		"op":       event.Op.String(),
	}).Info("Template changed, cache invalidated")

	if w.notify != nil {
		w.notify(name)
	}
}

// Close stops the watcher and waits for its goroutine to exit (idempotent)
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}
