package notify

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher turns marker files written by other instances into notifications.
type Watcher struct {
	dir    string
	self   string
	fw     *fsnotify.Watcher
	out    chan Notification
	logger *slog.Logger
}

// NewWatcher watches dir for markers. Markers whose origin is self are ignored.
func NewWatcher(dir, self string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:    dir,
		self:   self,
		fw:     fw,
		out:    make(chan Notification, 64),
		logger: logger,
	}, nil
}

// C returns the notification channel. It is closed when Run returns.
func (w *Watcher) C() <-chan Notification {
	return w.out
}

// Run forwards notifications until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)
	defer w.fw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			n, err := readMarker(event.Name)
			if err != nil {
				w.logger.Debug("skipping marker", "path", event.Name, "error", err)
				continue
			}
			if n.Origin == w.self {
				continue
			}
			select {
			case w.out <- n:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("marker watcher error", "dir", w.dir, "error", err)
		}
	}
}
