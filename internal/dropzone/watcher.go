package dropzone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/logger"
	"github.com/spigell/resume-report/internal/upload"
)

// DefaultQuietPeriod is how long a file must stay unchanged before it counts as dropped.
const DefaultQuietPeriod = 500 * time.Millisecond

type WatcherOptions struct {
	QuietPeriod time.Duration
	// Sniff detects the file type from content instead of the extension.
	Sniff  bool
	Logger *zap.Logger
}

// Watcher maps file activity in a directory onto a Surface: a new file enters, writes
// hover, removal leaves and a quiet period drops it.
type Watcher struct {
	dir     string
	surface *Surface
	quiet   time.Duration
	sniff   bool
	logger  *zap.Logger
	// gen tags quiet timers. Only the Run goroutine touches it.
	gen     uint64
}

// pendingDrop is a file waiting for its quiet period. A timer that already fired may have
// sent a stale settled value, so only the value carrying the current gen counts.
type pendingDrop struct {
	timer *time.Timer
	gen   uint64
}

type settled struct {
	path string
	gen  uint64
}

// fsEvent has no default action to prevent.
type fsEvent struct{}

func (fsEvent) PreventDefault() {}

func NewWatcher(dir string, surface *Surface, opts WatcherOptions) *Watcher {
	quiet := opts.QuietPeriod
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}

	return &Watcher{
		dir:     dir,
		surface: surface,
		quiet:   quiet,
		sniff:   opts.Sniff,
		logger:  logger.WithFields(opts.Logger, zap.String("dir", dir)),
	}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %q: %w", w.dir, err)
	}

	w.logger.Info("watching drop folder")

	pending := make(map[string]pendingDrop)
	ready := make(chan settled)
	defer func() {
		for _, p := range pending {
			p.timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ignored(ev.Name) {
				continue
			}
			w.handle(ctx, ev, pending, ready)

		case s := <-ready:
			if !w.take(s, pending) {
				continue
			}
			w.drop(s.path)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event, pending map[string]pendingDrop, ready chan<- settled) {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if p, ok := pending[ev.Name]; ok {
			p.timer.Stop()
			delete(pending, ev.Name)
		}
		if len(pending) == 0 {
			w.surface.DragLeave(fsEvent{})
		}
		return

	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return
		}
		w.surface.DragEnter(fsEvent{})

	case ev.Has(fsnotify.Write):
		w.surface.DragOver(fsEvent{})

	default:
		return
	}

	// a fired timer cannot be reset safely: its value may already be on the way
	if p, ok := pending[ev.Name]; ok {
		p.timer.Stop()
	}

	w.gen++
	s := settled{path: ev.Name, gen: w.gen}
	pending[ev.Name] = pendingDrop{
		gen: s.gen,
		timer: time.AfterFunc(w.quiet, func() {
			select {
			case ready <- s:
			case <-ctx.Done():
			}
		}),
	}
}

// take reports whether s is the latest quiet period of a pending file and clears it.
func (w *Watcher) take(s settled, pending map[string]pendingDrop) bool {
	p, ok := pending[s.path]
	if !ok || p.gen != s.gen {
		return false
	}
	delete(pending, s.path)
	return true
}

func (w *Watcher) drop(path string) {
	log := w.logger.With(zap.String(logger.FieldFile, filepath.Base(path)))

	candidate, err := upload.FromFile(path, w.sniff)
	if err != nil {
		w.surface.DragLeave(fsEvent{})
		log.Warn("failed to read dropped file", zap.Error(err))
		return
	}

	if err := w.surface.Drop(fsEvent{}, []upload.Candidate{candidate}); err != nil {
		log.Info("dropped file not selected", zap.Error(err))
		return
	}

	log.Debug("dropped file selected")
}

// ignored skips editor swap files and hidden files.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}
