// Package watcher keeps the metadata cache current by watching each
// registered project's metadata file and the registry itself.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"atlas/internal/slogutil"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// registryKey marks a registry change in a debounced batch. Slugs never
// contain a colon.
const registryKey = ":registry"

// Target is one project directory to watch.
type Target struct {
	Slug string
	Dir  string
}

// Source lists the current targets. It is called once at startup and again
// after every registry change.
type Source interface {
	Targets() ([]Target, error)
}

// ChangeHandler receives the slugs whose metadata file changed, sorted.
type ChangeHandler func(slugs []string)

// Options configures a Watcher.
type Options struct {
	// RegistryPath is the registry file; changes to it trigger a resync.
	RegistryPath string
	// ConfigFile is the per-project metadata file name, e.g. atlas.yaml.
	ConfigFile string
	Debounce   time.Duration
	Logger     *slog.Logger
}

// Watcher watches project directories for metadata file changes.
type Watcher struct {
	opts    Options
	source  Source
	handler ChangeHandler
	logger  *slog.Logger

	fs        *fsnotify.Watcher
	debouncer *Debouncer
	ready     chan []string
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.RWMutex
	dirs map[string][]string // normalized dir -> slugs
}

// New creates a watcher and installs the initial watches. Targets whose
// directory is missing are skipped.
func New(source Source, handler ChangeHandler, opts Options) (*Watcher, error) {
	if opts.RegistryPath == "" || opts.ConfigFile == "" {
		return nil, errors.New("watcher: registry path and config file are required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize filesystem watcher: %w", err)
	}

	w := &Watcher{
		opts:    opts,
		source:  source,
		handler: handler,
		logger:  logger,
		fs:      fsw,
		ready:   make(chan []string, 1),
		done:    make(chan struct{}),
		dirs:    make(map[string][]string),
	}
	w.debouncer = NewDebouncer(opts.Debounce, func(keys []string) {
		select {
		case w.ready <- keys:
		case <-w.done:
		}
	})

	// The registry is replaced atomically, so watch its directory.
	regDir := filepath.Dir(opts.RegistryPath)
	if err := os.MkdirAll(regDir, 0755); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to create %s: %w", regDir, err)
	}
	if err := fsw.Add(regDir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", regDir, err)
	}
	if err := w.sync(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run dispatches changes to the handler until ctx is done or Close is
// called. The handler always runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Starting file watcher", "projects", len(w.Watched()), "debounce", w.opts.Debounce.String())
	defer w.logger.Info("File watcher stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.classify(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err.Error())
		case keys := <-w.ready:
			w.dispatch(keys)
		}
	}
}

// Close stops the watcher and releases its inotify handles.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.debouncer.Cancel()
		err = w.fs.Close()
	})
	return err
}

// Watched returns the watched project directories, sorted.
func (w *Watcher) Watched() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		out = append(out, dir)
	}
	slices.Sort(out)
	return out
}

func (w *Watcher) classify(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	name := filepath.Clean(ev.Name)
	if name == filepath.Clean(w.opts.RegistryPath) {
		w.debouncer.Add(registryKey)
		return
	}
	if filepath.Base(name) != w.opts.ConfigFile {
		return
	}
	w.mu.RLock()
	slugs := w.dirs[filepath.Dir(name)]
	w.mu.RUnlock()
	for _, slug := range slugs {
		w.logger.Debug("Metadata file changed", "slug", slug, "op", ev.Op.String())
		w.debouncer.Add(slug)
	}
}

func (w *Watcher) dispatch(keys []string) {
	if i := slices.Index(keys, registryKey); i >= 0 {
		keys = slices.Delete(keys, i, i+1)
		if err := w.sync(); err != nil {
			w.logger.Warn("Failed to reload registry", "error", err.Error())
		}
	}
	if len(keys) > 0 && w.handler != nil {
		w.handler(keys)
	}
}

// sync aligns the watched directories with the source.
func (w *Watcher) sync() error {
	targets, err := w.source.Targets()
	if err != nil {
		return fmt.Errorf("failed to list watch targets: %w", err)
	}

	next := make(map[string][]string)
	for _, t := range targets {
		dir := filepath.Clean(t.Dir)
		next[dir] = append(next[dir], t.Slug)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range w.dirs {
		if _, keep := next[dir]; !keep {
			_ = w.fs.Remove(dir)
			w.logger.Debug("Stopped watching project", "path", dir)
		}
	}
	for dir, slugs := range next {
		if _, had := w.dirs[dir]; had {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			w.logger.Debug("Skipping unwatchable project", "slugs", slugs, "path", dir, "error", err.Error())
			delete(next, dir)
			continue
		}
		w.logger.Debug("Watching project", "slugs", slugs, "path", dir)
	}
	w.dirs = next
	return nil
}
