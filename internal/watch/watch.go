// Package watch reports PDF documents as they land in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period a file must see before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a directory watch.
type Config struct {
	Dir         string        // Directory to watch (not recursive)
	Debounce    time.Duration // Coalesces write bursts (default: 500ms)
	InitialScan bool          // Also report PDFs already present
	Logger      *slog.Logger
}

// IsPDF reports whether path has a .pdf extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Watch reports each PDF created or rewritten in cfg.Dir once it has been
// quiet for the debounce period. The channel closes when ctx is done.
func Watch(ctx context.Context, cfg Config) (<-chan string, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch: directory is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("dir", cfg.Dir)

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", cfg.Dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := w.Add(cfg.Dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch: add %s: %w", cfg.Dir, err)
	}

	var existing []string
	if cfg.InitialScan {
		entries, err := os.ReadDir(cfg.Dir)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("watch: scan %s: %w", cfg.Dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() && IsPDF(e.Name()) {
				existing = append(existing, filepath.Join(cfg.Dir, e.Name()))
			}
		}
		sort.Strings(existing)
	}

	out := make(chan string, 16)
	go run(ctx, w, cfg.Debounce, existing, out, logger)
	logger.Info("watching for documents", "initial", len(existing))
	return out, nil
}

func run(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, existing []string, out chan<- string, logger *slog.Logger) {
	defer close(out)
	defer w.Close()

	emit := func(path string) bool {
		select {
		case out <- path:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for _, path := range existing {
		if !emit(path) {
			return
		}
	}

	// Last event time per path; a path is emitted once it has been quiet
	// for debounce.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if !IsPDF(e.Name) || !e.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			logger.Debug("document event", "path", e.Name, "op", e.Op.String())
			pending[e.Name] = time.Now()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)

		case now := <-ticker.C:
			var ready []string
			for path, last := range pending {
				if now.Sub(last) >= debounce {
					ready = append(ready, path)
				}
			}
			sort.Strings(ready)
			for _, path := range ready {
				delete(pending, path)
				// A rename away also fires Rename on the old name.
				if _, err := os.Stat(path); err != nil {
					continue
				}
				if !emit(path) {
					return
				}
			}
		}
	}
}
