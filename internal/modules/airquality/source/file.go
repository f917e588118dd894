package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"airquality-dashboard/internal/modules/airquality/loader"
)

// DefaultDebounce is how long Watch waits for writes to settle before reloading.
const DefaultDebounce = 500 * time.Millisecond

// FileSource loads the dataset from a CSV file.
type FileSource struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration

	holder
	mu sync.Mutex // serialises reloads
}

func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{path: filepath.Clean(path), logger: logger, debounce: DefaultDebounce}
}

func (s *FileSource) Name() string { return s.path }

func (s *FileSource) Snapshot() Snapshot { return s.load() }

// Reload reads the file and publishes the result. A failed load is published
// too, so readers see the error instead of stale data.
func (s *FileSource) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	table, report, err := loader.LoadFile(s.path)
	snap := s.publish(table, report, err)
	if err != nil {
		s.logger.Error("dataset load failed", "path", s.path, "error", err)
		return err
	}
	if report.Dropped > 0 {
		s.logger.Warn("dropped rows with unparseable timestamps",
			"path", s.path, "dropped", report.Dropped, "rows_read", report.RowsRead)
	}
	s.logger.Info("dataset loaded",
		"path", s.path,
		"rows", table.Len(),
		"version", snap.Version,
		"duration", time.Since(start),
	)
	return nil
}

// Watch reloads whenever the file is written, created or renamed into place,
// until ctx is cancelled. The parent directory is watched so that editors
// replacing the file are noticed.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			s.logger.Error("close watcher", "error", err)
		}
	}()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	s.logger.Info("watching dataset", "path", s.path)

	var (
		timer *time.Timer
		fire  = make(chan struct{}, 1)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Debug("dataset changed", "op", event.Op.String())
			if timer == nil {
				timer = time.AfterFunc(s.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(s.debounce)
			}
		case <-fire:
			// errors are published in the snapshot and logged by Reload
			_ = s.Reload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
