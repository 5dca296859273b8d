package infra

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/codeglyph/agentshim/internal/domain"
)

// OSFileReader reads files straight from the filesystem.
type OSFileReader struct{}

// NewFileReader creates the real file reader.
func NewFileReader() domain.FileReader {
	return &OSFileReader{}
}

// ReadFile returns the file contents.
func (r *OSFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Ensure OSFileReader implements domain.FileReader.
var _ domain.FileReader = (*OSFileReader)(nil)

// SettingsWatcher watches the host program's settings file and invokes
// onChange when the host rewrites it, so the hook registration can be
// re-checked. Best effort: watch failures are logged and never fatal.
type SettingsWatcher struct {
	path     string
	onChange func()
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
}

// NewSettingsWatcher creates a watcher for path. The parent directory is
// watched so that atomic rename-over-write by the host is observed.
func NewSettingsWatcher(path string, onChange func(), logger *zap.Logger) (*SettingsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &SettingsWatcher{
		path:     path,
		onChange: onChange,
		logger:   logger,
		watcher:  w,
	}, nil
}

// Run processes filesystem events until ctx is canceled.
func (s *SettingsWatcher) Run(ctx context.Context) {
	defer func() { _ = s.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != s.path {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				s.logger.Debug("settings file changed", zap.String("path", s.path))
				s.onChange()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Debug("settings watch error", zap.Error(err))
		}
	}
}
