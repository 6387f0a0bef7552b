package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ytsum/internal/logging"
)

const lockFileName = ".lock"

// Run is the scratch directory owned by a single pipeline invocation. While the
// run is open its lock file is held so concurrent sweeps leave it alone.
type Run struct {
	ID  string
	Dir string

	lock   *flock.Flock
	logger *slog.Logger

	mu     sync.Mutex
	files  []*File
	closed bool
}

// Open creates root/<id> and locks it. An empty id gets a random UUID.
func Open(root, id string, logger *slog.Logger) (*Run, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("workspace: root directory not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create run directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("workspace: lock run directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("workspace: run directory %s is in use", dir)
	}

	return &Run{
		ID:     id,
		Dir:    dir,
		lock:   lock,
		logger: logger.With(logging.String("run_dir", dir)),
	}, nil
}

// Path returns the absolute path for name inside the run directory.
func (r *Run) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// Track registers an existing file so Close removes it if the owner never
// released it.
func (r *Run) Track(path string) *File {
	file := &File{path: path}
	r.mu.Lock()
	r.files = append(r.files, file)
	r.mu.Unlock()
	return file
}

// Close releases every tracked file, drops the lock and removes the run
// directory. It is safe to call more than once.
func (r *Run) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	files := r.files
	r.files = nil
	r.mu.Unlock()

	var errs []error
	for _, file := range files {
		if err := file.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("workspace: unlock: %w", err))
	}
	if err := os.RemoveAll(r.Dir); err != nil {
		errs = append(errs, fmt.Errorf("workspace: remove run directory: %w", err))
	}
	if len(errs) > 0 {
		r.logger.Warn("run directory cleanup incomplete",
			logging.Error(errors.Join(errs...)),
			logging.String(logging.FieldEventType, "workspace_cleanup_failed"),
		)
		return errors.Join(errs...)
	}
	r.logger.Debug("run directory removed")
	return nil
}

// File is a scoped handle to a temporary file. Release removes the file at most
// once; a file that is already gone counts as released.
type File struct {
	path string
	once sync.Once
	err  error
}

// Path returns the file's location on disk.
func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Release deletes the file. Subsequent calls return the first result.
func (f *File) Release() error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.err = fmt.Errorf("workspace: remove %s: %w", f.path, err)
		}
	})
	return f.err
}
