package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/serialization"
)

const projectExt = ".json"

// FileStore keeps one JSON document per project in a directory.
type FileStore struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
}

// NewFileStore opens a store rooted at dir on fsys, creating the directory
// if needed. A nil fsys uses the OS filesystem.
func NewFileStore(fsys afero.Fs, dir string, logger *slog.Logger) (*FileStore, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	return &FileStore{fs: fsys, dir: dir, logger: logger}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file that holds the project called name.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+projectExt)
}

// Save writes the project through a temporary file that is renamed into
// place, so readers never observe a partial document.
func (s *FileStore) Save(ctx context.Context, name string, project *core.Project, featureLevel int) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := serialization.Serialize(project, featureLevel)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", name, err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = s.fs.Remove(tmpName) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := s.fs.Rename(tmpName, s.Path(name)); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	s.logger.Debug("project saved", "name", name, "bytes", len(raw), "objects", project.Len())
	return nil
}

// Load reads and deserializes a project.
func (s *FileStore) Load(ctx context.Context, name string, factory *core.Factory) (*serialization.Result, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := afero.ReadFile(s.fs, s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	res, err := serialization.Deserialize(raw, factory)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	if n := res.Warnings.Len(); n > 0 {
		s.logger.Warn("project loaded with warnings", "name", name, "warnings", n)
	}
	return res, nil
}

// List returns the names of all stored projects, sorted.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || filepath.Ext(n) != projectExt {
			continue
		}
		names = append(names, strings.TrimSuffix(n, projectExt))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a project file.
func (s *FileStore) Delete(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, err := s.fs.Stat(s.Path(name)); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.fs.Remove(s.Path(name))
}

// Close is a no-op; files are not held open between calls.
func (s *FileStore) Close() error { return nil }
