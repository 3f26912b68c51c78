package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
)

// FS stores images on the local filesystem under a root directory.
type FS struct {
	root string
}

// NewFS returns a filesystem store rooted at dir. The directory is created
// on first write.
func NewFS(dir string) *FS {
	return &FS{root: dir}
}

// Put writes the image through a temporary file and renames it into place,
// creating the date and storm directories first.
func (s *FS) Put(_ context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	dst := s.path(key)
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+string(key.Kind)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write image %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close image %s: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod image %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename image %s: %w", key, err)
	}
	return nil
}

func (s *FS) Get(_ context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", key, err)
	}
	return data, nil
}

// Version is the file's modification time and size.
func (s *FS) Version(_ context.Context, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	fi, err := os.Stat(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat image %s: %w", key, err)
	}
	return fmt.Sprintf("%d-%d", fi.ModTime().UnixNano(), fi.Size()), nil
}

func (s *FS) Dates(_ context.Context) ([]string, error) {
	names, err := s.subdirs(s.root)
	if err != nil {
		return nil, err
	}
	var dates []string
	for _, n := range names {
		if ValidateDate(n) == nil {
			dates = append(dates, n)
		}
	}
	return dates, nil
}

func (s *FS) Storms(_ context.Context, date string) ([]string, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	names, err := s.subdirs(filepath.Join(s.root, date))
	if err != nil {
		return nil, err
	}
	var storms []string
	for _, n := range names {
		if id, err := CanonicalStormID(n); err == nil && id == n {
			storms = append(storms, n)
		}
	}
	return storms, nil
}

func (s *FS) Kinds(_ context.Context, date, stormID string) ([]domain.PlotKind, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	id, err := CanonicalStormID(stormID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, date, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list kinds: %w", err)
	}
	var kinds []domain.PlotKind
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if k, ok := kindFromFile(e.Name()); ok {
			kinds = append(kinds, k)
		}
	}
	sortKinds(kinds)
	return kinds, nil
}

// Ping reports whether the root exists and is a directory. A root that was
// never written to is reported as not ready.
func (s *FS) Ping(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat images dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("images dir %s is not a directory", s.root)
	}
	return nil
}

func (s *FS) path(key Key) string {
	return filepath.Join(s.root, filepath.FromSlash(key.Path()))
}

func (s *FS) subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
