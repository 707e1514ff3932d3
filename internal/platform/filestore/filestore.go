package filestore

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrBlobNotFound is returned when a requested blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// Store saves and reads named byte blobs under a single root directory.
// The zero value is not usable; construct instances with New.
type Store struct {
	fs   afero.Fs
	root string
}

// New creates a Store rooted at the given directory on the provided
// filesystem. The root is not created until EnsureRoot or the first Save.
func New(fs afero.Fs, root string) *Store {
	return &Store{
		fs:   fs,
		root: root,
	}
}

// NewOS creates a Store on the real filesystem.
func NewOS(root string) *Store {
	return New(afero.NewOsFs(), root)
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// EnsureRoot creates the root directory if it does not already exist.
func (s *Store) EnsureRoot() error {
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create storage root %q: %w", s.root, err)
	}
	return nil
}

// Save writes the contents of r to the blob with the given name,
// creating the root directory if needed. An existing blob with the same
// name is overwritten.
func (s *Store) Save(name string, r io.Reader) error {
	if err := s.EnsureRoot(); err != nil {
		return err
	}

	f, err := s.fs.Create(s.path(name))
	if err != nil {
		return fmt.Errorf("failed to create blob %q: %w", name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write blob %q: %w", name, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close blob %q: %w", name, err)
	}

	return nil
}

// SaveBytes writes the given bytes to the blob with the given name.
func (s *Store) SaveBytes(name string, data []byte) error {
	if err := s.EnsureRoot(); err != nil {
		return err
	}

	if err := afero.WriteFile(s.fs, s.path(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", name, err)
	}

	return nil
}

// Read returns the full contents of the named blob.
// Returns ErrBlobNotFound if the blob does not exist.
func (s *Store) Read(name string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, name)
		}
		return nil, fmt.Errorf("failed to read blob %q: %w", name, err)
	}
	return data, nil
}

// Remove deletes the named blob. Removing a blob that does not exist is
// not an error.
func (s *Store) Remove(name string) error {
	if err := s.fs.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob %q: %w", name, err)
	}
	return nil
}

// Exists reports whether the named blob is present.
func (s *Store) Exists(name string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.path(name))
	if err != nil {
		return false, fmt.Errorf("failed to stat blob %q: %w", name, err)
	}
	return ok, nil
}

// HTTPFileSystem exposes the store as an http.FileSystem for static
// file serving of the raw blobs.
func (s *Store) HTTPFileSystem() http.FileSystem {
	return afero.NewHttpFs(afero.NewBasePathFs(s.fs, s.root))
}

// path joins the root with the blob name, stripping any directory
// components from the name so blobs cannot escape the root.
func (s *Store) path(name string) string {
	return filepath.Join(s.root, filepath.Base(name))
}
