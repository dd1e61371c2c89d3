// Package drive provides file-based storage for the drive feature:
// authenticated upload, download, listing and deletion of arbitrary
// files under one directory.
package drive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxFileSize caps a single upload.
const MaxFileSize = 100 * 1024 * 1024 // 100MB

var (
	// ErrNotFound is returned when the named file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidName is returned for names that are empty after
	// sanitization or that escape the storage directory.
	ErrInvalidName = errors.New("invalid filename")

	// ErrTooLarge is returned when an upload exceeds MaxFileSize.
	ErrTooLarge = errors.New("file too large")
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// FileInfo describes one stored file.
type FileInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modifiedAt"`
}

// Store is a directory-backed file store.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// New creates the storage directory if needed and returns a store over
// it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SanitizeName maps an arbitrary client-supplied filename to a safe one,
// replacing anything outside [a-zA-Z0-9._-] with underscores.
func SanitizeName(name string) (string, error) {
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." || strings.Trim(name, "_") == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// resolve returns the absolute path for a stored name, rejecting
// traversal attempts.
func (s *Store) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.dir, name)
	if filepath.Dir(path) != filepath.Clean(s.dir) {
		return "", ErrInvalidName
	}
	return path, nil
}

// List returns stored files ordered by modification time descending.
// Dotfiles are hidden.
func (s *Store) List() ([]FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:       entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC().Format(time.RFC3339),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModifiedAt > files[j].ModifiedAt
	})
	return files, nil
}

// Save stores the reader's content under the (sanitized) name,
// overwriting any existing file. Content is staged to a temp file and
// renamed so a failed upload never leaves a partial file behind.
func (s *Store) Save(name string, r io.Reader) (FileInfo, error) {
	safeName, err := SanitizeName(name)
	if err != nil {
		return FileInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := filepath.Join(s.dir, "."+safeName+"."+uuid.NewString()+".tmp")
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return FileInfo{}, fmt.Errorf("creating temp file: %w", err)
	}

	written, err := io.Copy(tmp, io.LimitReader(r, MaxFileSize+1))
	if err == nil && written > MaxFileSize {
		err = ErrTooLarge
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		if errors.Is(err, ErrTooLarge) {
			return FileInfo{}, ErrTooLarge
		}
		return FileInfo{}, fmt.Errorf("writing file: %w", err)
	}

	finalPath := filepath.Join(s.dir, safeName)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return FileInfo{}, fmt.Errorf("storing file: %w", err)
	}

	return FileInfo{
		Name:       safeName,
		Size:       written,
		ModifiedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Open returns a reader over the named file and its size.
func (s *Store) Open(name string) (io.ReadCloser, int64, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("opening file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("reading file info: %w", err)
	}
	return f, info.Size(), nil
}

// Delete removes the named file.
func (s *Store) Delete(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
