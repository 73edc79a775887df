package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

type Storer[T ValidatingSpec] interface {
	Save(context.Context, string, T) error
	Load(context.Context, string) (T, error)
	Delete(context.Context, string) error
}

// FileStore keeps one json file per record in a directory.
type FileStore[T ValidatingSpec] struct {
	path string

	mu sync.RWMutex
}

func NewFileStore[T ValidatingSpec](path string) (*FileStore[T], error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening store path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store path %q is not a directory", path)
	}

	return &FileStore[T]{path: path}, nil
}

func (s *FileStore[T]) Save(_ context.Context, id string, o T) error {
	if err := validateId(id); err != nil {
		return err
	}

	jsonData, err := encodeAsset(id, o)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return atomicWrite(s.filePath(id), jsonData, 0644)
}

func (s *FileStore[T]) Load(_ context.Context, id string) (T, error) {
	var zero T
	if err := validateId(id); err != nil {
		return zero, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	jsonData, err := s.readFile(s.filePath(id))
	if err != nil {
		return zero, err
	}

	return decodeAsset[T](id, jsonData)
}

func (s *FileStore[T]) Delete(_ context.Context, id string) error {
	if err := validateId(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.filePath(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

// atomicWrite writes data to a temp file then renames it to the target path.
// This prevents partial or empty files if the process is interrupted.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			slog.Warn("failed to remove temp file after rename failure", "path", tmp, "error", removeErr)
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (s *FileStore[T]) filePath(id string) string {
	return filepath.Join(s.path, fmt.Sprintf("%s.json", id))
}

func (s *FileStore[T]) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	// Ignoring close error - file is read-only, error is not actionable
	defer func() { _ = file.Close() }()

	jsonData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return jsonData, nil
}
