package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"countdown/internal/config"
)

// File keeps the list as a JSON array on disk.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Load(_ context.Context) ([]Holiday, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	return decode("file", data), nil
}

func (f *File) Save(_ context.Context, list []Holiday) error {
	data, err := encode(list)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return config.WriteFileAtomic(f.path, data, ".holidays-*.json")
}

func (f *File) Close() error { return nil }
