package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileBackend stores a checkpoint as a file.
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend creates a file backend rooted in fs.
func NewFileBackend(fs afero.Fs, path string) *FileBackend {
	return &FileBackend{fs: fs, path: path}
}

// Read returns the file contents.
func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", b.path, err)
	}
	return data, nil
}

// Write writes data to a temporary file in the same directory, syncs it and
// renames it over the checkpoint.
func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(b.fs, dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = b.fs.Remove(tmpName)
		return fmt.Errorf("failed to write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = b.fs.Remove(tmpName)
		return fmt.Errorf("failed to sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = b.fs.Remove(tmpName)
		return fmt.Errorf("failed to close temp checkpoint: %w", err)
	}

	if err := b.fs.Rename(tmpName, b.path); err != nil {
		_ = b.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint %s: %w", b.path, err)
	}
	return nil
}

// Remove deletes the checkpoint file.
func (b *FileBackend) Remove(ctx context.Context) error {
	if err := b.fs.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove checkpoint %s: %w", b.path, err)
	}
	return nil
}

// Location returns the checkpoint path.
func (b *FileBackend) Location() string {
	return b.path
}
