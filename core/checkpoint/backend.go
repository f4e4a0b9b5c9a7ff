package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"farm-agent/core/storage"

	"github.com/spf13/afero"
)

// ErrNotFound is returned by Read when nothing has been persisted yet.
var ErrNotFound = errors.New("checkpoint not found")

// Backend persists a single checkpoint blob.
type Backend interface {
	// Read returns the stored contents, or ErrNotFound.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the stored contents.
	Write(ctx context.Context, data []byte) error
	// Remove deletes the stored contents. Removing a missing checkpoint is not an error.
	Remove(ctx context.Context) error
	// Location describes where the checkpoint lives, for logging.
	Location() string
}

// New builds the backend selected by cfg for the named checkpoint.
// client and bucket are only used by the object backend.
func New(cfg Config, client storage.Client, bucket, name string) (Backend, error) {
	switch cfg.Backend {
	case "", BackendFile:
		fs := afero.NewOsFs()
		if err := fs.MkdirAll(cfg.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory %s: %w", cfg.Directory, err)
		}
		return NewFileBackend(fs, filepath.Join(cfg.Directory, name)), nil
	case BackendObject:
		if client == nil {
			return nil, fmt.Errorf("object checkpoint backend requires a storage client")
		}
		return NewObjectBackend(client, bucket, path.Join(cfg.Prefix, name)), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}
