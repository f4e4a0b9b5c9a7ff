package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"farm-agent/core/poller"
	"farm-agent/core/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
)

// ErrNoSnapshot is returned when no snapshot has been published yet.
var ErrNoSnapshot = errors.New("no inventory snapshot available")

// Collector supplies the current view of the farm.
// Errors wrapping poller.ErrUnavailable are retried by the runner.
type Collector interface {
	// Collect returns the latest snapshot.
	Collect(ctx context.Context) (*Snapshot, error)
	// Probe checks that snapshots can be read.
	Probe(ctx context.Context) error
	// Describe names the snapshot location for logs.
	Describe() string
}

// StorageCollector reads the newest JSON snapshot under a prefix of a bucket.
type StorageCollector struct {
	client storage.Client
	bucket string
	prefix string
}

// NewStorageCollector creates a collector over object storage.
func NewStorageCollector(client storage.Client, bucket, prefix string) *StorageCollector {
	return &StorageCollector{client: client, bucket: bucket, prefix: prefix}
}

// Collect downloads and decodes the newest snapshot. Newest means the latest
// LastModified, ties broken by the greater key.
func (c *StorageCollector) Collect(ctx context.Context) (*Snapshot, error) {
	key, err := c.latest(ctx)
	if err != nil {
		return nil, err
	}

	reader, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, poller.Unavailable(fmt.Errorf("failed to get snapshot %s: %w", key, err))
	}
	defer reader.Close()

	snap, err := DecodeSnapshot(reader)
	if err != nil {
		// A half-written or broken snapshot is replaced by the next one.
		return nil, poller.Unavailable(fmt.Errorf("snapshot %s: %w", key, err))
	}
	return snap, nil
}

func (c *StorageCollector) latest(ctx context.Context) (string, error) {
	var best minio.ObjectInfo
	found := false

	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: c.prefix, Recursive: true}) {
		if obj.Err != nil {
			return "", poller.Unavailable(fmt.Errorf("failed to list snapshots: %w", obj.Err))
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		if !found || obj.LastModified.After(best.LastModified) ||
			(obj.LastModified.Equal(best.LastModified) && obj.Key > best.Key) {
			best = obj
			found = true
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !found {
		return "", poller.Unavailable(fmt.Errorf("%w under %s/%s", ErrNoSnapshot, c.bucket, c.prefix))
	}
	return best.Key, nil
}

// Probe checks that the bucket is reachable.
func (c *StorageCollector) Probe(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return poller.Unavailable(fmt.Errorf("failed to reach bucket %s: %w", c.bucket, err))
	}
	if !exists {
		return poller.Unavailable(fmt.Errorf("bucket %s does not exist", c.bucket))
	}
	return nil
}

// Describe returns bucket/prefix.
func (c *StorageCollector) Describe() string {
	return c.bucket + "/" + c.prefix
}

// FileCollector reads a snapshot from a single file.
type FileCollector struct {
	fs   afero.Fs
	path string
}

// NewFileCollector creates a collector over a file.
func NewFileCollector(fs afero.Fs, path string) *FileCollector {
	return &FileCollector{fs: fs, path: path}
}

// Collect reads and decodes the snapshot file.
func (c *FileCollector) Collect(ctx context.Context) (*Snapshot, error) {
	f, err := c.fs.Open(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, poller.Unavailable(fmt.Errorf("%w at %s", ErrNoSnapshot, c.path))
		}
		return nil, poller.Unavailable(fmt.Errorf("failed to open snapshot %s: %w", c.path, err))
	}
	defer f.Close()

	snap, err := DecodeSnapshot(f)
	if err != nil {
		return nil, poller.Unavailable(fmt.Errorf("snapshot %s: %w", c.path, err))
	}
	return snap, nil
}

// Probe checks that the snapshot file exists.
func (c *FileCollector) Probe(ctx context.Context) error {
	if _, err := c.fs.Stat(c.path); err != nil {
		return poller.Unavailable(fmt.Errorf("snapshot %s: %w", c.path, err))
	}
	return nil
}

// Describe returns the file path.
func (c *FileCollector) Describe() string {
	return c.path
}

// NewCollector builds the collector selected by cfg.
func NewCollector(cfg Config, client storage.Client, bucket string, fs afero.Fs) (Collector, error) {
	switch cfg.Collector {
	case "", CollectorStorage:
		if client == nil {
			return nil, fmt.Errorf("storage collector requires a storage client")
		}
		return NewStorageCollector(client, bucket, cfg.Path), nil
	case CollectorFile:
		return NewFileCollector(fs, cfg.Path), nil
	default:
		return nil, fmt.Errorf("unknown inventory collector %q", cfg.Collector)
	}
}
