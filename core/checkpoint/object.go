package checkpoint

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"farm-agent/core/storage"

	"github.com/minio/minio-go/v7"
)

// ObjectBackend stores a checkpoint as one object in a bucket.
// A PUT replaces the whole object, so readers never observe a partial write.
type ObjectBackend struct {
	client storage.Client
	bucket string
	key    string
}

// NewObjectBackend creates an object backend.
func NewObjectBackend(client storage.Client, bucket, key string) *ObjectBackend {
	return &ObjectBackend{client: client, bucket: bucket, key: key}
}

// Read downloads the checkpoint object.
func (b *ObjectBackend) Read(ctx context.Context) ([]byte, error) {
	reader, err := b.client.GetObject(ctx, b.bucket, b.key, minio.GetObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get checkpoint object %s: %w", b.key, err)
	}
	defer reader.Close()

	// minio defers the 404 until the first read.
	data, err := io.ReadAll(reader)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint object %s: %w", b.key, err)
	}
	return data, nil
}

// Write uploads data as the checkpoint object.
func (b *ObjectBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return fmt.Errorf("failed to put checkpoint object %s: %w", b.key, err)
	}
	return nil
}

// Remove deletes the checkpoint object.
func (b *ObjectBackend) Remove(ctx context.Context) error {
	err := b.client.RemoveObject(ctx, b.bucket, b.key, minio.RemoveObjectOptions{})
	if err != nil && !storage.IsNotFound(err) {
		return fmt.Errorf("failed to remove checkpoint object %s: %w", b.key, err)
	}
	return nil
}

// Location returns bucket/key.
func (b *ObjectBackend) Location() string {
	return b.bucket + "/" + b.key
}
