// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so the agent can read inventory snapshots from
// a bucket and, when configured, keep its checkpoints there instead of on
// local disk. It supports both AWS S3 and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the target bucket (used as a liveness probe).
//   - PutObject: Uploads content (checkpoint writes).
//   - GetObject: Retrieves content as a stream (snapshots, checkpoint reads).
//   - ListObjects: Lists objects in a bucket (latest snapshot lookup).
//   - RemoveObject: Deletes an object (checkpoint reset).
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "inventory")
package storage
