// Package checkpoint provides the durable backing stores used by the
// inventory checksum cache and the audit position tracker.
//
// A Backend holds one blob of line-oriented text. Two implementations exist:
//
//   - FileBackend writes to a local (or afero) filesystem using
//     temp-file-then-rename, so a crash mid-write leaves the previous version
//     intact.
//   - ObjectBackend stores the blob as a single object in an S3/MinIO bucket,
//     which lets a replacement agent host pick up where the old one stopped.
//
// Missing data is reported as ErrNotFound so callers can treat a first run as
// an empty store.
//
// # Usage
//
//	backend, err := checkpoint.New(cfg.Checkpoint, storeClient, "inventory.txt")
//	data, err := backend.Read(ctx)
//	if errors.Is(err, checkpoint.ErrNotFound) {
//	    // first run
//	}
package checkpoint
