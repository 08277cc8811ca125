// Package backup uploads the semantic index artifact pair to Google Cloud
// Storage so a machine loss does not force re-embedding every record. The
// index stays a derived copy; the snapshot is a convenience, not a source of
// truth.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
)

const objectPrefix = "spendchat-index"

// Snapshot uploads each local artifact under a fixed prefix in the bucket.
// It assumes Application Default Credentials are configured.
func Snapshot(ctx context.Context, bucketName string, artifactPaths ...string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("Snapshot: create storage client: %w", err)
	}
	defer client.Close()

	bkt := client.Bucket(bucketName)

	for _, p := range artifactPaths {
		if err := uploadFile(ctx, bkt, p); err != nil {
			return fmt.Errorf("Snapshot: %w", err)
		}
	}
	return nil
}

func uploadFile(ctx context.Context, bkt *storage.BucketHandle, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := bkt.Object(path.Join(objectPrefix, path.Base(filePath)))
	w := obj.NewWriter(ctx)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy %q to GCS writer: %w", filePath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %q: %w", filePath, err)
	}
	return nil
}
