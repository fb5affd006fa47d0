// Package storage persists raw PDF bytes under opaque keys. Two backends
// exist: S3 (keys prefixed s3://) and local disk (keys of the form
// /uploads/<name>). The key scheme recorded on the transfer row selects the
// backend on read and delete.
package storage

import (
	"context"
	"strings"
)

const (
	s3KeyPrefix    = "s3://"
	localKeyPrefix = "/uploads/"

	// s3ObjectPrefix is the bucket-internal folder S3Store writes under.
	s3ObjectPrefix = "transfers/"
)

// S3Key returns the key S3Store.Put records for a bare file name.
func S3Key(name string) string {
	return s3KeyPrefix + s3ObjectPrefix + name
}

// LocalKey returns the key LocalStore.Put records for a bare file name.
func LocalKey(name string) string {
	return localKeyPrefix + name
}

// BlobStore is the write side used at upload time.
type BlobStore interface {
	// Put stores the bytes and returns the key to record on the transfer.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get returns the stored bytes for a key previously returned by Put.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the blob. Callers treat failures as best-effort.
	Delete(ctx context.Context, key string) error
}

// IsS3Key reports whether the stored key addresses the S3 backend.
func IsS3Key(key string) bool {
	return strings.HasPrefix(key, s3KeyPrefix)
}

// LocalName extracts the bare file name from a local key, or "" when the key
// is not local.
func LocalName(key string) string {
	if !strings.HasPrefix(key, localKeyPrefix) {
		return ""
	}
	return strings.TrimPrefix(key, localKeyPrefix)
}
