// Package blobstore abstracts the storage of immutable snapshot blobs.
//
// A Store writes whole blobs (Create/Put) and reads them back (Open) by
// name. Implementations exist for the local filesystem, plain memory (for
// tests), Amazon S3 and MinIO/S3-compatible object stores.
package blobstore
