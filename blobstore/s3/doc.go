// Package s3 provides an Amazon S3 backed blobstore.Store, plus a
// DynamoDB-coordinated commit store for atomically publishing the latest
// snapshot pointer.
package s3
