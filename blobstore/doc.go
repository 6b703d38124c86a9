// Package blobstore archives raw document bytes.
//
// Store is the interface for writing and reading immutable blobs.
// Ingestion archives each uploaded document under
// documents/<collection>/<document>/<filename> so that it can be re-chunked
// or re-embedded later.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: local filesystem with mmap reads
//   - Compressed: zstd or lz4 wrapper around any Store
//   - s3.Store: Amazon S3 with multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
package blobstore
