// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "vecdb/")
//
//	db, err := vecdb.New(vecdb.WithBlobStore(store))
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large documents
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
