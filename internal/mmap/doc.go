// Package mmap maps files read-only into memory.
//
// LocalStore uses it to read archived documents without copying them through
// an intermediate buffer. On Unix it uses mmap(2) and madvise(2); on Windows
// it uses CreateFileMapping/MapViewOfFile and access hints are ignored.
//
// A Mapping is safe for concurrent reads. Close is idempotent, and slices
// returned by Bytes must not be used after Close.
package mmap
