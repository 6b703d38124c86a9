package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// ErrNotMappable is returned by Mappable.Bytes when the bytes are not
// addressable without a copy.
var ErrNotMappable = errors.New("blobstore: blob is not mappable")

// bytesBlob is a Blob over an in-memory slice.
type bytesBlob struct {
	data []byte
}

// NewBytesBlob returns a Blob that reads from data.
func NewBytesBlob(data []byte) Blob {
	return &bytesBlob{data: data}
}

func (b *bytesBlob) Close() error { return nil }

func (b *bytesBlob) Size() int64 { return int64(len(b.data)) }

func (b *bytesBlob) Bytes() ([]byte, error) { return b.data, nil }

func (b *bytesBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return readAt(b.data, p, off)
}

func (b *bytesBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	data, err := clip(b.data, off, length)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func readAt(data, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(data)) {
		return 0, io.EOF
	}

	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

func clip(data []byte, off, length int64) ([]byte, error) {
	if off < 0 || off >= int64(len(data)) {
		return nil, io.EOF
	}

	end := min(off+length, int64(len(data)))

	return data[off:end], nil
}

// sectionBlob serves the bytes of a wrapped blob that follow a fixed-size
// header.
type sectionBlob struct {
	inner Blob
	off   int64
}

func (b *sectionBlob) Close() error { return b.inner.Close() }

func (b *sectionBlob) Size() int64 { return b.inner.Size() - b.off }

func (b *sectionBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= b.Size() {
		return 0, io.EOF
	}

	return b.inner.ReadAt(ctx, p, off+b.off)
}

func (b *sectionBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || off >= b.Size() {
		return nil, io.EOF
	}

	return b.inner.ReadRange(ctx, off+b.off, min(length, b.Size()-off))
}

func (b *sectionBlob) Bytes() ([]byte, error) {
	m, ok := b.inner.(Mappable)
	if !ok {
		return nil, ErrNotMappable
	}

	data, err := m.Bytes()
	if err != nil {
		return nil, err
	}

	return data[b.off:], nil
}

// ReadBlob returns the full content of a blob. For mappable blobs the
// result aliases the mapping and is valid only until the blob is closed.
func ReadBlob(ctx context.Context, blob Blob) ([]byte, error) {
	return readAll(ctx, blob)
}

func readAll(ctx context.Context, blob Blob) ([]byte, error) {
	if m, ok := blob.(Mappable); ok {
		if data, err := m.Bytes(); err == nil {
			return data, nil
		}
	}

	if blob.Size() == 0 {
		return []byte{}, nil
	}

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
