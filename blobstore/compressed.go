package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the codec used by Compressed.
type Compression byte

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Compression(%d)", byte(c))
	}
}

// ParseCompression parses "none", "zstd" or "lz4". The empty string is "none".
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("blobstore: unknown compression %q", s)
	}
}

// compressedMagic prefixes every blob written by Compressed. The byte after
// it names the Compression, so blobs stay readable when the setting changes.
const compressedMagic = 0xB5

var ErrCorrupt = errors.New("blobstore: corrupt compressed blob")

// Compressed wraps a Store and compresses blob content on Put.
type Compressed struct {
	Store
	compression Compression
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
}

// NewCompressed wraps inner with the given compression.
func NewCompressed(inner Store, c Compression) (*Compressed, error) {
	if c > CompressionLZ4 {
		return nil, fmt.Errorf("blobstore: unknown compression %d", byte(c))
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &Compressed{
		Store:       inner,
		compression: c,
		encoder:     enc,
		decoder:     dec,
	}, nil
}

// Compression returns the codec used for new blobs.
func (c *Compressed) Compression() Compression { return c.compression }

// Put compresses data and writes it to the wrapped store.
func (c *Compressed) Put(ctx context.Context, name string, data []byte) error {
	out, err := c.encode(data)
	if err != nil {
		return err
	}

	return c.Store.Put(ctx, name, out)
}

// Get reads and decompresses a blob.
func (c *Compressed) Get(ctx context.Context, name string) ([]byte, error) {
	raw, err := c.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	return c.decode(raw)
}

// Open opens a blob for reading. Uncompressed blobs are served by the
// wrapped store's blob without copying; compressed ones are decoded into
// memory.
func (c *Compressed) Open(ctx context.Context, name string) (Blob, error) {
	inner, err := c.Store.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	var header [2]byte
	if inner.Size() < int64(len(header)) {
		_ = inner.Close()
		return nil, ErrCorrupt
	}

	if _, err := inner.ReadAt(ctx, header[:], 0); err != nil {
		_ = inner.Close()
		return nil, err
	}

	if header[0] != compressedMagic {
		_ = inner.Close()
		return nil, ErrCorrupt
	}

	if Compression(header[1]) == CompressionNone {
		return &sectionBlob{inner: inner, off: int64(len(header))}, nil
	}

	defer inner.Close()

	raw, err := readAll(ctx, inner)
	if err != nil {
		return nil, err
	}

	data, err := c.decode(raw)
	if err != nil {
		return nil, err
	}

	return NewBytesBlob(data), nil
}

func (c *Compressed) encode(data []byte) ([]byte, error) {
	header := []byte{compressedMagic, byte(c.compression)}

	switch c.compression {
	case CompressionZstd:
		return c.encoder.EncodeAll(data, header), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		buf.Write(header)

		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}

		if err := w.Close(); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	default:
		return append(header, data...), nil
	}
}

func (c *Compressed) decode(raw []byte) ([]byte, error) {
	if len(raw) < 2 || raw[0] != compressedMagic {
		return nil, ErrCorrupt
	}

	body := raw[2:]

	switch Compression(raw[1]) {
	case CompressionNone:
		return body, nil
	case CompressionZstd:
		out, err := c.decoder.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		return out, nil
	default:
		return nil, ErrCorrupt
	}
}
