package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore exercises the behaviour every Store shares.
func testStore(t *testing.T, store Store) {
	t.Helper()

	ctx := context.Background()
	data := []byte("hello world, this is an archived document")

	_, err := store.Get(ctx, "documents/c1/d1/missing.txt")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "documents/c1/d1/a.txt", data))
	require.NoError(t, store.Put(ctx, "documents/c1/d2/b.txt", []byte("second")))
	require.NoError(t, store.Put(ctx, "documents/c2/d3/c.txt", nil))

	got, err := store.Get(ctx, "documents/c1/d1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	empty, err := store.Get(ctx, "documents/c2/d3/c.txt")
	require.NoError(t, err)
	assert.Empty(t, empty)

	blob, err := store.Open(ctx, "documents/c1/d1/a.txt")
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	r, err := blob.ReadRange(ctx, int64(len(data))-8, 100)
	require.NoError(t, err)

	tail, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "document", string(tail))

	_, err = blob.ReadRange(ctx, 1000, 5)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "documents/c1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"documents/c1/d1/a.txt", "documents/c1/d2/b.txt"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Put(ctx, "documents/c1/d1/a.txt", []byte("replaced")))

	got, err = store.Get(ctx, "documents/c1/d1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(got))

	require.NoError(t, store.Delete(ctx, "documents/c1/d1/a.txt"))
	require.NoError(t, store.Delete(ctx, "documents/c1/d1/a.txt"))

	_, err = store.Open(ctx, "documents/c1/d1/a.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err = store.List(ctx, "documents/c1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"documents/c1/d2/b.txt"}, names)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "x", data))
	data[0] = 'z'

	got, err := store.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	assert.ErrorIs(t, store.Put(ctx, "", data), ErrInvalidName)
}

func TestLocalStore(t *testing.T) {
	testStore(t, NewLocalStore(t.TempDir()))
}

func TestLocalStoreLayout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)

	require.NoError(t, store.Put(ctx, "documents/c1/d1/a.txt", []byte("content")))

	onDisk, err := os.ReadFile(filepath.Join(root, "documents", "c1", "d1", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(onDisk))

	blob, err := store.Open(ctx, "documents/c1/d1/a.txt")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)

	mapped, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "content", string(mapped))
}

func TestLocalStoreRejectsEscapingNames(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	for _, name := range []string{"", "../escape", "/abs/path", "a/../../b", "dir/.tmp-123"} {
		assert.ErrorIs(t, store.Put(ctx, name, []byte("x")), ErrInvalidName, name)
	}
}

func TestLocalStoreMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "not-created"))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCompressed(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			store, err := NewCompressed(NewMemoryStore(), c)
			require.NoError(t, err)
			assert.Equal(t, c, store.Compression())

			testStore(t, store)
		})
	}
}

func TestCompressedLocal(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			store, err := NewCompressed(NewLocalStore(t.TempDir()), c)
			require.NoError(t, err)

			testStore(t, store)
		})
	}
}

func TestCompressedOpenUncompressedIsMapped(t *testing.T) {
	ctx := context.Background()

	store, err := NewCompressed(NewLocalStore(t.TempDir()), CompressionNone)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "doc", []byte("mapped content")))

	blob, err := store.Open(ctx, "doc")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)

	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "mapped content", string(data))

	all, err := ReadBlob(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "mapped content", string(all))
}

func TestCompressedOpenFromMemory(t *testing.T) {
	ctx := context.Background()

	store, err := NewCompressed(NewMemoryStore(), CompressionNone)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "doc", []byte("plain")))
	require.NoError(t, store.Store.Put(ctx, "short", []byte{compressedMagic}))

	blob, err := store.Open(ctx, "doc")
	require.NoError(t, err)

	all, err := ReadBlob(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(all))
	require.NoError(t, blob.Close())

	_, err = store.Open(ctx, "short")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCompressedShrinksRedundantData(t *testing.T) {
	ctx := context.Background()
	data := bytes.Repeat([]byte("the same sentence again and again. "), 200)

	for _, c := range []Compression{CompressionZstd, CompressionLZ4} {
		inner := NewMemoryStore()

		store, err := NewCompressed(inner, c)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, "doc", data))

		raw, err := inner.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Less(t, len(raw), len(data)/4, c.String())

		got, err := store.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestCompressedReadsAnyCodec(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()

	zstdStore, err := NewCompressed(inner, CompressionZstd)
	require.NoError(t, err)
	require.NoError(t, zstdStore.Put(ctx, "doc", []byte("payload")))

	lz4Store, err := NewCompressed(inner, CompressionLZ4)
	require.NoError(t, err)

	got, err := lz4Store.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestCompressedCorrupt(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, inner.Put(ctx, "plain", []byte("not compressed")))
	require.NoError(t, inner.Put(ctx, "bad-zstd", []byte{compressedMagic, byte(CompressionZstd), 1, 2, 3}))

	store, err := NewCompressed(inner, CompressionZstd)
	require.NoError(t, err)

	_, err = store.Get(ctx, "plain")
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = store.Get(ctx, "bad-zstd")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"": CompressionNone, "none": CompressionNone, "zstd": CompressionZstd, "lz4": CompressionLZ4} {
		got, err := ParseCompression(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}
