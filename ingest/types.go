package ingest

import (
	"errors"

	"github.com/hupe1980/vecdb/chunk"
	"github.com/hupe1980/vecdb/metadata"
)

// Metadata keys set on every ingested record.
const (
	MetaText           = "text"
	MetaChunkIndex     = "chunk_index"
	MetaStart          = "start"
	MetaEnd            = "end"
	MetaDocumentID     = "document_id"
	MetaFilename       = "filename"
	MetaMimeType       = "mime_type"
	MetaEmbeddingError = "embedding_error"
)

var (
	// ErrNoEmbedder is returned when embedding is requested without an embedder.
	ErrNoEmbedder = errors.New("ingest: no embedder configured")

	// ErrEmbeddingFailure marks failures reported by the embedder.
	ErrEmbeddingFailure = errors.New("ingest: embedding failed")
)

// Document is a document whose text has already been extracted.
type Document struct {
	// ID identifies the document. A random ID is assigned when empty.
	ID       string
	Filename string
	MimeType string
	Text     string

	// Raw holds the original bytes. They are archived when a blob store is
	// configured, and used as text when Text is empty and Raw is UTF-8 text.
	Raw []byte
}

// Request describes one ingestion.
type Request struct {
	CollectionID string
	Document     Document
	Strategy     chunk.Strategy

	// Embed selects whether chunks are embedded and inserted. When false
	// the chunks are only returned.
	Embed bool

	// Metadata is attached to every record. Keys set by the pipeline win.
	Metadata metadata.Document
}

// Result reports what happened to a document.
type Result struct {
	DocumentID string

	Chunks        []chunk.Chunk
	ChunkCount    int
	EmbeddedCount int

	// RecordIDs holds the IDs of inserted records in chunk order.
	RecordIDs []string

	// Failures maps a chunk index to the reason it was not inserted.
	Failures map[int]string

	// ArchiveKey is the blob name of the archived raw bytes, if any.
	ArchiveKey   string
	ArchiveError string
}
