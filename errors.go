package vecdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecdb/chunk"
	"github.com/hupe1980/vecdb/embed"
	"github.com/hupe1980/vecdb/ingest"
	"github.com/hupe1980/vecdb/internal/hnsw"
	"github.com/hupe1980/vecdb/internal/registry"
	"github.com/hupe1980/vecdb/ledger"
)

var (
	// ErrNotFound is returned for unknown collection or record IDs.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned by operations on a closed DB.
	ErrClosed = errors.New("vecdb: closed")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = hnsw.ErrInvalidK

	// ErrInvalidName is returned for empty names and for the reserved name
	// "default" used without an explicit override.
	ErrInvalidName = registry.ErrInvalidName

	// ErrInvalidArgument is returned for negative limits and offsets.
	ErrInvalidArgument = registry.ErrInvalidArgument

	// ErrInvalidStrategy is returned for chunking strategies that fail validation.
	ErrInvalidStrategy = chunk.ErrInvalidStrategy

	// ErrEmbeddingFailure marks errors returned by the embedding provider.
	ErrEmbeddingFailure = ingest.ErrEmbeddingFailure

	// ErrNoEmbedder is returned when an operation needs an embedder and none is configured.
	ErrNoEmbedder = ingest.ErrNoEmbedder

	// ErrLedgerUnavailable marks ledger failures. They are reported only by
	// Rehydrate; other operations never fail because of the ledger.
	ErrLedgerUnavailable = ledger.ErrUnavailable
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid collection dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// ErrorKind classifies errors returned by a DB.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindDimensionMismatch
	KindInvalidName
	KindInvalidStrategy
	KindEmbeddingFailure
	KindLedgerUnavailable
	KindInvalidArgument
	KindClosed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindDimensionMismatch:
		return "DimensionMismatch"
	case KindInvalidName:
		return "InvalidName"
	case KindInvalidStrategy:
		return "InvalidStrategy"
	case KindEmbeddingFailure:
		return "EmbeddingFailure"
	case KindLedgerUnavailable:
		return "LedgerUnavailable"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// KindOf returns the kind of err. Nil and unclassified errors are KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var dm *ErrDimensionMismatch
	var id *ErrInvalidDimension

	switch {
	case errors.Is(err, ErrClosed):
		return KindClosed
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.As(err, &dm):
		return KindDimensionMismatch
	case errors.Is(err, ErrInvalidName):
		return KindInvalidName
	case errors.Is(err, ErrInvalidStrategy):
		return KindInvalidStrategy
	case errors.Is(err, ErrEmbeddingFailure), errors.Is(err, ErrNoEmbedder):
		return KindEmbeddingFailure
	case errors.Is(err, ErrLedgerUnavailable):
		return KindLedgerUnavailable
	case errors.As(err, &id), errors.Is(err, ErrInvalidK), errors.Is(err, ErrInvalidArgument), errors.Is(err, hnsw.ErrEmptyVector):
		return KindInvalidArgument
	default:
		return KindUnknown
	}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, registry.ErrCollectionNotFound) || errors.Is(err, registry.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Dimension normalization.
	var rdm *registry.ErrDimensionMismatch
	if errors.As(err, &rdm) {
		return &ErrDimensionMismatch{Expected: rdm.Expected, Actual: rdm.Actual, cause: err}
	}
	var hdm *hnsw.ErrDimensionMismatch
	if errors.As(err, &hdm) {
		return &ErrDimensionMismatch{Expected: hdm.Expected, Actual: hdm.Actual, cause: err}
	}
	var rid *registry.ErrInvalidDimension
	if errors.As(err, &rid) {
		return &ErrInvalidDimension{Dimension: rid.Dimension, cause: err}
	}
	var hid *hnsw.ErrInvalidDimension
	if errors.As(err, &hid) {
		return &ErrInvalidDimension{Dimension: hid.Dimension, cause: err}
	}

	// Provider errors outside the ingestion pipeline.
	var ud *embed.ErrUnexpectedDimension
	if errors.As(err, &ud) && !errors.Is(err, ErrEmbeddingFailure) {
		return fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}

	return err
}
