package vecdb

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vecdb-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithCollection adds a collection_id field to the logger.
func (l *Logger) WithCollection(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection_id", id),
	}
}

// LogCollection logs a collection lifecycle operation.
func (l *Logger) LogCollection(ctx context.Context, op, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "collection "+op+" failed",
			"collection_id", id,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "collection "+op+" completed",
			"collection_id", id,
		)
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, collectionID string, count, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"collection_id", collectionID,
			"count", count,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"collection_id", collectionID,
			"count", count,
			"dimension", dimension,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, collectionID string, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"collection_id", collectionID,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"collection_id", collectionID,
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogDelete logs a record delete operation.
func (l *Logger) LogDelete(ctx context.Context, collectionID, recordID string, deleted bool) {
	l.DebugContext(ctx, "delete completed",
		"collection_id", collectionID,
		"record_id", recordID,
		"deleted", deleted,
	)
}

// LogIngest logs a document ingestion.
func (l *Logger) LogIngest(ctx context.Context, collectionID, documentID string, chunks, embedded int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "ingest failed",
			"collection_id", collectionID,
			"document_id", documentID,
			"error", err,
		)
	case embedded < chunks && collectionID != "":
		l.WarnContext(ctx, "ingest completed with failures",
			"collection_id", collectionID,
			"document_id", documentID,
			"chunks", chunks,
			"embedded", embedded,
			"failed", chunks-embedded,
		)
	default:
		l.InfoContext(ctx, "ingest completed",
			"collection_id", collectionID,
			"document_id", documentID,
			"chunks", chunks,
			"embedded", embedded,
		)
	}
}

// LogRehydrate logs a ledger rehydration.
func (l *Logger) LogRehydrate(ctx context.Context, restored int, err error) {
	if err != nil {
		l.WarnContext(ctx, "ledger rehydration failed",
			"restored", restored,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "ledger rehydration completed",
			"restored", restored,
		)
	}
}
