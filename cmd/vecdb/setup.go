package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"

	"github.com/hupe1980/vecdb"
	"github.com/hupe1980/vecdb/blobstore"
	miniostore "github.com/hupe1980/vecdb/blobstore/minio"
	s3store "github.com/hupe1980/vecdb/blobstore/s3"
	"github.com/hupe1980/vecdb/chunk"
	"github.com/hupe1980/vecdb/codec"
	"github.com/hupe1980/vecdb/embed"
	"github.com/hupe1980/vecdb/internal/config"
	"github.com/hupe1980/vecdb/ledger"
)

// closer releases resources opened for the DB, such as the Badger ledger.
type closer func() error

func newLogger(cfg config.LogConfig) *vecdb.Logger {
	if cfg.Format == "json" {
		return vecdb.NewJSONLogger(cfg.SlogLevel())
	}

	return vecdb.NewTextLogger(cfg.SlogLevel())
}

func newEmbedder(cfg config.EmbedderConfig) (embed.Embedder, error) {
	switch cfg.Provider {
	case "", "hash":
		return embed.NewHash(cfg.Dimension), nil
	case "openai":
		return embed.NewOpenAI(func(o *embed.OpenAIOptions) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.Dimension > 0 {
				o.Dimension = cfg.Dimension
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Provider)
	}
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}

	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

func newLedger(ctx context.Context, cfg config.LedgerConfig, logger *vecdb.Logger) (ledger.Ledger, closer, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil, nil
	case "memory":
		return ledger.NewMemory(), nil, nil
	case "badger":
		c, ok := codec.ByName(cfg.Codec)
		if !ok {
			return nil, nil, fmt.Errorf("unknown ledger codec %q", cfg.Codec)
		}

		l, err := ledger.NewBadger(func(o *ledger.BadgerOptions) {
			o.Dir = cfg.Dir
			o.Codec = c
			o.Logger = logger.Logger
		})
		if err != nil {
			return nil, nil, err
		}

		return l, l.Close, nil
	case "dynamodb":
		awsCfg, err := loadAWSConfig(ctx, cfg.Region)
		if err != nil {
			return nil, nil, fmt.Errorf("loading aws config: %w", err)
		}

		return ledger.NewDynamoDB(dynamodb.NewFromConfig(awsCfg), cfg.Table), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger type %q", cfg.Type)
	}
}

func newBlobStore(ctx context.Context, cfg config.BlobStoreConfig) (blobstore.Store, error) {
	var store blobstore.Store

	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "local":
		store = blobstore.NewLocalStore(cfg.Root)
	case "s3":
		awsCfg, err := loadAWSConfig(ctx, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}

		store = s3store.NewStore(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix)
	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("creating minio client: %w", err)
		}

		store = miniostore.NewStore(client, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown blobstore type %q", cfg.Type)
	}

	compression, err := blobstore.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	return blobstore.NewCompressed(store, compression)
}

// openDB builds a DB from cfg. The returned closer must be called after
// the DB has been closed.
func openDB(ctx context.Context, cfg *config.Config) (*vecdb.DB, embed.Embedder, closer, error) {
	logger := newLogger(cfg.Log)

	embedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, nil, nil, err
	}

	l, closeLedger, err := newLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() error {
		if closeLedger != nil {
			return closeLedger()
		}

		return nil
	}

	store, err := newBlobStore(ctx, cfg.BlobStore)
	if err != nil {
		_ = cleanup()
		return nil, nil, nil, err
	}

	builder := vecdb.NewBuilder().
		M(cfg.Index.M).
		EFConstruction(cfg.Index.EFConstruction).
		EFSearch(cfg.Index.EFSearch).
		Heuristic(cfg.Index.Heuristic).
		OverSample(cfg.Index.OverSample).
		Logger(logger).
		Embedder(embedder).
		EmbedConcurrency(cfg.Ingest.Concurrency)

	if cfg.Ingest.RequestsPerSecond > 0 {
		builder = builder.EmbedRateLimit(rate.Limit(cfg.Ingest.RequestsPerSecond), cfg.Ingest.Burst)
	}

	if l != nil {
		builder = builder.Ledger(l)
	}

	if store != nil {
		builder = builder.BlobStore(store)
	}

	db, err := builder.Build()
	if err != nil {
		_ = cleanup()
		return nil, nil, nil, err
	}

	return db, embedder, cleanup, nil
}

func strategyFromFlags(kind string, size, overlap int) (chunk.Strategy, error) {
	k, err := chunk.ParseKind(kind)
	if err != nil {
		return chunk.Strategy{}, err
	}

	s := chunk.Strategy{Kind: k, Size: size, Overlap: overlap}

	return s, s.Validate()
}
