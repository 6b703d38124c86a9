// Package config loads the vecdb command configuration from a YAML file
// and VECDB_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/vecdb/codec"
)

// Config holds all command configuration.
type Config struct {
	Index     IndexConfig     `mapstructure:"index"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Embedder  EmbedderConfig  `mapstructure:"embedder"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	BlobStore BlobStoreConfig `mapstructure:"blobstore"`
	Log       LogConfig       `mapstructure:"log"`
}

type IndexConfig struct {
	M              int  `mapstructure:"m"`
	EFConstruction int  `mapstructure:"ef_construction"`
	EFSearch       int  `mapstructure:"ef_search"`
	Heuristic      bool `mapstructure:"heuristic"`
	OverSample     int  `mapstructure:"over_sample"`
}

type IngestConfig struct {
	Strategy          string  `mapstructure:"strategy"`
	ChunkSize         int     `mapstructure:"chunk_size"`
	Overlap           int     `mapstructure:"overlap"`
	Concurrency       int     `mapstructure:"concurrency"`
	BatchSize         int     `mapstructure:"batch_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	CacheSize         int     `mapstructure:"cache_size"`
	MemoryLimit       int64   `mapstructure:"memory_limit"`
}

type EmbedderConfig struct {
	// Provider is "hash" or "openai".
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Dimension int    `mapstructure:"dimension"`
}

type LedgerConfig struct {
	// Type is "none", "memory", "badger" or "dynamodb".
	Type   string `mapstructure:"type"`
	Dir    string `mapstructure:"dir"`
	Table  string `mapstructure:"table"`
	Region string `mapstructure:"region"`
	// Codec encodes badger entries: "msgpack", "json" or "go-json".
	Codec  string `mapstructure:"codec"`
}

type BlobStoreConfig struct {
	// Type is "none", "local", "s3" or "minio".
	Type        string `mapstructure:"type"`
	Root        string `mapstructure:"root"`
	Bucket      string `mapstructure:"bucket"`
	Prefix      string `mapstructure:"prefix"`
	Region      string `mapstructure:"region"`
	Endpoint    string `mapstructure:"endpoint"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	UseSSL      bool   `mapstructure:"use_ssl"`
	Compression string `mapstructure:"compression"`
	// ArchiveRate caps uploads in bytes per second. Zero is unlimited.
	ArchiveRate int64 `mapstructure:"archive_rate"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel parses Level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}

	return l
}

var defaults = map[string]any{
	"index.m":                    16,
	"index.ef_construction":      200,
	"index.ef_search":            64,
	"index.heuristic":            true,
	"index.over_sample":          2,
	"ingest.strategy":            "sentence",
	"ingest.chunk_size":          512,
	"ingest.overlap":             64,
	"ingest.concurrency":         4,
	"ingest.batch_size":          16,
	"ingest.requests_per_second": 0.0,
	"ingest.burst":               0,
	"ingest.cache_size":          4096,
	"ingest.memory_limit":        0,
	"embedder.provider":          "hash",
	"embedder.model":             "",
	"embedder.api_key":           "",
	"embedder.base_url":          "",
	"embedder.dimension":         256,
	"ledger.type":                "none",
	"ledger.dir":                 "",
	"ledger.table":               "",
	"ledger.region":              "",
	"ledger.codec":               "msgpack",
	"blobstore.type":             "none",
	"blobstore.root":             "",
	"blobstore.bucket":           "",
	"blobstore.prefix":           "",
	"blobstore.region":           "",
	"blobstore.endpoint":         "",
	"blobstore.access_key":       "",
	"blobstore.secret_key":       "",
	"blobstore.use_ssl":          true,
	"blobstore.compression":      "zstd",
	"blobstore.archive_rate":     0,
	"log.level":                  "info",
	"log.format":                 "text",
}

// Load reads configuration from path, if not empty, and from the
// environment. Environment variables use the VECDB_ prefix with "." in
// keys replaced by "_", e.g. VECDB_LEDGER_TABLE.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("VECDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration and returns warnings for settings
// that will be ignored or fail at startup.
func (c *Config) Validate() []string {
	var warnings []string

	switch c.Embedder.Provider {
	case "hash":
	case "openai":
		if c.Embedder.APIKey == "" {
			warnings = append(warnings, "embedder provider 'openai' is configured but api_key is empty; OPENAI_API_KEY will be used")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown embedder provider '%s'", c.Embedder.Provider))
	}

	if c.Ingest.Overlap >= c.Ingest.ChunkSize {
		warnings = append(warnings, fmt.Sprintf("ingest overlap %d must be smaller than chunk_size %d", c.Ingest.Overlap, c.Ingest.ChunkSize))
	}

	switch c.Ledger.Type {
	case "none", "memory":
	case "badger":
		if c.Ledger.Dir == "" {
			warnings = append(warnings, "ledger type 'badger' requires dir")
		}
	case "dynamodb":
		if c.Ledger.Table == "" {
			warnings = append(warnings, "ledger type 'dynamodb' requires table")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown ledger type '%s'", c.Ledger.Type))
	}

	if _, ok := codec.ByName(c.Ledger.Codec); !ok {
		warnings = append(warnings, fmt.Sprintf("unknown ledger codec '%s'", c.Ledger.Codec))
	}

	switch c.BlobStore.Type {
	case "none":
	case "local":
		if c.BlobStore.Root == "" {
			warnings = append(warnings, "blobstore type 'local' requires root")
		}
	case "s3", "minio":
		if c.BlobStore.Bucket == "" {
			warnings = append(warnings, fmt.Sprintf("blobstore type '%s' requires bucket", c.BlobStore.Type))
		}
		if c.BlobStore.Type == "minio" && c.BlobStore.Endpoint == "" {
			warnings = append(warnings, "blobstore type 'minio' requires endpoint")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown blobstore type '%s'", c.BlobStore.Type))
	}

	if c.Index.M < 2 {
		warnings = append(warnings, fmt.Sprintf("index m %d is too small", c.Index.M))
	}

	return warnings
}
