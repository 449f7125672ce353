package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent papers configuration stored as config.toml
// in the .papers/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Corpus      CorpusConfig      `toml:"corpus"`
	Ingest      IngestConfig      `toml:"ingest"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// StorageConfig holds record store settings shared by ingestion and search.
type StorageConfig struct {
	// Provider is one of "sqlite", "postgres" or "memory".
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider,omitempty"`
	Target            string  `toml:"target,omitempty"`
	Model             string  `toml:"model,omitempty"`
	Dimensions        uint    `toml:"dimensions,omitempty"`
	APIKey            string  `toml:"api_key,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

// CorpusConfig locates the corpus: a local path (optionally .gz) or an
// http(s) URL.
type CorpusConfig struct {
	Source string `toml:"source,omitempty"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	TargetCount    uint   `toml:"target_count,omitempty"`
	CheckpointName string `toml:"checkpoint_name,omitempty"`

	// CheckpointProvider is one of "storage" (the record store's database),
	// "file" or "memory".
	CheckpointProvider string `toml:"checkpoint_provider,omitempty"`

	// Interval is a Go duration string for scheduled runs under
	// "papers serve" and "papers ingest --watch".
	Interval    string `toml:"interval,omitempty"`
	Concurrency uint   `toml:"concurrency,omitempty"`
}

// IntervalDuration parses Interval. An empty interval is zero.
func (i IngestConfig) IntervalDuration() (time.Duration, error) {
	if i.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(i.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid ingest.interval: %w", err)
	}
	return d, nil
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EventStreamConfig holds ingestion event publishing settings.
type EventStreamConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.requests_per_second": {
		get: func(c *Config) string {
			if c.Embedding.RequestsPerSecond == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Embedding.RequestsPerSecond, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.requests_per_second: %w", err)
			}
			if f < 0 {
				return fmt.Errorf("invalid value for embedding.requests_per_second: %v is negative", f)
			}
			c.Embedding.RequestsPerSecond = f
			return nil
		},
	},

	"corpus.source": stringKey(func(c *Config) *string { return &c.Corpus.Source }),

	"ingest.target_count":        uintKey("ingest.target_count", func(c *Config) *uint { return &c.Ingest.TargetCount }),
	"ingest.checkpoint_name":     stringKey(func(c *Config) *string { return &c.Ingest.CheckpointName }),
	"ingest.checkpoint_provider": stringKey(func(c *Config) *string { return &c.Ingest.CheckpointProvider }),
	"ingest.interval": {
		get: func(c *Config) string { return c.Ingest.Interval },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for ingest.interval: %w", err)
				}
			}
			c.Ingest.Interval = v
			return nil
		},
	},
	"ingest.concurrency": uintKey("ingest.concurrency", func(c *Config) *uint { return &c.Ingest.Concurrency }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}
