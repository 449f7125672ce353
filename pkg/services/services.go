// Package services builds the ingestion pipeline, retrieval engine and their
// collaborators from a resolved configuration.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/papers/pkg/checkpoint"
	checkpointfile "github.com/papercomputeco/papers/pkg/checkpoint/file"
	checkpointinmemory "github.com/papercomputeco/papers/pkg/checkpoint/inmemory"
	"github.com/papercomputeco/papers/pkg/config"
	"github.com/papercomputeco/papers/pkg/corpus"
	"github.com/papercomputeco/papers/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/papers/pkg/embeddings/utils"
	"github.com/papercomputeco/papers/pkg/eventstream"
	"github.com/papercomputeco/papers/pkg/eventstream/kafka"
	"github.com/papercomputeco/papers/pkg/eventstream/nop"
	"github.com/papercomputeco/papers/pkg/ingest"
	"github.com/papercomputeco/papers/pkg/records"
	"github.com/papercomputeco/papers/pkg/records/inmemory"
	"github.com/papercomputeco/papers/pkg/records/postgres"
	"github.com/papercomputeco/papers/pkg/records/sqlite"
	"github.com/papercomputeco/papers/pkg/retrieval"
	"github.com/papercomputeco/papers/pkg/vector"
	vectorutils "github.com/papercomputeco/papers/pkg/vector/utils"
)

// Provider names for the record store and checkpoint store.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	CheckpointStorage = "storage"
	CheckpointFile    = "file"
	CheckpointMemory  = "memory"

	EventStreamNop   = "nop"
	EventStreamKafka = "kafka"
)

// ErrNoCorpus is returned by Pipeline when no corpus source is configured.
var ErrNoCorpus = errors.New("no corpus source configured: set corpus.source or pass --corpus")

// Options configures Build.
type Options struct {
	Config *config.Config

	// ConfigDir overrides the .papers/ directory used for default paths.
	ConfigDir string

	Logger *slog.Logger
}

// Services holds the constructed collaborators. Close releases all of them.
type Services struct {
	Config      *config.Config
	Records     records.Driver
	Checkpoints checkpoint.Store
	Vectors     vector.Driver
	Embedder    embeddings.Embedder
	Publisher   eventstream.Publisher
	Engine      *retrieval.Engine

	// pipeline is nil when no corpus source is configured.
	pipeline *ingest.Pipeline

	logger  *slog.Logger
	closers []func() error
}

// Build constructs every collaborator described by o.Config. On error,
// anything already opened is closed.
func Build(ctx context.Context, o *Options) (*Services, error) {
	if o.Config == nil {
		return nil, errors.New("config is required")
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Services{Config: o.Config, logger: logger}
	if err := s.build(ctx, o); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Services) build(ctx context.Context, o *Options) error {
	cfg := o.Config

	var err error
	if s.Records, err = s.newRecords(ctx, cfg.Storage, o.ConfigDir); err != nil {
		return err
	}
	s.closers = append(s.closers, s.Records.Close)

	if s.Checkpoints, err = s.newCheckpoints(cfg.Ingest.CheckpointProvider, o.ConfigDir); err != nil {
		return err
	}

	if s.Vectors, err = s.newVectors(ctx, cfg, o.ConfigDir); err != nil {
		return err
	}
	s.closers = append(s.closers, s.Vectors.Close)

	s.Embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType:      cfg.Embedding.Provider,
		TargetURL:         cfg.Embedding.Target,
		Model:             cfg.Embedding.Model,
		APIKey:            cfg.Embedding.APIKey,
		Dimensions:        cfg.Embedding.Dimensions,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	s.closers = append(s.closers, s.Embedder.Close)

	if s.Publisher, err = newPublisher(cfg.EventStream); err != nil {
		return err
	}
	s.closers = append(s.closers, s.Publisher.Close)

	s.Engine, err = retrieval.NewEngine(&retrieval.Config{
		Embedder: s.Embedder,
		Vectors:  s.Vectors,
		Records:  s.Records,
		Logger:   s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating retrieval engine: %w", err)
	}

	if cfg.Corpus.Source == "" {
		return nil
	}

	source, err := corpus.NewSource(cfg.Corpus.Source)
	if err != nil {
		return err
	}

	s.pipeline, err = ingest.NewPipeline(&ingest.Config{
		Source:         source,
		Checkpoints:    s.Checkpoints,
		Records:        s.Records,
		Vectors:        s.Vectors,
		Embedder:       s.Embedder,
		Publisher:      s.Publisher,
		CheckpointName: cfg.Ingest.CheckpointName,
		Concurrency:    cfg.Ingest.Concurrency,
		Logger:         s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating ingestion pipeline: %w", err)
	}
	return nil
}

// Pipeline returns the ingestion pipeline, or ErrNoCorpus.
func (s *Services) Pipeline() (*ingest.Pipeline, error) {
	if s.pipeline == nil {
		return nil, ErrNoCorpus
	}
	return s.pipeline, nil
}

// Close releases every opened collaborator in reverse order of creation.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Services) newRecords(ctx context.Context, c config.StorageConfig, configDir string) (records.Driver, error) {
	switch c.Provider {
	case StorageSQLite, "":
		path, err := ResolveDataPath(c.SQLitePath, configDir, RecordsDBFile)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite record store: %w", err)
		}
		s.logger.Info("using SQLite record store", "path", path)
		return driver, nil

	case StoragePostgres:
		if c.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres provider")
		}
		driver, err := postgres.NewDriver(ctx, c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL record store: %w", err)
		}
		s.logger.Info("using PostgreSQL record store")
		return driver, nil

	case StorageMemory:
		s.logger.Info("using in-memory record store")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", c.Provider)
	}
}

// checkpointer is implemented by record stores that can also hold
// checkpoints in the same database.
type checkpointer interface {
	Checkpoints() checkpoint.Store
}

func (s *Services) newCheckpoints(provider, configDir string) (checkpoint.Store, error) {
	switch provider {
	case CheckpointStorage, "":
		if c, ok := s.Records.(checkpointer); ok {
			return c.Checkpoints(), nil
		}
		s.logger.Warn("record store cannot hold checkpoints, keeping them in memory")
		return checkpointinmemory.NewStore(), nil

	case CheckpointFile:
		store, err := checkpointfile.NewStore(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create file checkpoint store: %w", err)
		}
		s.logger.Info("using file checkpoint store", "path", store.Path())
		return store, nil

	case CheckpointMemory:
		return checkpointinmemory.NewStore(), nil

	default:
		return nil, fmt.Errorf("unsupported checkpoint provider: %s", provider)
	}
}

func (s *Services) newVectors(ctx context.Context, cfg *config.Config, configDir string) (vector.Driver, error) {
	target := cfg.VectorStore.Target

	switch cfg.VectorStore.Provider {
	case vectorutils.ProviderSQLiteVec:
		path, err := ResolveDataPath(target, configDir, VectorsDBFile)
		if err != nil {
			return nil, err
		}
		target = path
	case vectorutils.ProviderChroma:
		if target == "" {
			target = "http://localhost:8000"
		}
	case vectorutils.ProviderQdrant:
		if target == "" {
			target = "localhost:6334"
		}
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	s.logger.Info("using vector store", "provider", cfg.VectorStore.Provider, "target", target)
	return driver, nil
}

func newPublisher(c config.EventStreamConfig) (eventstream.Publisher, error) {
	switch c.Provider {
	case EventStreamNop, "":
		return nop.NewPublisher(), nil
	case EventStreamKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(c.Brokers),
			Topic:   c.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported event stream provider: %s", c.Provider)
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
