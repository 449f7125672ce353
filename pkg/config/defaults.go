package config

import "github.com/papercomputeco/papers/pkg/checkpoint"

const (
	defaultStorageProvider = "sqlite"

	defaultVectorProvider   = "sqlite-vec"
	defaultVectorCollection = "papers"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultIngestTargetCount        = 1
	defaultIngestCheckpointProvider = "storage"
	defaultIngestConcurrency        = 1

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "papers.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Ingest: IngestConfig{
			TargetCount:        defaultIngestTargetCount,
			CheckpointName:     checkpoint.DefaultName,
			CheckpointProvider: defaultIngestCheckpointProvider,
			Concurrency:        defaultIngestConcurrency,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
