// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/papers/pkg/vector"
	"github.com/papercomputeco/papers/pkg/vector/chroma"
	"github.com/papercomputeco/papers/pkg/vector/qdrant"
	"github.com/papercomputeco/papers/pkg/vector/sqlitevec"
)

// Provider names accepted by NewVectorDriver.
const (
	ProviderSQLiteVec = "sqlite-vec"
	ProviderChroma    = "chroma"
	ProviderQdrant    = "qdrant"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is a database path for sqlite-vec, an HTTP URL for chroma
	// and a gRPC host:port for qdrant.
	TargetURL  string
	Collection string
	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderSQLiteVec:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:         o.TargetURL,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
