package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/chroma"
	"github.com/papercomputeco/recall/pkg/vector/chromem"
	"github.com/papercomputeco/recall/pkg/vector/pgvector"
	"github.com/papercomputeco/recall/pkg/vector/qdrant"
	"github.com/papercomputeco/recall/pkg/vector/sqlitevec"
)

// DefaultSQLiteFile is used for the sqlite provider when no target is given.
const DefaultSQLiteFile = "vectors.sqlite"

type NewVectorDriverOpts struct {
	ProviderType string
	TargetURL    string
	Collection   string
	Dimensions   uint

	// DataDir is where file-backed providers put their database when
	// TargetURL is empty.
	DataDir string

	Logger *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "chromem", "":
		return chromem.NewDriver(chromem.Config{
			CollectionPrefix: o.Collection,
			Dimensions:       o.Dimensions,
		}, o.Logger), nil
	case "sqlite", "sqlitevec":
		path := o.TargetURL
		if path == "" {
			path = filepath.Join(o.DataDir, DefaultSQLiteFile)
		}
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     path,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:         o.TargetURL,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "pgvector":
		return pgvector.NewDriver(ctx, pgvector.Config{
			DSN:        o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
