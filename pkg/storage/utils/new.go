package storageutils

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
	"github.com/papercomputeco/recall/pkg/storage/postgres"
	"github.com/papercomputeco/recall/pkg/storage/sqlite"
)

// DefaultSQLiteFile is used for the sqlite provider when no path is given.
const DefaultSQLiteFile = "recall.sqlite"

type NewStorageDriverOpts struct {
	ProviderType string
	SQLitePath   string
	PostgresDSN  string

	// DataDir is where the SQLite database goes when SQLitePath is empty.
	DataDir string
}

func NewStorageDriver(ctx context.Context, o *NewStorageDriverOpts) (storage.Driver, error) {
	switch o.ProviderType {
	case "sqlite", "":
		path := o.SQLitePath
		if path == "" {
			if o.DataDir == "" {
				return nil, errors.New("sqlite storage needs a path or a .recall directory")
			}
			path = filepath.Join(o.DataDir, DefaultSQLiteFile)
		}
		return sqlite.NewDriver(ctx, path)
	case "postgres":
		if o.PostgresDSN == "" {
			return nil, errors.New("postgres storage needs storage.postgres_dsn")
		}
		return postgres.NewDriver(ctx, o.PostgresDSN)
	case "memory", "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
