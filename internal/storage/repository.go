// Package storage persists report documents and their undo history in SQL
// databases, MongoDB or plain JSON files.
package storage

import (
	"context"
	"fmt"

	"reportstudio/internal/config"
	"reportstudio/internal/domain"
)

// Repository is a document store that also keeps undo history.
type Repository interface {
	domain.DocumentStore
	domain.HistoryStore
	Close() error
}

var (
	_ Repository = (*SQLStore)(nil)
	_ Repository = (*MongoStore)(nil)
	_ Repository = (*FileStore)(nil)
)

// OpenRepository opens the backend selected by the configuration.
func OpenRepository(ctx context.Context, cfg *config.Config) (Repository, error) {
	depth := cfg.Editor.HistoryDepth
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db, depth), nil
	case config.DriverPostgres:
		db, err := Open("postgres", postgresDSN(cfg.Storage))
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db, depth), nil
	case config.DriverMySQL:
		db, err := Open("mysql", mysqlDSN(cfg.Storage))
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db, depth), nil
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.Storage, depth)
	case config.DriverFile:
		return NewFileStore(cfg.Storage.Path, depth)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
