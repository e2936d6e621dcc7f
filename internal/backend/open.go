// Package backend selects the database implementation named in config.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"livetask/internal/backend/firebase"
	"livetask/internal/backend/sqlitedb"
	"livetask/internal/config"
	"livetask/internal/service"
)

// Open creates the configured database. The caller closes it if it
// implements io.Closer.
func Open(ctx context.Context, cfg *config.Config) (service.Database, error) {
	log := zap.L()

	switch cfg.Backend {
	case config.BackendSQLite:
		log.Debug("opening sqlite database", zap.String("path", cfg.SQLitePath))
		return sqlitedb.Open(ctx, cfg.SQLitePath, sqlitedb.WithLogger(log))
	case config.BackendFirebase, "":
		c, err := firebase.New(ctx, cfg, firebase.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}
