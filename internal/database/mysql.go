package database

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"management-web/internal/config"
)

// NewMySQL opens the pool and pings it. Import batches hold one connection per
// concurrent chain, so MaxOpenConns should stay above IMPORT_CONCURRENCY.
func NewMySQL(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("connect mysql %s: %w", cfg.DBHost, err)
	}

	db.SetMaxOpenConns(max(cfg.DBMaxOpenConns, cfg.ImportConcurrency+1))
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	return db, nil
}
