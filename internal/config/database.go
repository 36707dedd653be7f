package config

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
)

// applicationName tags ytrag sessions in pg_stat_activity
const applicationName = "ytrag"

const connectTimeout = 10 * time.Second

// NewDatabasePool opens the pool shared by the postgres registry and the
// pgvector index, and fails fast when the server is unreachable
func NewDatabasePool(ctx context.Context, config *Config) (*pgxpool.Pool, error) {
	poolConfig, err := newPoolConfig(config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to reach database")
	}
	return pool, nil
}

// newPoolConfig turns DATABASE_URL into pool settings. Connections register
// the vector type only when embeddings live in postgres.
func newPoolConfig(config *Config) (*pgxpool.Config, error) {
	db, err := config.ParseDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "invalid database_url")
	}

	poolConfig, err := pgxpool.ParseConfig(db.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "invalid database_url")
	}
	poolConfig.MaxConns = db.MaxConns
	poolConfig.MinConns = db.MinConns
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	if config.IndexBackend == IndexPgvector {
		poolConfig.AfterConnect = pgxvec.RegisterTypes
	}
	return poolConfig, nil
}

// CloseDatabasePool closes pool; nil when no backend needed a database
func CloseDatabasePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
