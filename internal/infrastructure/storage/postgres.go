package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/herbalscanner/backend/internal/domain"
	"github.com/herbalscanner/backend/internal/infrastructure/storage/migrations"
)

const (
	getValueSQL    = `SELECT value FROM kv_store WHERE key = $1`
	upsertValueSQL = `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	deleteValueSQL = `DELETE FROM kv_store WHERE key = $1`
)

// PostgresStore keeps every key as one row of kv_store.
// Each Set is a single-row upsert, so a value is replaced atomically.
type PostgresStore struct {
	pool querier
}

// querier is the part of *pgxpool.Pool the store uses
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// migrate applies the embedded goose migrations
func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// NewPostgresStore connects, pings and migrates the database
func NewPostgresStore(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	conn, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create connection pool: %v", domain.ErrStorageUnavailable, err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: ping database: %v", domain.ErrStorageUnavailable, err)
	}

	db := stdlib.OpenDBFromPool(conn)
	defer db.Close()
	if err := migrate(ctx, db); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{pool: conn}, nil
}

// Get reads the value stored under key
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, getValueSQL, key).Scan(&value)
	if err != nil {
		return nil, mapError(err, key)
	}
	return value, nil
}

// Set upserts the value stored under key; value must be valid JSON
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx, upsertValueSQL, key, value); err != nil {
		return mapError(err, key)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteValueSQL, key); err != nil {
		return mapError(err, key)
	}
	return nil
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// mapError converts pgx errors to domain errors.
// Context errors pass through so callers can tell cancellation from outage.
func mapError(err error, key string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("kv %s: %w", key, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrKeyNotFound
	}
	return fmt.Errorf("%w: kv %s: %v", domain.ErrStorageUnavailable, key, err)
}
