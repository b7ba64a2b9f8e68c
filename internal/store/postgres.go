package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"corral/internal/fleet"
)

// PostgresStore implements FleetStore backed by a pgxpool connection.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and verifies connectivity.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool returns the underlying pgxpool for schema migrations.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Get(ctx context.Context, clusterName string) (*StatusRecord, error) {
	rec := &StatusRecord{ClusterName: clusterName}
	err := s.pool.QueryRow(ctx, `
		SELECT status, last_updated_at, revision
		FROM fleet_status WHERE cluster_name = $1
	`, clusterName).Scan(&rec.Status, &rec.LastUpdatedAt, &rec.Revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fleet status: %w", err)
	}
	return rec, nil
}

// Put performs the compare-and-set as a single statement: the insert path
// only fires for priorRevision 0, the update path only when the persisted
// revision still matches. Zero rows affected means the caller's snapshot
// went stale.
func (s *PostgresStore) Put(ctx context.Context, clusterName string, status fleet.Status, priorRevision int64) (*StatusRecord, error) {
	rec := &StatusRecord{ClusterName: clusterName, Status: status}

	var err error
	if priorRevision == 0 {
		err = s.pool.QueryRow(ctx, `
			INSERT INTO fleet_status (cluster_name, status, last_updated_at, revision)
			VALUES ($1, $2, NOW(), 1)
			ON CONFLICT (cluster_name) DO NOTHING
			RETURNING last_updated_at, revision
		`, clusterName, status).Scan(&rec.LastUpdatedAt, &rec.Revision)
	} else {
		err = s.pool.QueryRow(ctx, `
			UPDATE fleet_status
			SET status = $2,
			    last_updated_at = GREATEST(last_updated_at, NOW()),
			    revision = revision + 1
			WHERE cluster_name = $1 AND revision = $3
			RETURNING last_updated_at, revision
		`, clusterName, status, priorRevision).Scan(&rec.LastUpdatedAt, &rec.Revision)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaleWrite
	}
	if err != nil {
		return nil, fmt.Errorf("put fleet status: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, clusterName string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM fleet_status WHERE cluster_name = $1`, clusterName); err != nil {
		return fmt.Errorf("delete fleet status: %w", err)
	}
	return nil
}
