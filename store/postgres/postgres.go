// Package postgres implements the optional LOS-event sink (spec.md §4.7,
// §6): a proximity.Sink backed by Postgres, adapted from the teacher's
// internal/db connection-pool and schema-embedding pattern.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"adsbactions/pkg/proximity"
)

//go:embed schema.sql
var schemaSQL embed.FS

// Store wraps a connection pool and implements proximity.Sink.
type Store struct {
	*sql.DB
	dsn string
}

var _ proximity.Sink = (*Store)(nil)

// Connect opens a pool against dsn, sizes it per maxOpen/maxIdle, and
// verifies connectivity with a bounded ping before returning.
func Connect(dsn string, maxOpen, maxIdle int) (*Store, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Store{DB: sqlDB, dsn: dsn}, nil
}

// InitSchema creates the los_events table if it doesn't already exist.
func (s *Store) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("postgres: read schema: %w", err)
	}
	if _, err := s.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

// AddLOS inserts a newly-detected LOS episode and returns its row id as
// the Record's future ExternalID (proximity.Sink).
func (s *Store) AddLOS(rec *proximity.Record) (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id int64
	err := s.QueryRowContext(ctx, `
		INSERT INTO los_events (
			flight_a, flight_b, first_lat_a, first_lon_a, first_lat_b, first_lon_b,
			min_lat_dist_nm, min_alt_dist_ft, create_time, last_time, category_a, category_b
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,to_timestamp($9),to_timestamp($10),$11,$12)
		RETURNING id`,
		rec.FlightA, rec.FlightB,
		rec.FirstLocA.Lat, rec.FirstLocA.Lon, rec.FirstLocB.Lat, rec.FirstLocB.Lon,
		rec.MinLatDistNM, rec.MinAltDistFt, rec.CreateTime, rec.LastTime,
		rec.CategoryA, rec.CategoryB,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("postgres: add_los: %w", err)
	}
	return id, nil
}

// UpdateLOS persists the current minima and last-seen time for an
// already-inserted LOS episode (proximity.Sink); the Engine calls it once,
// when the episode is finalized. A record whose ExternalID is nil (AddLOS
// failed or has not returned) is silently skipped rather than erroring,
// since the Engine retries nothing.
func (s *Store) UpdateLOS(rec *proximity.Record) error {
	if rec.ExternalID == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.ExecContext(ctx, `
		UPDATE los_events SET
			min_lat_dist_nm = $1, min_alt_dist_ft = $2,
			min_lat_a = $3, min_lon_a = $4, min_lat_b = $5, min_lon_b = $6,
			last_time = to_timestamp($7)
		WHERE id = $8`,
		rec.MinLatDistNM, rec.MinAltDistFt,
		rec.MinLocA.Lat, rec.MinLocA.Lon, rec.MinLocB.Lat, rec.MinLocB.Lon,
		rec.LastTime, rec.ExternalID,
	)
	if err != nil {
		return fmt.Errorf("postgres: update_los: %w", err)
	}
	return nil
}

// CleanupOldEvents deletes finalized events older than maxAge, mirroring
// the teacher's periodic CleanupOldData sweep.
func (s *Store) CleanupOldEvents(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)
	_, err := s.ExecContext(ctx, `DELETE FROM los_events WHERE last_time < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("postgres: cleanup: %w", err)
	}
	return nil
}
