package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldstone/caselog/internal/domain"
)

// LookupLocation returns cached coordinates for a location key. ok is false
// on a miss; err is non-nil only for an underlying I/O failure, which
// callers treat as a miss.
func (s *Store) LookupLocation(ctx context.Context, key domain.LocationKey) (lat, lon float64, ok bool, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude FROM geocache WHERE location_key = ?`, string(key))
	if err := row.Scan(&lat, &lon); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("read geocache: %w", err)
	}

	// Touch the row so a future eviction policy can age out stale entries.
	// A failed touch does not invalidate the hit.
	_, _ = s.db.ExecContext(ctx,
		`UPDATE geocache SET last_accessed = ? WHERE location_key = ?`,
		time.Now().UTC().Format(time.DateTime), string(key))

	return lat, lon, true, nil
}

// PutLocation inserts or replaces the cached coordinates for a location key.
func (s *Store) PutLocation(ctx context.Context, key domain.LocationKey, lat, lon float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO geocache (location_key, latitude, longitude, last_accessed)
		 VALUES (?, ?, ?, ?)`,
		string(key), lat, lon, time.Now().UTC().Format(time.DateTime))
	if err != nil {
		return fmt.Errorf("write geocache: %w", err)
	}
	return nil
}

// PurgeLocations removes every cached coordinate. Used by full data reset.
func (s *Store) PurgeLocations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM geocache`); err != nil {
		return fmt.Errorf("purge geocache: %w", err)
	}
	return nil
}
