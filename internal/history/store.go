// Package history keeps the rolling pressure and altitude history that the
// forecast operations consume.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chrissnell/trailsense/internal/weather"
)

// Store holds readings ordered by time
type Store interface {
	Append(ctx context.Context, r weather.PressureAltitudeReading) error
	// Since returns the readings at or after t, oldest first
	Since(ctx context.Context, t time.Time) ([]weather.PressureAltitudeReading, error)
	// Prune removes readings older than t
	Prune(ctx context.Context, t time.Time) error
	Close() error
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu       sync.RWMutex
	readings []weather.PressureAltitudeReading
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, r weather.PressureAltitudeReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Readings almost always arrive in order; keep the slice sorted when
	// they don't
	i := sort.Search(len(m.readings), func(i int) bool {
		return m.readings[i].Time.After(r.Time)
	})
	m.readings = append(m.readings, weather.PressureAltitudeReading{})
	copy(m.readings[i+1:], m.readings[i:])
	m.readings[i] = r
	return nil
}

func (m *MemoryStore) Since(_ context.Context, t time.Time) ([]weather.PressureAltitudeReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := sort.Search(len(m.readings), func(i int) bool {
		return !m.readings[i].Time.Before(t)
	})
	out := make([]weather.PressureAltitudeReading, len(m.readings)-i)
	copy(out, m.readings[i:])
	return out, nil
}

func (m *MemoryStore) Prune(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.readings), func(i int) bool {
		return !m.readings[i].Time.Before(t)
	})
	m.readings = append(m.readings[:0], m.readings[i:]...)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pressure_history (
	time        INTEGER NOT NULL,
	pressure    REAL NOT NULL,
	altitude    REAL NOT NULL,
	temperature REAL
);
CREATE INDEX IF NOT EXISTS pressure_history_time ON pressure_history (time)`

// SQLiteStore persists the history so forecasts survive a restart
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the history database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create pressure_history table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, r weather.PressureAltitudeReading) error {
	var temperature sql.NullFloat64
	if r.Temperature != nil {
		temperature = sql.NullFloat64{Float64: *r.Temperature, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pressure_history (time, pressure, altitude, temperature) VALUES (?, ?, ?, ?)`,
		r.Time.UnixNano(), r.Pressure, r.Altitude, temperature)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Since(ctx context.Context, t time.Time) ([]weather.PressureAltitudeReading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, pressure, altitude, temperature
		FROM pressure_history
		WHERE time >= ?
		ORDER BY time`, t.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var readings []weather.PressureAltitudeReading
	for rows.Next() {
		var (
			nanos       int64
			r           weather.PressureAltitudeReading
			temperature sql.NullFloat64
		)
		if err := rows.Scan(&nanos, &r.Pressure, &r.Altitude, &temperature); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.Time = time.Unix(0, nanos)
		if temperature.Valid {
			v := temperature.Float64
			r.Temperature = &v
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *SQLiteStore) Prune(ctx context.Context, t time.Time) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pressure_history WHERE time < ?`, t.UnixNano()); err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
