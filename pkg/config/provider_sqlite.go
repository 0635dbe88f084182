package config

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
	section TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tides (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	latitude REAL,
	longitude REAL,
	timezone TEXT,
	epoch TEXT,
	mean_level REAL NOT NULL DEFAULT 0,
	reference_high_tide TEXT,
	reference_amplitude REAL
);

CREATE TABLE IF NOT EXISTS tide_constituents (
	tide_id INTEGER NOT NULL REFERENCES tides(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	amplitude REAL NOT NULL,
	phase REAL NOT NULL,
	speed REAL,
	PRIMARY KEY (tide_id, position)
);
`

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create configuration schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	sections := []struct {
		name   string
		target interface{}
	}{
		{"units", &config.Units},
		{"altimeter", &config.Altimeter},
		{"calibration", &config.Calibration},
		{"weather", &config.Weather},
		{"history", &config.History},
		{"sensors", &config.Sensors},
		{"rest", &config.RESTServer},
	}
	for _, section := range sections {
		if err := s.loadSection(section.name, section.target); err != nil {
			return nil, fmt.Errorf("failed to load %s settings: %w", section.name, err)
		}
	}

	tides, err := s.GetTides()
	if err != nil {
		return nil, fmt.Errorf("failed to load tides: %w", err)
	}
	config.Tides = tides

	ApplyDefaults(config)
	return config, nil
}

func (s *SQLiteProvider) loadSection(name string, target interface{}) error {
	var body string
	err := s.db.QueryRow(`SELECT body FROM settings WHERE section = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), target)
}

// GetTides returns tide definitions from the database
func (s *SQLiteProvider) GetTides() ([]TideData, error) {
	rows, err := s.db.Query(`
		SELECT id, name, latitude, longitude, timezone, epoch, mean_level,
		       reference_high_tide, reference_amplitude
		FROM tides ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	var tides []TideData
	for rows.Next() {
		var (
			id                           int64
			tide                         TideData
			lat, lon, refAmplitude       sql.NullFloat64
			timezone, epoch, refHighTide sql.NullString
		)
		if err := rows.Scan(&id, &tide.Name, &lat, &lon, &timezone, &epoch, &tide.MeanLevel, &refHighTide, &refAmplitude); err != nil {
			return nil, err
		}
		if lat.Valid && lon.Valid {
			tide.Latitude = &lat.Float64
			tide.Longitude = &lon.Float64
		}
		tide.Timezone = timezone.String
		tide.Epoch = epoch.String
		tide.ReferenceHighTide = refHighTide.String
		tide.ReferenceAmplitude = refAmplitude.Float64

		ids = append(ids, id)
		tides = append(tides, tide)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		constituents, err := s.getConstituents(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load constituents of %s: %w", tides[i].Name, err)
		}
		tides[i].Constituents = constituents
	}
	return tides, nil
}

func (s *SQLiteProvider) getConstituents(tideID int64) ([]TideConstituentData, error) {
	rows, err := s.db.Query(`
		SELECT name, amplitude, phase, speed
		FROM tide_constituents WHERE tide_id = ? ORDER BY position`, tideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var constituents []TideConstituentData
	for rows.Next() {
		var c TideConstituentData
		var speed sql.NullFloat64
		if err := rows.Scan(&c.Name, &c.Amplitude, &c.Phase, &speed); err != nil {
			return nil, err
		}
		c.Speed = speed.Float64
		constituents = append(constituents, c)
	}
	return constituents, rows.Err()
}

// IsReadOnly returns false since SQLite supports writes
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write methods for configuration management

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	// Start transaction
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sections := map[string]interface{}{
		"units":       configData.Units,
		"altimeter":   configData.Altimeter,
		"calibration": configData.Calibration,
		"weather":     configData.Weather,
		"history":     configData.History,
		"sensors":     configData.Sensors,
		"rest":        configData.RESTServer,
	}
	for name, section := range sections {
		if err := s.saveSection(tx, name, section); err != nil {
			return fmt.Errorf("failed to save %s settings: %w", name, err)
		}
	}

	// Clear existing tides
	if _, err := tx.Exec(`DELETE FROM tide_constituents`); err != nil {
		return fmt.Errorf("failed to clear tide constituents: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM tides`); err != nil {
		return fmt.Errorf("failed to clear tides: %w", err)
	}

	for _, tide := range configData.Tides {
		if err := s.insertTide(tx, &tide); err != nil {
			return fmt.Errorf("failed to insert tide %s: %w", tide.Name, err)
		}
	}

	// Commit transaction
	return tx.Commit()
}

// AddTide stores one additional tide definition
func (s *SQLiteProvider) AddTide(tide *TideData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertTide(tx, tide); err != nil {
		return fmt.Errorf("failed to insert tide %s: %w", tide.Name, err)
	}
	return tx.Commit()
}

// DeleteTide removes a tide definition by name
func (s *SQLiteProvider) DeleteTide(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tide_constituents WHERE tide_id IN (SELECT id FROM tides WHERE name = ?)`, name); err != nil {
		return err
	}
	result, err := tx.Exec(`DELETE FROM tides WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("tide %s not found", name)
	}
	return tx.Commit()
}

func (s *SQLiteProvider) saveSection(tx *sql.Tx, name string, section interface{}) error {
	body, err := json.Marshal(section)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO settings (section, body, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(section) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, string(body))
	return err
}

func (s *SQLiteProvider) insertTide(tx *sql.Tx, tide *TideData) error {
	var lat, lon sql.NullFloat64
	if tide.Latitude != nil && tide.Longitude != nil {
		lat = nullFloat64(*tide.Latitude)
		lon = nullFloat64(*tide.Longitude)
	}

	result, err := tx.Exec(`
		INSERT INTO tides (
			name, latitude, longitude, timezone, epoch, mean_level,
			reference_high_tide, reference_amplitude
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tide.Name, lat, lon, nullString(tide.Timezone), nullString(tide.Epoch), tide.MeanLevel,
		nullString(tide.ReferenceHighTide), sql.NullFloat64{Float64: tide.ReferenceAmplitude, Valid: tide.ReferenceAmplitude != 0})
	if err != nil {
		return err
	}

	tideID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for i, c := range tide.Constituents {
		_, err := tx.Exec(`
			INSERT INTO tide_constituents (tide_id, position, name, amplitude, phase, speed)
			VALUES (?, ?, ?, ?, ?, ?)`,
			tideID, i, c.Name, c.Amplitude, c.Phase, sql.NullFloat64{Float64: c.Speed, Valid: c.Speed != 0})
		if err != nil {
			return err
		}
	}
	return nil
}

// Helper functions for handling nullable values
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat64(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}
