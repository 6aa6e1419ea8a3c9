package calculations

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS calculations (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	timestamp TEXT NOT NULL,
	form_data TEXT NOT NULL,
	results   TEXT NOT NULL,
	user_id   TEXT NOT NULL
)`

// SQLiteStore keeps records in a SQLite table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open calculations database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create calculations table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts a record
func (s *SQLiteStore) Save(record *Record) error {
	_, err := s.db.Exec(
		`INSERT INTO calculations (id, timestamp, form_data, results, user_id) VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.Timestamp, string(record.FormData), string(record.Results), record.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to save calculation: %w", err)
	}
	return nil
}

// List returns all records in insertion order
func (s *SQLiteStore) List() ([]*Record, error) {
	rows, err := s.db.Query(`SELECT id, timestamp, form_data, results, user_id FROM calculations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get retrieves a record by ID
func (s *SQLiteStore) Get(id string) (*Record, error) {
	row := s.db.QueryRow(`SELECT id, timestamp, form_data, results, user_id FROM calculations WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// Delete removes a record by ID
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM calculations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete calculation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var r Record
	var formData, results string
	if err := sc.Scan(&r.ID, &r.Timestamp, &formData, &results, &r.UserID); err != nil {
		return nil, err
	}
	r.FormData = []byte(formData)
	r.Results = []byte(results)
	return &r, nil
}
