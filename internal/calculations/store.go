package calculations

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown record IDs
var ErrNotFound = errors.New("calculation not found")

// Record is one saved calculation
type Record struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	FormData  json.RawMessage `json:"form_data"`
	Results   json.RawMessage `json:"results"`
	UserID    string          `json:"user_id"`
}

// NewRecord fills in the ID and the defaults for missing fields
func NewRecord(timestamp string, formData, results json.RawMessage, userID string) *Record {
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if len(formData) == 0 || string(formData) == "null" {
		formData = json.RawMessage("{}")
	}
	if len(results) == 0 || string(results) == "null" {
		results = json.RawMessage("{}")
	}
	if userID == "" {
		userID = "anonymous"
	}
	return &Record{
		ID:        uuid.New().String(),
		Timestamp: timestamp,
		FormData:  formData,
		Results:   results,
		UserID:    userID,
	}
}

// Store persists saved calculations
type Store interface {
	Save(record *Record) error
	List() ([]*Record, error)
	Get(id string) (*Record, error)
	Delete(id string) error
	Close() error
}

// Open creates the store for a driver. An empty path puts the file under dataDir.
func Open(driver, path, dataDir string, logger *zap.Logger) (Store, error) {
	switch driver {
	case "", "json":
		if path == "" {
			path = filepath.Join(dataDir, "carbon_calculations.json")
		}
		return NewJSONStore(path, logger), nil
	case "sqlite":
		if path == "" {
			path = filepath.Join(dataDir, "carbon_calculations.db")
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown calculations driver %q", driver)
	}
}
