// Package dataset serves the historical Delhi EV-station prediction
// dataset. The CSV export is imported once into BoltDB at startup and
// read-only thereafter; predictions produced by the live service are
// never written here.
package dataset

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const locationsBucket = "locations"

// RecordFeatures is the subset of amenity counts carried per historical
// record for dashboard display.
type RecordFeatures struct {
	Parking    int `json:"parking"`
	Restaurant int `json:"restaurant"`
	School     int `json:"school"`
	Commercial int `json:"commercial"`
}

// Record is one historical prediction for a Delhi grid cell.
type Record struct {
	ID               int            `json:"id"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	Prediction       int            `json:"prediction"`
	ExistingStations int            `json:"existing_stations"`
	Population       float64        `json:"population"`
	Features         RecordFeatures `json:"features"`
}

// Store provides ordered read access to the imported dataset.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the dataset database under dataPath.
func Open(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "evpredict-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(locationsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create locations bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// put stores one record keyed by its big-endian id so cursor iteration
// returns records in dataset order.
func (s *Store) put(tx *bbolt.Tx, r Record) error {
	b := tx.Bucket([]byte(locationsBucket))

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record %d: %w", r.ID, err)
	}

	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(r.ID))
	return b.Put(key[:], data)
}

// Count returns the number of imported records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(locationsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// Records returns up to limit records in dataset order. limit <= 0 means
// all records.
func (s *Store) Records(limit int) ([]Record, error) {
	return s.scan(limit, func(Record) bool { return true })
}

// Suitable returns up to limit records predicted suitable for a station.
func (s *Store) Suitable(limit int) ([]Record, error) {
	return s.scan(limit, func(r Record) bool { return r.Prediction == 1 })
}

func (s *Store) scan(limit int, keep func(Record) bool) ([]Record, error) {
	var records []Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(locationsBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				continue // skip malformed records
			}
			if keep(r) {
				records = append(records, r)
			}
		}
		return nil
	})

	return records, err
}
