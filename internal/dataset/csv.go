package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"go.etcd.io/bbolt"
)

// Delhi city center, used when a record carries no usable geometry.
const (
	defaultLat = 28.6139
	defaultLon = 77.209
)

// ImportCSV loads the exported prediction CSV into the store, replacing
// nothing: records are keyed by dataset index, so re-importing the same
// file is idempotent. Malformed rows are skipped with a warning. Returns
// the number of records imported.
func (s *Store) ImportCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read dataset header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	rows, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read dataset rows: %w", err)
	}

	imported := 0
	err = s.db.Update(func(tx *bbolt.Tx) error {
		for i, row := range rows {
			rec := recordFromRow(col, row, i)
			if err := s.put(tx, rec); err != nil {
				log.Warn().Err(err).Int("row", i).Msg("skipping dataset row")
				continue
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return imported, err
	}

	log.Info().Int("records", imported).Str("path", path).Msg("dataset imported")
	return imported, nil
}

func recordFromRow(col map[string]int, row []string, idx int) Record {
	lat, lon := parseGeometry(field(col, row, "geometry"))
	return Record{
		ID:               intField(col, row, "Unnamed: 0", idx),
		Latitude:         lat,
		Longitude:        lon,
		Prediction:       intField(col, row, "EV_station_prediction", 0),
		ExistingStations: intField(col, row, "EV_stations", 0),
		Population:       floatField(col, row, "population"),
		Features: RecordFeatures{
			Parking:    intField(col, row, "parking", 0),
			Restaurant: intField(col, row, "restaurant", 0),
			School:     intField(col, row, "school", 0),
			Commercial: intField(col, row, "commercial", 0),
		},
	}
}

// parseGeometry extracts coordinates from a WKT POINT. The dataset is in
// a projected CRS; the divide-and-offset mapping below is a rough
// heuristic that lands points near Delhi, not a real projection
// transform.
func parseGeometry(wkt string) (lat, lon float64) {
	lat, lon = defaultLat, defaultLon
	if !strings.Contains(wkt, "POINT") {
		return lat, lon
	}
	coords := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(wkt, "POINT ("), ")"))
	parts := strings.Fields(coords)
	if len(parts) != 2 {
		return lat, lon
	}
	x, errX := strconv.ParseFloat(parts[0], 64)
	y, errY := strconv.ParseFloat(parts[1], 64)
	if errX != nil || errY != nil {
		return lat, lon
	}
	return y/100000 + 20, x/100000 + 70
}

func field(col map[string]int, row []string, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func intField(col map[string]int, row []string, name string, def int) int {
	v := field(col, row, name)
	if v == "" {
		return def
	}
	// Exports sometimes carry integer columns as floats.
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int(f)
	}
	return def
}

func floatField(col map[string]int, row []string, name string) float64 {
	if f, err := strconv.ParseFloat(field(col, row, name), 64); err == nil {
		return f
	}
	return 0
}
