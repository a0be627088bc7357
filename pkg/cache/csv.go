package cache

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"vkgeo/pkg/geo"
	"vkgeo/pkg/logger"
)

// TimeLayout is the layout of the created column, always UTC
const TimeLayout = "2006-01-02 15:04:05"

// Header is the column order of a cache file
var Header = []string{"lat", "long", "source", "profile_link", "description", "created"}

// CSVStore keeps one {profile}_geo.csv file per profile in a directory
type CSVStore struct {
	dir    string
	logger logger.Logger
}

// NewCSVStore creates the directory if needed
func NewCSVStore(dir string, log logger.Logger) (*CSVStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "vkgeo")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &CSVStore{dir: dir, logger: logger.OrDefault(log)}, nil
}

// Path returns the file holding profileID's records
func (s *CSVStore) Path(profileID string) string {
	return filepath.Join(s.dir, profileID+"_geo.csv")
}

// Load reads the profile's file; a missing file is a miss
func (s *CSVStore) Load(ctx context.Context, profileID string) ([]geo.Record, bool, error) {
	if err := ValidateProfileID(profileID); err != nil {
		return nil, false, err
	}

	file, err := os.Open(s.Path(profileID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	records, err := ReadCSV(file)
	if err != nil {
		return nil, false, fmt.Errorf("cache file %s: %w", s.Path(profileID), err)
	}
	return records, true, nil
}

// Save writes the records to a temporary file and renames it over the
// profile's file, so readers never see a half-written collection
func (s *CSVStore) Save(ctx context.Context, profileID string, records []geo.Record) error {
	if err := ValidateProfileID(profileID); err != nil {
		return err
	}

	target := s.Path(profileID)
	file, err := os.CreateTemp(s.dir, profileID+"_geo.*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tempPath := file.Name()

	if err := WriteCSV(file, records); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync cache file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close cache file: %w", err)
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	s.logger.DebugWithFields("cache saved", map[string]interface{}{
		"profile_id": profileID,
		"records":    len(records),
		"path":       target,
	})
	return nil
}

// Delete removes the profile's file; deleting a missing entry is not an error
func (s *CSVStore) Delete(ctx context.Context, profileID string) error {
	if err := ValidateProfileID(profileID); err != nil {
		return err
	}
	if err := os.Remove(s.Path(profileID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// WriteCSV writes a header row and one row per record
func WriteCSV(w io.Writer, records []geo.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.FormatFloat(r.Latitude(), 'f', -1, 64),
			strconv.FormatFloat(r.Longitude(), 'f', -1, 64),
			r.SourceURL(),
			r.ProfileLink(),
			r.Description(),
			r.CreatedAt().UTC().Format(TimeLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows written by WriteCSV, in order
func ReadCSV(r io.Reader) ([]geo.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("missing header")
	}
	if err != nil {
		return nil, err
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], name)
		}
	}

	records := []geo.Record{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		lat, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad lat: %w", line, err)
		}
		long, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad long: %w", line, err)
		}
		created, err := time.ParseInLocation(TimeLayout, row[5], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad created: %w", line, err)
		}

		rec, err := geo.NewRecord(lat, long, row[2], row[3], row[4], created)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
