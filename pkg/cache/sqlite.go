package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"vkgeo/pkg/geo"
	"vkgeo/pkg/logger"
)

// cachedProfile marks that a collection, possibly empty, is stored for a profile
type cachedProfile struct {
	ProfileID string `gorm:"primaryKey;size:64"`
	Records   int
	UpdatedAt time.Time
}

// locationRow is one record of a cached collection
type locationRow struct {
	ID          uint   `gorm:"primaryKey"`
	ProfileID   string `gorm:"index:idx_profile_position,priority:1;size:64;not null"`
	Position    int    `gorm:"index:idx_profile_position,priority:2;not null"`
	Lat         float64
	Long        float64
	Source      string
	ProfileLink string
	Description string
	Created     time.Time
}

// SQLiteStore keeps every profile's records in one SQLite database
type SQLiteStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewSQLiteStore opens (or creates) the database at path and migrates it
func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "vkgeo", "locations.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.AutoMigrate(&cachedProfile{}, &locationRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger.OrDefault(log)}, nil
}

// Load returns the profile's rows ordered by position
func (s *SQLiteStore) Load(ctx context.Context, profileID string) ([]geo.Record, bool, error) {
	if err := ValidateProfileID(profileID); err != nil {
		return nil, false, err
	}

	var entry cachedProfile
	err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up cached profile: %w", err)
	}

	var rows []locationRow
	if err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Order("position").Find(&rows).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load cached locations: %w", err)
	}

	records := make([]geo.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := geo.NewRecord(row.Lat, row.Long, row.Source, row.ProfileLink, row.Description, row.Created)
		if err != nil {
			return nil, false, fmt.Errorf("cached row %d: %w", row.ID, err)
		}
		records = append(records, rec)
	}
	return records, true, nil
}

// Save replaces the profile's rows inside one transaction
func (s *SQLiteStore) Save(ctx context.Context, profileID string, records []geo.Record) error {
	if err := ValidateProfileID(profileID); err != nil {
		return err
	}

	rows := make([]locationRow, len(records))
	for i, r := range records {
		rows[i] = locationRow{
			ProfileID:   profileID,
			Position:    i,
			Lat:         r.Latitude(),
			Long:        r.Longitude(),
			Source:      r.SourceURL(),
			ProfileLink: r.ProfileLink(),
			Description: r.Description(),
			Created:     r.CreatedAt(),
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", profileID).Delete(&locationRow{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return err
			}
		}
		return tx.Save(&cachedProfile{ProfileID: profileID, Records: len(rows), UpdatedAt: time.Now().UTC()}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save cached locations: %w", err)
	}

	s.logger.DebugWithFields("cache saved", map[string]interface{}{
		"profile_id": profileID,
		"records":    len(records),
		"backend":    "sqlite",
	})
	return nil
}

// Delete drops the profile's rows and marker
func (s *SQLiteStore) Delete(ctx context.Context, profileID string) error {
	if err := ValidateProfileID(profileID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", profileID).Delete(&locationRow{}).Error; err != nil {
			return err
		}
		return tx.Where("profile_id = ?", profileID).Delete(&cachedProfile{}).Error
	})
}

// Close releases the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
