// Package cache stores the location records of a profile keyed by profile id.
package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"vkgeo/pkg/config"
	"vkgeo/pkg/geo"
	"vkgeo/pkg/logger"
)

// ErrInvalidProfileID is returned for ids that cannot be used as a cache key
var ErrInvalidProfileID = errors.New("cache: invalid profile id")

var profileIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Store is a keyed record store. Load reports ok=false when nothing is cached
// for the profile. Save replaces the whole collection for the profile.
type Store interface {
	Load(ctx context.Context, profileID string) (records []geo.Record, ok bool, err error)
	Save(ctx context.Context, profileID string, records []geo.Record) error
	Delete(ctx context.Context, profileID string) error
}

// ValidateProfileID checks that id is safe to use as a key or file name
func ValidateProfileID(id string) error {
	if !profileIDPattern.MatchString(id) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidProfileID, id)
	}
	return nil
}

// New builds the store selected by cfg.Backend. With cfg.Layered a memory
// layer is put in front of a durable backend.
func New(cfg config.CacheConfig, log logger.Logger) (Store, error) {
	log = logger.OrDefault(log)

	var store Store
	switch strings.ToLower(cfg.Backend) {
	case config.BackendCSV, "":
		csvStore, err := NewCSVStore(cfg.Directory, log)
		if err != nil {
			return nil, err
		}
		store = csvStore
	case config.BackendSQLite:
		sqliteStore, err := NewSQLiteStore(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	case config.BackendMemory:
		return NewMemoryStore(cfg.MemoryTTL), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}

	if cfg.Layered {
		return NewLayered(NewMemoryStore(cfg.MemoryTTL), store, log), nil
	}
	return store, nil
}

func copyRecords(records []geo.Record) []geo.Record {
	out := make([]geo.Record, len(records))
	copy(out, records)
	return out
}
