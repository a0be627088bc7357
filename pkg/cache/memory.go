package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"vkgeo/pkg/geo"
)

// MemoryStore keeps collections in process memory with an expiry
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore creates a store whose entries expire after ttl; ttl <= 0 never expires
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryStore{items: gocache.New(ttl, 10*time.Minute)}
}

// Load returns a copy of the cached records for profileID
func (s *MemoryStore) Load(ctx context.Context, profileID string) ([]geo.Record, bool, error) {
	v, found := s.items.Get(profileID)
	if !found {
		return nil, false, nil
	}
	return copyRecords(v.([]geo.Record)), true, nil
}

// Save replaces the records of profileID with a copy of records
func (s *MemoryStore) Save(ctx context.Context, profileID string, records []geo.Record) error {
	if err := ValidateProfileID(profileID); err != nil {
		return err
	}
	s.items.SetDefault(profileID, copyRecords(records))
	return nil
}

// Delete drops profileID; a missing entry is not an error
func (s *MemoryStore) Delete(ctx context.Context, profileID string) error {
	s.items.Delete(profileID)
	return nil
}

// Len returns the number of cached profiles, expired entries included until cleanup
func (s *MemoryStore) Len() int {
	return s.items.ItemCount()
}
