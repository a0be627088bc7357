// Package photos lists a profile's photos and resolves composite ids to full
// photo metadata.
package photos

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"vkgeo/pkg/logger"
	"vkgeo/pkg/paging"
	"vkgeo/pkg/vk"
)

// Listing is the outcome of listing a profile's photos. When List also
// returns an error the photos are those decoded before the failure.
type Listing struct {
	Photos   []vk.Photo
	Total    int
	Complete bool
}

// Lister walks photos.getAll for a profile
type Lister struct {
	fetcher  *paging.Fetcher
	pageSize int
	logger   logger.Logger
}

// NewLister creates a lister requesting pageSize photos per page
func NewLister(fetcher *paging.Fetcher, pageSize int, log logger.Logger) *Lister {
	if pageSize <= 0 || pageSize > vk.MaxPhotosPageSize {
		pageSize = vk.MaxPhotosPageSize
	}
	return &Lister{fetcher: fetcher, pageSize: pageSize, logger: logger.OrDefault(log)}
}

// List returns every photo of ownerID, normalized to its widest URL. A paging
// failure yields the photos received so far together with the error.
func (l *Lister) List(ctx context.Context, ownerID string) (*Listing, error) {
	params := url.Values{}
	params.Set("owner_id", ownerID)
	params.Set("extended", "1")
	params.Set("photo_sizes", "1")

	res, fetchErr := l.fetcher.Fetch(ctx, paging.Request{
		Method: vk.MethodPhotosGetAll,
		Params: params,
		Step:   l.pageSize,
	})
	if res == nil {
		return nil, fetchErr
	}

	items, err := paging.Decode[vk.Photo](res.Items)
	for i := range items {
		Normalize(&items[i])
	}
	if err != nil {
		decodeErr := fmt.Errorf("decode photos of %s: %w", ownerID, err)
		return &Listing{Photos: items, Total: res.Total}, errors.Join(fetchErr, decodeErr)
	}

	l.logger.DebugWithFields("photos listed", map[string]interface{}{
		"owner_id": ownerID,
		"photos":   len(items),
		"total":    res.Total,
		"complete": res.Complete,
	})

	return &Listing{Photos: items, Total: res.Total, Complete: res.Complete}, fetchErr
}

// Geotagged keeps the photos carrying both coordinates, in order
func Geotagged(all []vk.Photo) []vk.Photo {
	out := make([]vk.Photo, 0, len(all))
	for _, p := range all {
		if p.HasCoordinates() {
			out = append(out, p)
		}
	}
	return out
}

// IDs returns the composite ids of photos, in order
func IDs(photos []vk.Photo) []vk.CompositeID {
	ids := make([]vk.CompositeID, len(photos))
	for i, p := range photos {
		ids[i] = p.CompositeID()
	}
	return ids
}

// Chunk splits ids into consecutive batches of at most size ids
func Chunk(ids []vk.CompositeID, size int) [][]vk.CompositeID {
	if size <= 0 {
		size = len(ids)
	}
	var batches [][]vk.CompositeID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
