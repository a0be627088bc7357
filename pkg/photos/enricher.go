package photos

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	errs "vkgeo/pkg/errors"
	"vkgeo/pkg/logger"
	"vkgeo/pkg/paging"
	"vkgeo/pkg/vk"
)

// ErrNoIDs is returned when enrichment is asked for an empty id list
var ErrNoIDs = errors.New("photos: no ids to enrich")

// BatchEnricher resolves composite ids into full photo metadata with a single
// photos.getById call. Keeping the batch within the API's limits is the
// caller's job.
type BatchEnricher struct {
	caller paging.Caller
	logger logger.Logger
}

// NewBatchEnricher creates an enricher issuing calls through caller
func NewBatchEnricher(caller paging.Caller, log logger.Logger) *BatchEnricher {
	return &BatchEnricher{caller: caller, logger: logger.OrDefault(log)}
}

// EnrichByIDs returns the photos for ids with URL set to the widest variant and
// Sizes cleared. A failed request returns a typed upstream error; no matches
// returns an empty slice and nil.
func (e *BatchEnricher) EnrichByIDs(ctx context.Context, ids []vk.CompositeID) ([]vk.Photo, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}

	params := url.Values{}
	params.Set("photos", vk.JoinIDs(ids))
	params.Set("extended", "1")

	var found []vk.Photo
	if err := e.caller.Call(ctx, vk.MethodPhotosGetByID, params, &found); err != nil {
		e.logger.WithError(err).WarnWithFields("photo enrichment failed", map[string]interface{}{
			"ids": len(ids),
		})
		var apiErr *errs.Error
		if !errors.As(err, &apiErr) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			wrapped := errs.New(errs.ErrorTypeNetwork, 0, "%v", err)
			wrapped.Method = vk.MethodPhotosGetByID
			err = wrapped
		}
		return nil, fmt.Errorf("enrich %d photos: %w", len(ids), err)
	}

	if found == nil {
		found = []vk.Photo{}
	}
	for i := range found {
		Normalize(&found[i])
	}

	e.logger.DebugWithFields("photos enriched", map[string]interface{}{
		"requested": len(ids),
		"found":     len(found),
	})
	return found, nil
}

// EnrichByID resolves a single composite id
func (e *BatchEnricher) EnrichByID(ctx context.Context, id vk.CompositeID) ([]vk.Photo, error) {
	return e.EnrichByIDs(ctx, []vk.CompositeID{id})
}
