// Package pipeline turns a profile id into location records: cache check,
// photo listing, geotag filtering, batch enrichment, record building and
// persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vkgeo/pkg/cache"
	"vkgeo/pkg/geo"
	"vkgeo/pkg/logger"
	"vkgeo/pkg/metrics"
	"vkgeo/pkg/photos"
	"vkgeo/pkg/vk"
)

// PhotoLister lists every photo of a profile. On failure it may return the
// photos received so far alongside the error.
type PhotoLister interface {
	List(ctx context.Context, ownerID string) (*photos.Listing, error)
}

// Enricher resolves composite ids to full photo metadata in one call
type Enricher interface {
	EnrichByIDs(ctx context.Context, ids []vk.CompositeID) ([]vk.Photo, error)
}

// Pipeline locates the geotagged photos of profiles. It holds no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	lister    PhotoLister
	enricher  Enricher
	store     cache.Store
	batchSize int
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithBatchSize sets how many ids go into one enrichment call
func WithBatchSize(n int) Option {
	return func(p *Pipeline) { p.batchSize = n }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics attaches metrics collection
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// DefaultBatchSize is the photos.getById batch size used when none is configured
const DefaultBatchSize = 100

// New creates a pipeline
func New(lister PhotoLister, enricher Enricher, store cache.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		lister:    lister,
		enricher:  enricher,
		store:     store,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.batchSize <= 0 {
		p.batchSize = DefaultBatchSize
	}
	p.logger = logger.OrDefault(p.logger)
	return p
}

// Locate returns the records of profileID, from the cache when present
func (p *Pipeline) Locate(ctx context.Context, profileID string) *Outcome {
	return p.run(ctx, profileID, true)
}

// Refresh skips the cache lookup and rebuilds the collection from the API
func (p *Pipeline) Refresh(ctx context.Context, profileID string) *Outcome {
	return p.run(ctx, profileID, false)
}

func (p *Pipeline) run(ctx context.Context, profileID string, useCache bool) *Outcome {
	start := time.Now()
	out := &Outcome{
		RequestID: uuid.NewString(),
		ProfileID: profileID,
		Records:   []geo.Record{},
	}
	log := p.logger.WithFields(map[string]interface{}{
		"request_id": out.RequestID,
		"profile_id": profileID,
	})

	defer func() {
		out.Duration = time.Since(start)
		p.metrics.ObserveOutcome(out.Status.String(), len(out.Records), out.Duration)
		logger.LogOutcome(log, out.RequestID, profileID, out.Status.String(), len(out.Records), out.Duration, out.Err)
	}()

	if err := cache.ValidateProfileID(profileID); err != nil {
		out.Status = UpstreamError
		out.Err = err
		return out
	}

	if useCache {
		out.enter(StateCacheCheck)
		if p.fromCache(ctx, log, out) {
			return out
		}
	}

	out.enter(StateFetching)
	listing, err := p.lister.List(ctx, profileID)
	if listing == nil {
		out.Status = UpstreamError
		out.Err = fmt.Errorf("list photos: %w", err)
		return out
	}
	if err != nil {
		out.Partial = true
		out.Err = fmt.Errorf("list photos: %w", err)
		log.WithError(err).WarnWithFields("continuing with partial photo listing", map[string]interface{}{
			"photos": len(listing.Photos),
			"total":  listing.Total,
		})
	}

	tagged := photos.Geotagged(listing.Photos)
	log.DebugWithFields("photos filtered", map[string]interface{}{
		"photos":    len(listing.Photos),
		"geotagged": len(tagged),
	})

	if len(tagged) > 0 {
		out.enter(StateEnriching)
		enriched, err := p.enrich(ctx, tagged)
		if err != nil {
			out.Status = UpstreamError
			out.Err = err
			return out
		}

		out.enter(StateBuilding)
		out.Records = p.build(log, enriched)
	}

	if out.Partial {
		if len(out.Records) == 0 {
			out.Status = UpstreamError
			return out
		}
		out.Status = Success
		return out
	}

	out.enter(StatePersisted)
	err = p.store.Save(ctx, profileID, out.Records)
	p.metrics.ObserveCacheWrite(err)
	if err != nil {
		log.WithError(err).Warn("failed to persist locations")
	}

	if len(out.Records) == 0 {
		out.Status = NotFound
	} else {
		out.Status = Success
	}
	return out
}

// fromCache fills out from the store and reports whether it was a hit.
// A failing store is treated as a miss.
func (p *Pipeline) fromCache(ctx context.Context, log logger.Logger, out *Outcome) bool {
	records, ok, err := p.store.Load(ctx, out.ProfileID)
	switch {
	case err != nil:
		p.metrics.ObserveCacheLookup(metrics.CacheError)
		log.WithError(err).Warn("cache lookup failed, fetching from API")
		return false
	case !ok:
		p.metrics.ObserveCacheLookup(metrics.CacheMiss)
		return false
	}

	p.metrics.ObserveCacheLookup(metrics.CacheHit)
	out.enter(StateCacheHit)
	out.FromCache = true
	if records != nil {
		out.Records = records
	}
	if len(out.Records) == 0 {
		out.Status = NotFound
	} else {
		out.Status = Success
	}
	return true
}

func (p *Pipeline) enrich(ctx context.Context, tagged []vk.Photo) ([]vk.Photo, error) {
	var enriched []vk.Photo
	for _, batch := range photos.Chunk(photos.IDs(tagged), p.batchSize) {
		found, err := p.enricher.EnrichByIDs(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("enrich photos: %w", err)
		}
		enriched = append(enriched, found...)
	}
	return enriched, nil
}

func (p *Pipeline) build(log logger.Logger, enriched []vk.Photo) []geo.Record {
	records := make([]geo.Record, 0, len(enriched))
	for _, photo := range enriched {
		rec, err := geo.FromPhoto(photo)
		if err != nil {
			entry := log.WithError(err).WithField("photo", string(photo.CompositeID()))
			if errors.Is(err, geo.ErrNoCoordinates) {
				entry.Debug("skipping enriched photo without coordinates")
			} else {
				entry.Warn("skipping photo with invalid coordinates")
			}
			continue
		}
		records = append(records, rec)
	}
	return records
}
