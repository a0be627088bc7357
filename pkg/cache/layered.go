package cache

import (
	"context"
	"io"

	"vkgeo/pkg/geo"
	"vkgeo/pkg/logger"
)

// Layered serves reads from a fast front store and falls back to a durable one,
// warming the front on a durable hit. Writes go to both, durable first.
type Layered struct {
	front   Store
	durable Store
	logger  logger.Logger
}

// NewLayered puts front before durable
func NewLayered(front, durable Store, log logger.Logger) *Layered {
	return &Layered{front: front, durable: durable, logger: logger.OrDefault(log)}
}

// Load reads the front store first and warms it from the durable store on a miss
func (l *Layered) Load(ctx context.Context, profileID string) ([]geo.Record, bool, error) {
	if records, ok, err := l.front.Load(ctx, profileID); err == nil && ok {
		return records, true, nil
	}

	records, ok, err := l.durable.Load(ctx, profileID)
	if err != nil || !ok {
		return records, ok, err
	}
	if err := l.front.Save(ctx, profileID, records); err != nil {
		l.logger.WithError(err).Warn("failed to warm front cache")
	}
	return records, true, nil
}

// Save writes the durable store, then the front store
func (l *Layered) Save(ctx context.Context, profileID string, records []geo.Record) error {
	if err := l.durable.Save(ctx, profileID, records); err != nil {
		return err
	}
	return l.front.Save(ctx, profileID, records)
}

// Delete removes profileID from both stores
func (l *Layered) Delete(ctx context.Context, profileID string) error {
	if err := l.durable.Delete(ctx, profileID); err != nil {
		return err
	}
	return l.front.Delete(ctx, profileID)
}

// Close closes the durable store when it holds resources
func (l *Layered) Close() error {
	if closer, ok := l.durable.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
