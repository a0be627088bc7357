package pipeline

import (
	"errors"
	"fmt"
	"time"

	"vkgeo/pkg/geo"
)

// State is a step of a locate request
type State string

const (
	StateCacheCheck State = "cache_check"
	StateCacheHit   State = "cache_hit"
	StateFetching   State = "fetching"
	StateEnriching  State = "enriching"
	StateBuilding   State = "building"
	StatePersisted  State = "persisted"
)

// Status is how a locate request ended
type Status int

const (
	// Success means at least one record was found
	Success Status = iota
	// NotFound means the profile has no geotagged photos
	NotFound
	// UpstreamError means the VK API failed; Err holds the cause
	UpstreamError
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case NotFound:
		return "not_found"
	case UpstreamError:
		return "upstream_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrIndexOutOfRange is returned by Outcome.At for an index outside the records
var ErrIndexOutOfRange = errors.New("pipeline: record index out of range")

// Outcome is the result of one locate request. Each request gets its own.
type Outcome struct {
	RequestID string
	ProfileID string
	Status    Status
	// Err is the upstream failure. It is also set on a partial Success.
	Err     error
	Records []geo.Record
	// FromCache is true when the records were served without network calls
	FromCache bool
	// Partial is true when listing stopped early; partial collections are not cached
	Partial  bool
	Trace    []State
	Duration time.Duration
}

// At returns the record at index i
func (o *Outcome) At(i int) (geo.Record, error) {
	if i < 0 || i >= len(o.Records) {
		return geo.Record{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(o.Records))
	}
	return o.Records[i], nil
}

// Center is the map center of the records
func (o *Outcome) Center() (lat, long float64) {
	return geo.Center(o.Records)
}

func (o *Outcome) enter(s State) {
	o.Trace = append(o.Trace, s)
}

// Visited reports whether the request passed through s
func (o *Outcome) Visited(s State) bool {
	for _, v := range o.Trace {
		if v == s {
			return true
		}
	}
	return false
}
