// Package geo holds the location record built from a geotagged photo and the
// proximity rules used to compare records.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"vkgeo/pkg/vk"
)

// DefaultThreshold is the coordinate tolerance, in degrees, under which two
// records are the same location (about 100 m)
const DefaultThreshold = 0.001

// ErrNoCoordinates is returned when a photo without a full geotag is turned into a record
var ErrNoCoordinates = errors.New("geo: photo has no coordinates")

// Record is one geotagged photo. It is a value type; once built it never changes.
type Record struct {
	lat         float64
	long        float64
	sourceURL   string
	profileLink string
	description string
	createdAt   time.Time
}

// NewRecord validates coordinates and builds a record. createdAt is converted
// to UTC and truncated to the second.
func NewRecord(lat, long float64, sourceURL, profileLink, description string, createdAt time.Time) (Record, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Record{}, fmt.Errorf("geo: latitude %v out of range [-90, 90]", lat)
	}
	if math.IsNaN(long) || long < -180 || long > 180 {
		return Record{}, fmt.Errorf("geo: longitude %v out of range [-180, 180]", long)
	}
	return Record{
		lat:         lat,
		long:        long,
		sourceURL:   sourceURL,
		profileLink: profileLink,
		description: description,
		createdAt:   createdAt.UTC().Truncate(time.Second),
	}, nil
}

// FromPhoto builds a record from an enriched photo
func FromPhoto(p vk.Photo) (Record, error) {
	if !p.HasCoordinates() {
		return Record{}, fmt.Errorf("photo %s: %w", p.CompositeID(), ErrNoCoordinates)
	}
	return NewRecord(*p.Lat, *p.Long, p.URL, vk.ProfileLink(p.OwnerID, p.ID), p.Text, time.Unix(p.Date, 0))
}

// Latitude returns the latitude in degrees
func (r Record) Latitude() float64 { return r.lat }

// Longitude returns the longitude in degrees
func (r Record) Longitude() float64 { return r.long }

// SourceURL returns the widest image URL of the photo
func (r Record) SourceURL() string { return r.sourceURL }

// ProfileLink returns the public page of the photo
func (r Record) ProfileLink() string { return r.profileLink }

// Description returns the photo caption, possibly empty
func (r Record) Description() string { return r.description }

// CreatedAt returns when the photo was uploaded
func (r Record) CreatedAt() time.Time { return r.createdAt }

// Equals reports whether both coordinates differ by less than threshold.
// It is reflexive and symmetric but not transitive: a chain of nearby points
// can drift past the threshold end to end.
func (r Record) Equals(other Record, threshold float64) bool {
	return math.Abs(r.lat-other.lat) < threshold && math.Abs(r.long-other.long) < threshold
}

// SameLocation is Equals with DefaultThreshold
func (r Record) SameLocation(other Record) bool {
	return r.Equals(other, DefaultThreshold)
}

type recordJSON struct {
	Lat         float64   `json:"lat"`
	Long        float64   `json:"long"`
	Source      string    `json:"source"`
	ProfileLink string    `json:"profile_link"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
}

// MarshalJSON implements json.Marshaler
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Lat:         r.lat,
		Long:        r.long,
		Source:      r.sourceURL,
		ProfileLink: r.profileLink,
		Description: r.description,
		Created:     r.createdAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler, applying the same validation as NewRecord
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rec, err := NewRecord(raw.Lat, raw.Long, raw.Source, raw.ProfileLink, raw.Description, raw.Created)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}
