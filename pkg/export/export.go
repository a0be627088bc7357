// Package export writes location records as GeoJSON, JSON or CSV.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"vkgeo/pkg/cache"
	"vkgeo/pkg/geo"
)

// Supported formats
const (
	FormatGeoJSON = "geojson"
	FormatJSON    = "json"
	FormatCSV     = "csv"
)

// FeatureCollection is a GeoJSON feature collection
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one GeoJSON point feature
type Feature struct {
	Type       string     `json:"type"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// Geometry is a GeoJSON point; coordinates are [longitude, latitude]
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Properties carries the photo detail of a feature
type Properties struct {
	Index       int    `json:"index"`
	Source      string `json:"source"`
	ProfileLink string `json:"profile_link"`
	Description string `json:"description,omitempty"`
	Created     string `json:"created"`
}

// ToGeoJSON converts records to a feature collection, preserving order
func ToGeoJSON(records []geo.Record) *FeatureCollection {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(records))}
	for i, r := range records {
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: [2]float64{r.Longitude(), r.Latitude()},
			},
			Properties: Properties{
				Index:       i,
				Source:      r.SourceURL(),
				ProfileLink: r.ProfileLink(),
				Description: r.Description(),
				Created:     r.CreatedAt().Format(time.RFC3339),
			},
		})
	}
	return fc
}

// Write encodes records to w in format
func Write(w io.Writer, format string, records []geo.Record) error {
	switch strings.ToLower(format) {
	case FormatGeoJSON, "":
		return encodeIndented(w, ToGeoJSON(records))
	case FormatJSON:
		if records == nil {
			records = []geo.Record{}
		}
		return encodeIndented(w, records)
	case FormatCSV:
		return cache.WriteCSV(w, records)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// SaveFile writes records to path in format
func SaveFile(path, format string, records []geo.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(file, format, records); err != nil {
		file.Close()
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	return nil
}

// FormatFromPath guesses the format from a file extension
func FormatFromPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV
	case strings.HasSuffix(lower, ".geojson"):
		return FormatGeoJSON
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	default:
		return FormatGeoJSON
	}
}

// Truncate shortens a description for one-line display
func Truncate(s string, maxLength int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if maxLength <= 3 || len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength-3]) + "..."
}

func encodeIndented(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
