package vk

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Size is one resolution variant of a photo
type Size struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Photo is a photo object as returned by photos.getAll and photos.getById.
// Lat and Long are nil when the photo carries no geotag.
type Photo struct {
	ID      int64    `json:"id"`
	OwnerID int64    `json:"owner_id"`
	AlbumID int64    `json:"album_id,omitempty"`
	Date    int64    `json:"date"`
	Text    string   `json:"text"`
	Lat     *float64 `json:"lat,omitempty"`
	Long    *float64 `json:"long,omitempty"`
	Sizes   []Size   `json:"sizes,omitempty"`
	URL     string   `json:"url,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present
func (p Photo) HasCoordinates() bool {
	return p.Lat != nil && p.Long != nil
}

// CompositeID returns the {owner}_{id} address of the photo
func (p Photo) CompositeID() CompositeID {
	return NewCompositeID(p.OwnerID, p.ID)
}

// Friend is a user object as returned by friends.get with fields=sex
type Friend struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Sex         int    `json:"sex"`
	Deactivated string `json:"deactivated,omitempty"`
	IsClosed    bool   `json:"is_closed"`
}

// FullName returns "first last"
func (f Friend) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// CompositeID addresses a photo across owners, e.g. "-1234_456"
type CompositeID string

// NewCompositeID builds a composite id from owner and photo ids
func NewCompositeID(ownerID, photoID int64) CompositeID {
	return CompositeID(fmt.Sprintf("%d_%d", ownerID, photoID))
}

// Parse splits the id into owner and photo ids
func (c CompositeID) Parse() (ownerID, photoID int64, err error) {
	owner, photo, ok := strings.Cut(string(c), "_")
	if !ok {
		return 0, 0, fmt.Errorf("invalid composite id %q: missing separator", c)
	}
	ownerID, err = strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid composite id %q: %w", c, err)
	}
	photoID, err = strconv.ParseInt(photo, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid composite id %q: %w", c, err)
	}
	return ownerID, photoID, nil
}

// JoinIDs joins composite ids into the comma-separated form photos.getById expects
func JoinIDs(ids []CompositeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

// APIError is the error object of a failed call
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}
