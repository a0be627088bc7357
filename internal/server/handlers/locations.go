package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vkgeo/pkg/cache"
	errs "vkgeo/pkg/errors"
	"vkgeo/pkg/export"
	"vkgeo/pkg/geo"
	"vkgeo/pkg/logger"
	"vkgeo/pkg/pipeline"
)

// Locator resolves one profile into an outcome
type Locator interface {
	Locate(ctx context.Context, profileID string) *pipeline.Outcome
	Refresh(ctx context.Context, profileID string) *pipeline.Outcome
}

// Center is the map center of a collection
type Center struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// LocationsResponse is the body of the locations listing
type LocationsResponse struct {
	RequestID string       `json:"request_id"`
	ProfileID string       `json:"profile_id"`
	Status    string       `json:"status"`
	FromCache bool         `json:"from_cache"`
	Partial   bool         `json:"partial,omitempty"`
	Warning   string       `json:"warning,omitempty"`
	Count     int          `json:"count"`
	Center    Center       `json:"center"`
	Locations []geo.Record `json:"locations"`
}

// LocationResponse is the body of a single location lookup
type LocationResponse struct {
	ProfileID string     `json:"profile_id"`
	Index     int        `json:"index"`
	Location  geo.Record `json:"location"`
}

// LocationHandler serves location records for VK profiles
type LocationHandler struct {
	locator Locator
	logger  logger.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locator Locator, log logger.Logger) *LocationHandler {
	return &LocationHandler{
		locator: locator,
		logger:  logger.OrDefault(log),
	}
}

// List returns every location of a profile
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	out, ok := h.locate(w, r)
	if !ok {
		return
	}

	resp := LocationsResponse{
		RequestID: out.RequestID,
		ProfileID: out.ProfileID,
		Status:    out.Status.String(),
		FromCache: out.FromCache,
		Partial:   out.Partial,
		Count:     len(out.Records),
		Locations: out.Records,
	}
	if resp.Locations == nil {
		resp.Locations = []geo.Record{}
	}
	resp.Center.Lat, resp.Center.Long = out.Center()
	if out.Partial && out.Err != nil {
		resp.Warning = out.Err.Error()
	}

	code := http.StatusOK
	if out.Status == pipeline.NotFound {
		code = http.StatusNotFound
	}
	respondWithJSON(w, code, resp)
}

// Get returns the location at the index given in the path
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid location index", nil)
		return
	}

	out, ok := h.locate(w, r)
	if !ok {
		return
	}

	rec, err := out.At(index)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Location not found", nil)
		return
	}

	respondWithJSON(w, http.StatusOK, LocationResponse{
		ProfileID: out.ProfileID,
		Index:     index,
		Location:  rec,
	})
}

// GeoJSON returns the locations as a FeatureCollection
func (h *LocationHandler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	out, ok := h.locate(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, export.FormatGeoJSON, out.Records); err != nil {
		h.logger.WithError(err).Warn("failed to write geojson response")
	}
}

// locate runs the pipeline and writes the error response itself when the
// outcome cannot be presented
func (h *LocationHandler) locate(w http.ResponseWriter, r *http.Request) (*pipeline.Outcome, bool) {
	id := chi.URLParam(r, "id")

	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid refresh flag", nil)
			return nil, false
		}
		refresh = b
	}

	var out *pipeline.Outcome
	if refresh {
		out = h.locator.Refresh(r.Context(), id)
	} else {
		out = h.locator.Locate(r.Context(), id)
	}

	if out.Status == pipeline.UpstreamError {
		if errors.Is(out.Err, cache.ErrInvalidProfileID) {
			respondWithError(w, http.StatusBadRequest, "Invalid profile id", nil)
			return nil, false
		}
		h.logger.WithError(out.Err).WarnWithFields("upstream failure", map[string]interface{}{
			"request_id": out.RequestID,
			"profile_id": id,
		})
		switch errs.TypeOf(out.Err) {
		case errs.ErrorTypeAccessDenied:
			respondWithError(w, http.StatusForbidden, "Profile photos are not accessible", nil)
		case errs.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, "Profile not found", nil)
		default:
			respondWithError(w, http.StatusBadGateway, "VK API request failed", out.Err)
		}
		return nil, false
	}

	return out, true
}
