// Package paging walks offset-paginated VK methods whose total size is only
// known after the first page arrives.
package paging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"vkgeo/pkg/logger"
	"vkgeo/pkg/metrics"
)

// ErrInvalidStep is returned when a request asks for a non-positive page size
var ErrInvalidStep = errors.New("paging: step must be positive")

// Caller performs one API call and decodes its response into target.
// *vk.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, params url.Values, target interface{}) error
}

// Request selects a paginated method and how to walk it
type Request struct {
	Method string
	// Params are sent with every page; count and offset are set per page
	Params url.Values
	Step   int
	// SideChannels names auxiliary list fields concatenated across pages
	SideChannels []string
}

// Result is what a walk accumulated. On error it holds every page received
// before the failure.
type Result struct {
	Items        []json.RawMessage
	SideChannels map[string][]json.RawMessage
	// Total is the last count the server reported
	Total      int
	Iterations int
	// Offset is the offset the next page would have been requested at
	Offset int
	// Complete is true when the walk ended without a request error
	Complete bool
}

// page is the shape of one paginated response; side channels are read from raw
type page struct {
	Count int               `json:"count"`
	Items []json.RawMessage `json:"items"`
}

// Fetcher drives offset enumeration of a paginated method
type Fetcher struct {
	caller  Caller
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewFetcher creates a fetcher issuing calls through caller
func NewFetcher(caller Caller, log logger.Logger, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		caller:  caller,
		logger:  logger.OrDefault(log),
		metrics: m,
	}
}

// Fetch requests pages of req.Step items until the accumulated count matches the
// server's latest reported total. The offset advances by the full step every
// iteration regardless of how many items came back, and the walk stops early once
// the offset runs more than one step past the accumulated items, which bounds it
// when the reported total can never be reached.
//
// A failed page ends the walk: the partial result is returned with the error.
// Fetch does not retry.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	if req.Step <= 0 {
		return nil, ErrInvalidStep
	}

	res := &Result{
		Items: []json.RawMessage{},
		Total: 1,
	}
	if len(req.SideChannels) > 0 {
		res.SideChannels = make(map[string][]json.RawMessage, len(req.SideChannels))
	}

	for len(res.Items) != res.Total {
		params := copyParams(req.Params)
		params.Set("count", strconv.Itoa(req.Step))
		params.Set("offset", strconv.Itoa(res.Offset))

		var raw map[string]json.RawMessage
		res.Iterations++
		if err := f.caller.Call(ctx, req.Method, params, &raw); err != nil {
			f.logger.WithError(err).WarnWithFields("paginated fetch aborted", map[string]interface{}{
				"method":      req.Method,
				"offset":      res.Offset,
				"accumulated": len(res.Items),
			})
			return res, fmt.Errorf("fetch %s at offset %d: %w", req.Method, res.Offset, err)
		}

		var p page
		if err := decodePage(raw, &p); err != nil {
			return res, fmt.Errorf("fetch %s at offset %d: %w", req.Method, res.Offset, err)
		}

		res.Total = p.Count
		for _, name := range req.SideChannels {
			extra, err := decodeSideChannel(raw, name)
			if err != nil {
				return res, fmt.Errorf("fetch %s at offset %d: %w", req.Method, res.Offset, err)
			}
			res.SideChannels[name] = append(res.SideChannels[name], extra...)
		}
		res.Items = append(res.Items, p.Items...)

		f.metrics.IncrementPages(req.Method)
		logger.LogPage(f.logger, req.Method, res.Offset, len(p.Items), len(res.Items), res.Total)

		res.Offset += req.Step
		if res.Offset > len(res.Items)+req.Step {
			f.logger.DebugWithFields("paginated fetch stopped by offset guard", map[string]interface{}{
				"method":      req.Method,
				"offset":      res.Offset,
				"accumulated": len(res.Items),
				"total":       res.Total,
			})
			break
		}
	}

	res.Complete = true
	return res, nil
}

func decodePage(raw map[string]json.RawMessage, p *page) error {
	if countRaw, ok := raw["count"]; ok {
		if err := json.Unmarshal(countRaw, &p.Count); err != nil {
			return fmt.Errorf("decode count: %w", err)
		}
	}
	if itemsRaw, ok := raw["items"]; ok {
		if err := json.Unmarshal(itemsRaw, &p.Items); err != nil {
			return fmt.Errorf("decode items: %w", err)
		}
	}
	return nil
}

func decodeSideChannel(raw map[string]json.RawMessage, name string) ([]json.RawMessage, error) {
	data, ok := raw[name]
	if !ok || string(data) == "null" {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode side channel %q: %w", name, err)
	}
	return list, nil
}

func copyParams(params url.Values) url.Values {
	out := make(url.Values, len(params)+2)
	for key, values := range params {
		out[key] = append([]string(nil), values...)
	}
	return out
}

// Decode unmarshals raw items into T, preserving order
func Decode[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return out, fmt.Errorf("decode item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
