// Package friends lists a profile's friends through the paginated fetcher.
package friends

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"vkgeo/pkg/logger"
	"vkgeo/pkg/paging"
	"vkgeo/pkg/vk"
)

// Sex values reported by friends.get
const (
	SexUnknown = 0
	SexFemale  = 1
	SexMale    = 2
)

// Lister walks friends.get for a profile
type Lister struct {
	fetcher  *paging.Fetcher
	pageSize int
	logger   logger.Logger
}

// NewLister creates a lister requesting pageSize friends per page
func NewLister(fetcher *paging.Fetcher, pageSize int, log logger.Logger) *Lister {
	if pageSize <= 0 || pageSize > vk.MaxFriendsPageSize {
		pageSize = vk.MaxFriendsPageSize
	}
	return &Lister{fetcher: fetcher, pageSize: pageSize, logger: logger.OrDefault(log)}
}

// List returns the friends of userID with their sex populated. On a paging
// failure the friends received so far are returned with the error.
func (l *Lister) List(ctx context.Context, userID string) ([]vk.Friend, error) {
	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("fields", "sex")

	res, fetchErr := l.fetcher.Fetch(ctx, paging.Request{
		Method: vk.MethodFriendsGet,
		Params: params,
		Step:   l.pageSize,
	})
	if res == nil {
		return nil, fetchErr
	}

	list, err := paging.Decode[vk.Friend](res.Items)
	if err != nil {
		return list, errors.Join(fetchErr, fmt.Errorf("decode friends of %s: %w", userID, err))
	}

	l.logger.DebugWithFields("friends listed", map[string]interface{}{
		"user_id":  userID,
		"friends":  len(list),
		"complete": res.Complete,
	})
	return list, fetchErr
}

// Active drops deactivated (deleted or banned) accounts
func Active(list []vk.Friend) []vk.Friend {
	out := make([]vk.Friend, 0, len(list))
	for _, f := range list {
		if f.Deactivated == "" {
			out = append(out, f)
		}
	}
	return out
}

// CountBySex tallies friends by their sex value
func CountBySex(list []vk.Friend) map[int]int {
	counts := make(map[int]int, 3)
	for _, f := range list {
		counts[f.Sex]++
	}
	return counts
}
