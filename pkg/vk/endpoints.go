package vk

import "fmt"

const (
	// BaseURL is the root of the VK method API
	BaseURL = "https://api.vk.com/method"

	// APIVersion is the API version requests are pinned to
	APIVersion = "5.131"

	MethodPhotosGetAll  = "photos.getAll"
	MethodPhotosGetByID = "photos.getById"
	MethodFriendsGet    = "friends.get"

	// MaxPhotosPageSize is the largest count photos.getAll accepts
	MaxPhotosPageSize = 200

	// MaxFriendsPageSize is the largest count friends.get accepts
	MaxFriendsPageSize = 5000
)

// ProfileLink returns the link that opens a photo inside its owner's albums
func ProfileLink(ownerID, photoID int64) string {
	return fmt.Sprintf("https://vk.com/albums%d?z=photo%d_%d", ownerID, ownerID, photoID)
}

// MethodURL returns the URL of a method under baseURL
func MethodURL(baseURL, method string) string {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return fmt.Sprintf("%s/%s", baseURL, method)
}
