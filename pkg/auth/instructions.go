package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide prints how to obtain a VK access token with photo and friends scope
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "🔑 VK ACCESS TOKEN")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "vkgeo calls photos.getAll, photos.getById and friends.get, which need a")
	fmt.Fprintln(w, "user access token with the photos and friends scopes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Create a standalone app at https://vk.com/apps?act=manage and note its ID.")
	fmt.Fprintln(w, "2. Open, replacing APP_ID:")
	fmt.Fprintln(w, "   https://oauth.vk.com/authorize?client_id=APP_ID&display=page&redirect_uri=https://oauth.vk.com/blank.html&scope=photos,friends,offline&response_type=token&v=5.131")
	fmt.Fprintln(w, "3. Approve access. The address bar will contain #access_token=...&user_id=...")
	fmt.Fprintln(w, "4. Copy the access_token value and run 'vkgeo auth login'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "⚠️  The token grants access to your account. vkgeo keeps it in the system")
	fmt.Fprintln(w, "   keychain or an encrypted file; never share it.")
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

// ShowQuickTokenGuide prints a one-line reminder
func ShowQuickTokenGuide(w io.Writer) {
	fmt.Fprintln(w, "🔑 Need a token? Run 'vkgeo auth guide' or set VKGEO_ACCESS_TOKEN")
}
