package photos

import "vkgeo/pkg/vk"

// Widest returns the size variant with the greatest width. Ties keep the first
// variant seen. ok is false when there are no variants.
func Widest(sizes []vk.Size) (vk.Size, bool) {
	if len(sizes) == 0 {
		return vk.Size{}, false
	}
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width > best.Width {
			best = s
		}
	}
	return best, true
}

// Normalize sets the photo URL to its widest variant and drops the variant list
func Normalize(p *vk.Photo) {
	if best, ok := Widest(p.Sizes); ok {
		p.URL = best.URL
	}
	p.Sizes = nil
}
