// Package listing extracts candidate video IDs from the upstream platform's
// listing page, using a static fetch first and a headless render when the
// page is populated client-side.
package listing

import (
	"regexp"
	"strconv"
)

var videoLinkPattern = regexp.MustCompile(`/videos/(\d+)`)

// ExtractIDs returns the video IDs referenced by anchors in the given HTML,
// deduplicated, in page order.
func ExtractIDs(html string) []int64 {
	matches := videoLinkPattern.FindAllStringSubmatch(html, -1)
	seen := make(map[int64]struct{}, len(matches))
	var ids []int64
	for _, m := range matches {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
