package gallery

import (
	"math"

	"github.com/tphakala/pixalb/internal/pixabay"
)

const (
	// PageSize is the number of items in a local page.
	PageSize = 50

	// RemotePageSize is the number of items in a remote page.
	RemotePageSize = pixabay.ItemsPerPage

	// MaxCachedItems bounds the cache window of a query.
	MaxCachedItems = 500

	// firstWindowPages is the first page that extends an existing cache
	// window instead of populating a new one.
	firstWindowPages  = 5
	lastMidWindowPage = 8
)

// PageOffset returns the item offset of a 1-based local page. Offsets that
// do not fit an int saturate at math.MaxInt, which is past any total.
func PageOffset(pageID int) int {
	if pageID-1 > math.MaxInt/PageSize {
		return math.MaxInt
	}
	return (pageID - 1) * PageSize
}

// RemotePage maps a local page to the remote page fetched for it:
// 1-4 → 1, 5-8 → 2, 9 and later → 3.
func RemotePage(pageID int) int {
	switch {
	case pageID < firstWindowPages:
		return 1
	case pageID <= lastMidWindowPage:
		return 2
	default:
		return 3
	}
}

// isFirstPopulation reports whether storing pageID creates the cache row
// rather than growing it.
func isFirstPopulation(pageID int) bool {
	return pageID < firstWindowPages
}

// cacheWindow is the number of items considered stored once pageID (≥ 5)
// has been written back.
func cacheWindow(pageID int) int {
	if pageID <= lastMidWindowPage {
		return 2 * RemotePageSize
	}
	return MaxCachedItems
}

// grownStoredItems is the stored item count after writing back pageID (≥ 5)
// for a query with total items of which prior are already stored.
func grownStoredItems(pageID, total, prior int) int {
	return max(prior, min(total, cacheWindow(pageID)))
}

// initialStoredItems is the stored item count of a freshly populated query.
func initialStoredItems(total int) int {
	return max(0, min(total, RemotePageSize))
}
