// Package metrics provides Prometheus collectors for pixalb components.
package metrics

// Channel label values.
const (
	ChannelOverview   = "overview"
	ChannelDetailView = "detailview"
)

// Cache lookup outcomes recorded by GalleryMetrics.RecordCacheLookup.
const (
	LookupHit          = "hit"
	LookupMissingEntry = "missing_entry"
	LookupMissingPage  = "missing_page"
	LookupEntryCap     = "entry_cap"
	LookupNotFound     = "not_found"
	LookupError        = "error"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)
