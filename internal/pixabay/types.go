package pixabay

import "time"

const (
	// ItemsPerPage is the per_page value sent with every request.
	ItemsPerPage = 200

	DefaultBaseURL = "https://pixabay.com/api/"
)

// Response is one page of search results.
type Response struct {
	Total int // totalHits: number of hits reachable through the API
	Hits  []Hit
}

// Hit is one image in a search result. Tags is the raw comma separated list.
type Hit struct {
	ID           int64
	User         string
	Tags         string
	Downloads    uint32
	Likes        uint32
	Comments     uint32
	PreviewURL   string
	WebformatURL string
}

// Config holds the settings for the Pixabay API client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// RateLimit is requests per second; Pixabay allows 100 per minute
	RateLimit float64
	Burst     int

	// ResponseCacheTTL memoizes identical query/page calls; zero disables it
	ResponseCacheTTL time.Duration

	SafeSearch bool
	Lang       string
	ImageType  string
}

// DefaultConfig returns the default configuration for the client.
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		Timeout:          15 * time.Second,
		RateLimit:        100.0 / 60.0,
		Burst:            5,
		ResponseCacheTTL: 5 * time.Minute,
		SafeSearch:       true,
		Lang:             "en",
		ImageType:        "all",
	}
}
