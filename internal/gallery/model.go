// Package gallery implements the paginated cache-aside layer over the Pixabay
// API: a local cache repository, a remote gateway and the Store that
// orchestrates both and publishes results as observable state.
package gallery

// OverviewItem is the list rendering of an image.
type OverviewItem struct {
	ID        int64    `json:"id"`
	Thumbnail string   `json:"thumbnail"`
	UserName  string   `json:"user_name"`
	Tags      []string `json:"tags"`
}

// DetailViewItem is the detail rendering of an image.
type DetailViewItem struct {
	ImageURL  string   `json:"image_url"`
	UserName  string   `json:"user_name"`
	Tags      []string `json:"tags"`
	Likes     uint32   `json:"likes"`
	Downloads uint32   `json:"downloads"`
	Comments  uint32   `json:"comments"`
}

// RemoteResponse is one remote page split into parallel projections:
// Overview[i] and DetailedView[i] describe the same image.
type RemoteResponse struct {
	TotalAmountOfItems int
	Overview           []OverviewItem
	DetailedView       []DetailViewItem
}
