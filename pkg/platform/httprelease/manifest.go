package httprelease

// manifest is the wire form of a channel's published release listing.
type manifest struct {
	Channel int64          `json:"channel"`
	Items   []manifestItem `json:"items"`
}

// manifestItem describes one release item. EditedAt is 0 for items that
// were never edited after publication; CreatedAt substitutes in that case.
type manifestItem struct {
	ID            int64  `json:"id"`
	EditedAt      int64  `json:"edited_at"`
	CreatedAt     int64  `json:"created_at"`
	URL           string `json:"url"`
	Filename      string `json:"filename"`
	MinAppVersion string `json:"min_app_version,omitempty"`
}
