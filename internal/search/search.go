package search

// WebsiteDoc is the data we index and return for a website.
type WebsiteDoc struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Origin      string   `json:"origin"`
	Categories  []string `json:"categories"`
	SaveCount   int      `json:"saveCount"`
}
