package models

// Article is one news item as consumed by the digest formatter. All
// fields are optional; the formatter degrades missing values to
// placeholder text. JSON tags match the NewsData.io payload.
type Article struct {
	Title       string `json:"title"`
	SourceID    string `json:"source_id"`
	PubDate     string `json:"pubDate"`
	Link        string `json:"link"`
	Description string `json:"description"`
}
