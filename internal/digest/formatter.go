package digest

import (
	"strings"
	"time"

	"github.com/newsdigest-agent/internal/models"
)

const (
	header          = "📰 *LATEST NEWS UPDATES* 📰"
	footerFormat    = "2006-01-02 15:04:05"
	maxDescription  = 100
	descriptionTail = "..."
)

// Formatter turns a list of articles (or a fetch failure) into one
// WhatsApp-ready digest string. Pure with respect to its inputs except
// for the current-time footer.
type Formatter struct {
	now func() time.Time
}

// NewFormatter creates a formatter using the wall clock
func NewFormatter() *Formatter {
	return &Formatter{now: time.Now}
}

// NewFormatterAt creates a formatter with an injected clock. Used in tests.
func NewFormatterAt(now func() time.Time) *Formatter {
	return &Formatter{now: now}
}

// Format builds the digest message. fetchErr carries the classified
// failure text when articles is empty; limit caps the article count.
// Never panics; absent article fields degrade to placeholders.
func (f *Formatter) Format(articles []models.Article, fetchErr error, limit int) string {
	blocks := []string{header}

	if len(articles) == 0 {
		blocks = append(blocks, f.emptyBlocks(fetchErr)...)
		return strings.Join(blocks, "\n\n")
	}

	if limit < 1 {
		limit = 1
	}
	if limit > len(articles) {
		limit = len(articles)
	}
	for _, article := range articles[:limit] {
		blocks = append(blocks, formatArticle(article))
	}

	blocks = append(blocks, "⏱️ Updated: "+f.now().Format(footerFormat))
	return strings.Join(blocks, "\n\n")
}

// emptyBlocks renders the no-articles branch: the failure text plus
// category-specific suggestions keyed by substring, or a generic
// notice when there is no failure to explain.
func (f *Formatter) emptyBlocks(fetchErr error) []string {
	if fetchErr == nil {
		return []string{"⚠️ No news found. Please try again with different search criteria."}
	}

	detail := fetchErr.Error()
	blocks := []string{
		"⚠️ *Issue fetching news*: " + detail,
		"\n💡 *Suggestions*:",
	}

	switch {
	case strings.Contains(detail, "API key"):
		blocks = append(blocks,
			"• Please check your NewsData.io API key",
			"• Verify the API key is active and has sufficient quota",
		)
	case strings.Contains(detail, "search criteria"):
		blocks = append(blocks,
			"• Try a broader search topic (e.g., 'world' instead of specific terms)",
			"• Try different country or language settings",
			"• Check if the topic is too specific or has limited coverage",
		)
	default:
		blocks = append(blocks,
			"• The news service might be temporarily unavailable",
			"• Try again later or check your internet connection",
		)
	}

	return blocks
}

// formatArticle renders one article block
func formatArticle(a models.Article) string {
	title := a.Title
	if title == "" {
		title = "No title"
	}
	src := a.SourceID
	if src == "" {
		src = "Unknown"
	}
	pubDate := a.PubDate
	if pubDate == "" {
		pubDate = "Unknown date"
	}
	link := a.Link
	if link == "" {
		link = "#"
	}

	block := "🗞️ *" + title + "*\n📍" + src + " | 🕒 " + pubDate + "\n🔗 " + link

	if a.Description != "" {
		block += "\n\n" + truncate(a.Description, maxDescription)
	}

	return block
}

// truncate shortens s to max runes, replacing the tail with an
// ellipsis marker when it had to cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-len(descriptionTail)]) + descriptionTail
}
