package rss

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

// pubDateFormat matches the date texture of the NewsData.io payload so
// the formatter renders both providers the same way.
const pubDateFormat = "2006-01-02 15:04:05"

// Source implements ArticleSource over a single RSS feed. It is the
// alternative provider for operators without a NewsData.io key; feed
// parse failures map to transport errors, an empty or non-matching
// feed maps to the same soft failure the API provider reports.
type Source struct {
	feedURL string
	parser  *gofeed.Parser
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// New creates an RSS source for the given feed URL
func New(feedURL string, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	return &Source{
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
		limiter: limiter,
		log:     log.WithProvider("rss", feedURL),
	}
}

// Name returns the feed URL
func (s *Source) Name() string {
	return s.feedURL
}

// Type returns "rss"
func (s *Source) Type() string {
	return "rss"
}

// Fetch retrieves feed items matching the query topic. Country and
// language are ignored; feeds carry their own locale.
func (s *Source) Fetch(ctx context.Context, q source.Query) ([]models.Article, error) {
	if s.feedURL == "" {
		return nil, &source.Error{
			Kind:    source.KindCredentialMissing,
			Message: "Missing feed URL",
		}
	}

	if err := s.limiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
		return nil, &source.Error{
			Kind:    source.KindTransport,
			Message: "Request error: " + err.Error(),
			Err:     err,
		}
	}

	s.log.Debug().Str("url", s.feedURL).Msg("Fetching RSS feed")

	feed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		return nil, &source.Error{
			Kind:    source.KindTransport,
			Message: "Request error: " + err.Error(),
			Err:     err,
		}
	}

	articles := make([]models.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if !matchesTopic(item, q.Topic) {
			continue
		}

		pubDate := ""
		if item.PublishedParsed != nil {
			pubDate = item.PublishedParsed.Format(pubDateFormat)
		} else if item.Published != "" {
			pubDate = item.Published
		}

		articles = append(articles, models.Article{
			Title:       cleanText(item.Title),
			SourceID:    feed.Title,
			PubDate:     pubDate,
			Link:        item.Link,
			Description: cleanText(item.Description),
		})
	}

	if len(articles) == 0 {
		return nil, &source.Error{
			Kind:    source.KindEmptyResult,
			Message: "No news articles found for the given search criteria. Try a different topic or country.",
		}
	}

	s.log.Info().Int("count", len(articles)).Msg("Fetched RSS articles")
	return articles, nil
}

// matchesTopic reports whether any word of the topic appears in the
// item title or description. An empty topic matches everything.
func matchesTopic(item *gofeed.Item, topic string) bool {
	words := strings.Fields(strings.ToLower(topic))
	if len(words) == 0 {
		return true
	}

	haystack := strings.ToLower(item.Title + " " + item.Description)
	for _, w := range words {
		if strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	// Remove HTML tags (simple approach)
	text = strings.ReplaceAll(text, "<br>", " ")
	text = strings.ReplaceAll(text, "<br/>", " ")
	text = strings.ReplaceAll(text, "<br />", " ")
	text = strings.ReplaceAll(text, "</p>", " ")
	text = strings.ReplaceAll(text, "<p>", "")

	// Remove remaining HTML tags
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
		} else if r == '>' {
			inTag = false
		} else if !inTag {
			result.WriteRune(r)
		}
	}

	// Clean up whitespace
	text = result.String()
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

// Ensure Source implements source.ArticleSource
var _ source.ArticleSource = (*Source)(nil)
