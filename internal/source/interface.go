package source

import (
	"context"

	"github.com/newsdigest-agent/internal/models"
)

// Query describes one article search
type Query struct {
	Topic    string
	Country  string
	Language string
}

// ArticleSource defines the interface for news providers
type ArticleSource interface {
	// Name returns the unique name of this source
	Name() string

	// Type returns the provider type (newsdata, rss)
	Type() string

	// Fetch retrieves articles matching the query. A failed fetch
	// returns a classified *Error; callers distinguish outcomes with
	// errors.As and Error.Kind.
	Fetch(ctx context.Context, q Query) ([]models.Article, error)
}
