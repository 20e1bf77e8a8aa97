package newsdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

const (
	defaultBaseURL = "https://newsdata.io/api/1"

	requestTimeout = 10 * time.Second
	maxRetries     = 2
	retryBackoff   = 2 * time.Second
)

// Client fetches articles from the NewsData.io search endpoint.
//
// Transport-level failures (network errors, malformed bodies) are
// retried up to maxRetries extra attempts with a fixed backoff; every
// other failure kind terminates the fetch immediately.
type Client struct {
	apiKey     func() string // read at call time, not construction time
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.MultiLimiter
	retries    int
	backoff    time.Duration
	log        *logger.Logger
}

// NewClient creates a NewsData.io client. apiKey is consulted on every
// fetch so a key rotated in the environment takes effect without a
// restart.
func NewClient(apiKey func() string, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		limiter: limiter,
		retries: maxRetries,
		backoff: retryBackoff,
		log:     log.WithComponent("newsdata"),
	}
}

// Name returns the source name
func (c *Client) Name() string {
	return "newsdata.io"
}

// Type returns "newsdata"
func (c *Client) Type() string {
	return "newsdata"
}

// apiResponse is the NewsData.io envelope. Results holds either the
// article array or, on status "error", a nested error object.
type apiResponse struct {
	Status  string          `json:"status"`
	Results json.RawMessage `json:"results"`
}

type apiError struct {
	Message string `json:"message"`
}

// Fetch retrieves articles matching the query
func (c *Client) Fetch(ctx context.Context, q source.Query) ([]models.Article, error) {
	key := c.apiKey()
	if key == "" {
		return nil, &source.Error{
			Kind:    source.KindCredentialMissing,
			Message: "Missing API key",
		}
	}

	var lastErr *source.Error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Info().
				Int("attempt", attempt).
				Int("max_retries", c.retries).
				Msg("Retrying NewsData.io request")
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return nil, &source.Error{
					Kind:    source.KindTransport,
					Message: "Request error: " + ctx.Err().Error(),
					Err:     ctx.Err(),
				}
			}
		}

		articles, err := c.fetchOnce(ctx, key, q)
		if err == nil {
			return articles, nil
		}

		var serr *source.Error
		if !errors.As(err, &serr) {
			serr = &source.Error{Kind: source.KindTransport, Message: err.Error(), Err: err}
		}
		if !serr.Retryable() {
			return nil, serr
		}
		c.log.Error().Err(serr).Msg("NewsData.io request failed")
		lastErr = serr
	}

	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, key string, q source.Query) ([]models.Article, error) {
	if err := c.limiter.Wait(ctx, ratelimit.LimiterNewsData); err != nil {
		return nil, &source.Error{
			Kind:    source.KindTransport,
			Message: "Request error: " + err.Error(),
			Err:     err,
		}
	}

	params := url.Values{}
	params.Set("apikey", key)
	params.Set("q", q.Topic)
	params.Set("country", q.Country)
	params.Set("language", q.Language)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/news?"+params.Encode(), nil)
	if err != nil {
		return nil, &source.Error{
			Kind:    source.KindTransport,
			Message: "Request error: " + err.Error(),
			Err:     err,
		}
	}

	c.log.Debug().Str("topic", q.Topic).Str("country", q.Country).Msg("Fetching news")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &source.Error{
			Kind:    source.KindTransport,
			Message: "Request error: " + err.Error(),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	c.log.Debug().Int("status", resp.StatusCode).Msg("NewsData.io response")

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to body parsing
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &source.Error{
			Kind:    source.KindCredentialRejected,
			Message: "API key unauthorized. Please check your NewsData.io API key.",
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &source.Error{
			Kind:    source.KindRateLimited,
			Message: "Rate limit exceeded. Please try again later.",
		}
	default:
		return nil, &source.Error{
			Kind:    source.KindHTTPStatus,
			Message: fmt.Sprintf("HTTP error: %d", resp.StatusCode),
		}
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &source.Error{
			Kind:    source.KindTransport,
			Message: "Invalid JSON response: " + err.Error(),
			Err:     err,
		}
	}

	switch body.Status {
	case "success":
		var articles []models.Article
		if len(body.Results) > 0 {
			if err := json.Unmarshal(body.Results, &articles); err != nil {
				return nil, &source.Error{
					Kind:    source.KindTransport,
					Message: "Invalid JSON response: " + err.Error(),
					Err:     err,
				}
			}
		}
		if len(articles) == 0 {
			return nil, &source.Error{
				Kind:    source.KindEmptyResult,
				Message: "No news articles found for the given search criteria. Try a different topic or country.",
			}
		}
		c.log.Info().Int("count", len(articles)).Msg("Fetched news articles")
		return articles, nil

	case "error":
		message := "Unknown API error"
		var apiErr apiError
		if err := json.Unmarshal(body.Results, &apiErr); err == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		return nil, &source.Error{
			Kind:    source.KindUpstream,
			Message: "NewsData.io API error: " + message,
		}

	default:
		return nil, &source.Error{
			Kind:    source.KindUpstream,
			Message: "Unexpected API response format",
		}
	}
}

// Ensure Client implements source.ArticleSource
var _ source.ArticleSource = (*Client)(nil)
