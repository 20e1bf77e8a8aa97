package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <item>
      <title>Go 1.25 released</title>
      <link>https://example.com/go</link>
      <description>&lt;p&gt;The Go team has released &lt;b&gt;Go 1.25&lt;/b&gt; today.&lt;/p&gt;</description>
      <pubDate>Fri, 14 Mar 2025 08:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Local election results</title>
      <link>https://example.com/election</link>
      <description>Results from the local election.</description>
      <pubDate>Fri, 14 Mar 2025 07:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func testLimiter() *ratelimit.MultiLimiter {
	m := ratelimit.NewMultiLimiter()
	m.AddLimiter(ratelimit.LimiterRSS, 1000, 1000)
	return m
}

func testSource(t *testing.T, body string) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, testLimiter(), logger.Nop())
}

func TestFetchFiltersByTopic(t *testing.T) {
	s := testSource(t, testFeed)

	articles, err := s.Fetch(context.Background(), source.Query{Topic: "go released"})

	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Go 1.25 released", articles[0].Title)
	assert.Equal(t, "Example News", articles[0].SourceID)
	assert.Equal(t, "2025-03-14 08:00:00", articles[0].PubDate)
	// HTML stripped from the description
	assert.Equal(t, "The Go team has released Go 1.25 today.", articles[0].Description)
}

func TestFetchEmptyTopicMatchesAll(t *testing.T) {
	s := testSource(t, testFeed)

	articles, err := s.Fetch(context.Background(), source.Query{})

	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestFetchNoMatchIsSoftFailure(t *testing.T) {
	s := testSource(t, testFeed)

	articles, err := s.Fetch(context.Background(), source.Query{Topic: "cricket"})

	assert.Nil(t, articles)
	var serr *source.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, source.KindEmptyResult, serr.Kind)
	assert.Contains(t, serr.Message, "search criteria")
}

func TestFetchParseFailureIsTransport(t *testing.T) {
	s := testSource(t, "not xml at all")

	_, err := s.Fetch(context.Background(), source.Query{Topic: "go"})

	var serr *source.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, source.KindTransport, serr.Kind)
	assert.True(t, serr.Retryable())
}

func TestFetchMissingFeedURL(t *testing.T) {
	s := New("", testLimiter(), logger.Nop())

	_, err := s.Fetch(context.Background(), source.Query{Topic: "go"})

	var serr *source.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, source.KindCredentialMissing, serr.Kind)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>hello <b>world</b></p>", "hello world"},
		{"line one<br>line two", "line one line two"},
		{"  spaced   out  ", "spaced out"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanText(tt.in))
	}
}
