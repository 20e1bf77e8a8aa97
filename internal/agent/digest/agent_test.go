package digest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	digestfmt "github.com/newsdigest-agent/internal/digest"
	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/pkg/logger"
)

// fakeSource returns canned articles or a canned error
type fakeSource struct {
	articles []models.Article
	err      error
}

func (f *fakeSource) Name() string { return "fake" }
func (f *fakeSource) Type() string { return "fake" }
func (f *fakeSource) Fetch(ctx context.Context, q source.Query) ([]models.Article, error) {
	return f.articles, f.err
}

// fakeSender records sent messages and optionally fails
type fakeSender struct {
	sent []string
	to   []string
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.to = append(f.to, to)
	f.sent = append(f.sent, body)
	return "SM1", nil
}

func newTestAgent(src source.ArticleSource, sender MessageSender) *Agent {
	resolve := func(cfg *models.DigestConfig) source.ArticleSource { return src }
	return NewAgent(resolve, digestfmt.NewFormatter(), sender, logger.Nop())
}

func testConfig() *models.DigestConfig {
	return &models.DigestConfig{
		ID:           1,
		Topic:        "world news",
		Recipient:    "whatsapp:+1234567890",
		Country:      "us",
		Language:     "en",
		ArticleCount: 3,
	}
}

func TestRunSuccess(t *testing.T) {
	sender := &fakeSender{}
	agent := newTestAgent(&fakeSource{articles: []models.Article{{Title: "T"}}}, sender)

	out := agent.Run(context.Background(), testConfig(), 3, false)

	assert.Equal(t, models.StatusSuccess, out.Status)
	assert.True(t, out.Delivered)
	assert.Contains(t, out.Message, "T")
	assert.Equal(t, []string{"whatsapp:+1234567890"}, sender.to)
}

func TestRunEmptyResultIsWarning(t *testing.T) {
	src := &fakeSource{err: &source.Error{
		Kind:    source.KindEmptyResult,
		Message: "No news articles found for the given search criteria. Try a different topic or country.",
	}}
	sender := &fakeSender{}
	agent := newTestAgent(src, sender)

	out := agent.Run(context.Background(), testConfig(), 3, false)

	// The fallback message was still delivered, so this is a soft failure
	assert.Equal(t, models.StatusWarning, out.Status)
	assert.True(t, out.Delivered)
	assert.Contains(t, out.Message, "search criteria")
	assert.Len(t, sender.sent, 1)
}

func TestRunCredentialProblemIsError(t *testing.T) {
	tests := []struct {
		name string
		kind source.Kind
	}{
		{"missing key", source.KindCredentialMissing},
		{"rejected key", source.KindCredentialRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{err: &source.Error{Kind: tt.kind, Message: "Missing API key"}}
			sender := &fakeSender{}
			agent := newTestAgent(src, sender)

			out := agent.Run(context.Background(), testConfig(), 3, false)

			// Credential problems stay errors even though the fallback
			// message itself went through
			assert.Equal(t, models.StatusError, out.Status)
			assert.True(t, out.Delivered)
		})
	}
}

func TestRunDispatchFailureIsError(t *testing.T) {
	sender := &fakeSender{err: errors.New("twilio error 21211")}
	agent := newTestAgent(&fakeSource{articles: []models.Article{{Title: "T"}}}, sender)

	out := agent.Run(context.Background(), testConfig(), 3, false)

	assert.Equal(t, models.StatusError, out.Status)
	assert.False(t, out.Delivered)
}

func TestRunTestMarksOutcome(t *testing.T) {
	sender := &fakeSender{}
	agent := newTestAgent(&fakeSource{articles: []models.Article{{Title: "T1"}, {Title: "T2"}}}, sender)

	out := agent.Run(context.Background(), testConfig(), 1, true)

	assert.Equal(t, models.StatusTest, out.Status)
	assert.True(t, strings.HasPrefix(out.Message, TestMarker))
	// Test sends are limited to one article
	assert.Contains(t, out.Message, "T1")
	assert.NotContains(t, out.Message, "T2")
}

func TestRunTestStatusEvenOnFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("unreachable")}
	agent := newTestAgent(&fakeSource{articles: []models.Article{{Title: "T"}}}, sender)

	out := agent.Run(context.Background(), testConfig(), 1, true)

	assert.Equal(t, models.StatusTest, out.Status)
	assert.False(t, out.Delivered)
}
