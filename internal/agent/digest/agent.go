package digest

import (
	"context"
	"errors"

	"github.com/newsdigest-agent/internal/digest"
	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/pkg/logger"
)

// TestMarker prefixes one-off test sends
const TestMarker = "🧪 TEST MESSAGE 🧪\n\n"

// MessageSender delivers one message to one recipient
type MessageSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// SourceResolver picks the article source for a configuration. The
// scheduler re-reads the configuration every cycle, so the provider can
// change between cycles without a restart.
type SourceResolver func(cfg *models.DigestConfig) source.ArticleSource

// Agent runs one digest cycle: fetch, format, dispatch, classify.
// No failure escapes Run; every outcome is folded into the returned
// status and message.
type Agent struct {
	resolve   SourceResolver
	formatter *digest.Formatter
	sender    MessageSender
	log       *logger.Logger
}

// NewAgent creates a digest cycle agent
func NewAgent(resolve SourceResolver, formatter *digest.Formatter, sender MessageSender, log *logger.Logger) *Agent {
	return &Agent{
		resolve:   resolve,
		formatter: formatter,
		sender:    sender,
		log:       log.WithComponent("digest"),
	}
}

// Outcome is the classified result of one cycle
type Outcome struct {
	Status    models.LogStatus
	Message   string
	Delivered bool
}

// Run executes one fetch→format→dispatch pass for the given
// configuration. limit caps the article count; test prefixes the
// message with the test marker and records the outcome as a test send.
func (a *Agent) Run(ctx context.Context, cfg *models.DigestConfig, limit int, test bool) Outcome {
	src := a.resolve(cfg)
	log := a.log.WithConfigID(cfg.ID)

	articles, fetchErr := src.Fetch(ctx, source.Query{
		Topic:    cfg.Topic,
		Country:  cfg.Country,
		Language: cfg.Language,
	})

	message := a.formatter.Format(articles, fetchErr, limit)
	if test {
		message = TestMarker + message
	}

	// Found articles and delivered → success; soft failure delivered →
	// warning; credential problems and dispatch failures → error.
	status := models.StatusSuccess
	var serr *source.Error
	switch {
	case fetchErr == nil:
		log.Info().Int("articles", len(articles)).Msg("Found news articles")
	case errors.As(fetchErr, &serr) && serr.CredentialProblem():
		status = models.StatusError
		log.Error().Err(fetchErr).Msg("API key error")
	default:
		status = models.StatusWarning
		log.Warn().Err(fetchErr).Msg("No news found")
	}

	delivered := true
	if _, err := a.sender.Send(ctx, cfg.Recipient, message); err != nil {
		delivered = false
		status = models.StatusError
		log.Error().Err(err).Msg("Failed to send WhatsApp message")
	}

	if test {
		status = models.StatusTest
	}

	return Outcome{
		Status:    status,
		Message:   message,
		Delivered: delivered,
	}
}
