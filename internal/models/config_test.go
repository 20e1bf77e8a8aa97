package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestConfigNormalize(t *testing.T) {
	tests := []struct {
		name         string
		in           DigestConfig
		wantInterval int
		wantArticles int
	}{
		{
			name:         "zero values get defaults",
			in:           DigestConfig{},
			wantInterval: DefaultIntervalMins,
			wantArticles: DefaultArticleCount,
		},
		{
			name:         "interval below floor is clamped up",
			in:           DigestConfig{IntervalMinutes: 5, ArticleCount: 2},
			wantInterval: MinIntervalMins,
			wantArticles: 2,
		},
		{
			name:         "interval at floor is kept",
			in:           DigestConfig{IntervalMinutes: 15, ArticleCount: 1},
			wantInterval: 15,
			wantArticles: 1,
		},
		{
			name:         "negative article count falls back to default",
			in:           DigestConfig{IntervalMinutes: 60, ArticleCount: -3},
			wantInterval: 60,
			wantArticles: DefaultArticleCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			cfg.Normalize()
			assert.Equal(t, tt.wantInterval, cfg.IntervalMinutes)
			assert.Equal(t, tt.wantArticles, cfg.ArticleCount)
		})
	}
}

func TestDigestConfigNormalizeDefaults(t *testing.T) {
	cfg := DigestConfig{}
	cfg.Normalize()

	assert.Equal(t, DefaultTopic, cfg.Topic)
	assert.Equal(t, DefaultCountry, cfg.Country)
	assert.Equal(t, DefaultLanguage, cfg.Language)
	assert.Equal(t, ProviderNewsData, cfg.Provider)
}

func TestDigestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DigestConfig
		wantErr string
	}{
		{
			name: "valid whatsapp recipient",
			cfg:  DigestConfig{Recipient: "whatsapp:+1234567890"},
		},
		{
			name:    "bare phone number refused",
			cfg:     DigestConfig{Recipient: "+1234567890"},
			wantErr: "whatsapp:+",
		},
		{
			name:    "empty recipient refused",
			cfg:     DigestConfig{},
			wantErr: "whatsapp:+",
		},
		{
			name:    "rss provider without feed url refused",
			cfg:     DigestConfig{Recipient: "whatsapp:+1234567890", Provider: ProviderRSS},
			wantErr: "feed_url",
		},
		{
			name: "rss provider with feed url",
			cfg: DigestConfig{
				Recipient: "whatsapp:+1234567890",
				Provider:  ProviderRSS,
				FeedURL:   "https://example.com/feed.xml",
			},
		},
		{
			name:    "unknown provider refused",
			cfg:     DigestConfig{Recipient: "whatsapp:+1234567890", Provider: "carrier-pigeon"},
			wantErr: "unknown provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewDeliveryLogTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 600; i++ {
		long += "x"
	}

	entry := NewDeliveryLog(1, long, StatusSuccess)
	assert.Len(t, entry.Message, MaxLogMessageLen)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestNewDeliveryLogKeepsShortMessage(t *testing.T) {
	entry := NewDeliveryLog(2, "📰 short digest", StatusTest)
	assert.Equal(t, "📰 short digest", entry.Message)
	assert.Equal(t, uint(2), entry.ConfigID)
}
