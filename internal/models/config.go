package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies which article source drives the digest
type Provider string

const (
	ProviderNewsData Provider = "newsdata"
	ProviderRSS      Provider = "rss"
)

// Default digest settings
const (
	DefaultTopic        = "world news"
	DefaultCountry      = "us"
	DefaultLanguage     = "en"
	DefaultIntervalMins = 60
	DefaultArticleCount = 3

	// MinIntervalMins is the floor for the delivery interval. Submitted
	// values below it are clamped up, not rejected.
	MinIntervalMins = 15

	// RecipientPrefix is the Twilio WhatsApp addressing scheme
	RecipientPrefix = "whatsapp:+"
)

// DigestConfig holds the settings that drive the scheduled digest.
// At most one row has Active=true at any time; the scheduler only ever
// reads the active one.
type DigestConfig struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Topic           string    `gorm:"not null;default:'world news'" json:"topic"`
	Recipient       string    `gorm:"not null" json:"recipient"` // Format: "whatsapp:+1234567890"
	Country         string    `gorm:"not null;default:'us'" json:"country"`
	Language        string    `gorm:"not null;default:'en'" json:"language"`
	IntervalMinutes int       `gorm:"not null;default:60" json:"interval_minutes"`
	ArticleCount    int       `gorm:"not null;default:3" json:"article_count"`
	Provider        Provider  `gorm:"not null;default:'newsdata'" json:"provider"`
	FeedURL         string    `json:"feed_url"` // Only used by the rss provider
	Active          bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Validate checks the fields an operator can get wrong. Interval is not
// validated here: out-of-range values are normalized, never refused.
func (c *DigestConfig) Validate() error {
	if !strings.HasPrefix(c.Recipient, RecipientPrefix) {
		return fmt.Errorf("recipient must start with %q, e.g. whatsapp:+1234567890", RecipientPrefix)
	}
	switch c.Provider {
	case "", ProviderNewsData:
	case ProviderRSS:
		if c.FeedURL == "" {
			return fmt.Errorf("feed_url is required for the rss provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

// Normalize fills defaults and clamps out-of-range values in place
func (c *DigestConfig) Normalize() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.Country == "" {
		c.Country = DefaultCountry
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Provider == "" {
		c.Provider = ProviderNewsData
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = DefaultIntervalMins
	}
	if c.IntervalMinutes < MinIntervalMins {
		c.IntervalMinutes = MinIntervalMins
	}
	if c.ArticleCount < 1 {
		c.ArticleCount = DefaultArticleCount
	}
}

// Interval returns the delivery interval as a duration
func (c *DigestConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}
