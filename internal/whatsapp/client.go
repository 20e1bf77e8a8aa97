package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

const defaultBaseURL = "https://api.twilio.com"

// Client sends WhatsApp messages through the Twilio Messages API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials func() config.Credentials // read at call time
	limiter     *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a Twilio WhatsApp client. Credentials are read on
// every send so rotated tokens are picked up without a restart.
func NewClient(credentials func() config.Credentials, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		credentials: credentials,
		limiter:     limiter,
		log:         log.WithComponent("whatsapp"),
	}
}

// message is the subset of the Twilio message resource we read back
type message struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// apiError is Twilio's error payload
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send delivers body to the given WhatsApp number and returns the
// provider message SID.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	creds := c.credentials()
	if creds.TwilioSID == "" || creds.TwilioAuthToken == "" || creds.TwilioFrom == "" {
		return "", fmt.Errorf("twilio credentials not configured")
	}

	if err := c.limiter.Wait(ctx, ratelimit.LimiterTwilio); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	form := url.Values{}
	form.Set("From", creds.TwilioFrom)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, creds.TwilioSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(creds.TwilioSID, creds.TwilioAuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debug().Str("to", to).Int("body_length", len(body)).Msg("Sending WhatsApp message")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		var twErr apiError
		if err := json.Unmarshal(data, &twErr); err == nil && twErr.Message != "" {
			return "", fmt.Errorf("twilio error %d: %s", twErr.Code, twErr.Message)
		}
		return "", fmt.Errorf("twilio error (status %d): %s", resp.StatusCode, string(data))
	}

	var msg message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.log.Info().Str("sid", msg.SID).Msg("Message sent successfully")
	return msg.SID, nil
}
