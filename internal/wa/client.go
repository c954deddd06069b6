package wa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"packbot/internal/metrics"
)

// Messenger sends outbound WhatsApp messages.
type Messenger interface {
	SendText(ctx context.Context, to, body string) ([]string, error)
	SendMedia(ctx context.Context, to, body, mediaURL string) (string, error)
	SendTemplate(ctx context.Context, to, contentSID string, variables map[string]string) (string, error)
}

// Config holds Twilio credentials and sender identity.
type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Client wraps the Twilio REST client for WhatsApp sends.
type Client struct {
	api     *twilio.RestClient
	logger  *slog.Logger
	metrics *metrics.Metrics
	from    string
}

// New creates a Twilio-backed messenger.
func New(cfg Config, logger *slog.Logger, metricRegistry *metrics.Metrics) *Client {
	api := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{
		api:     api,
		logger:  logger.With("component", "wa"),
		metrics: metricRegistry,
		from:    whatsappAddr(cfg.FromNumber),
	}
}

// SendText delivers a text body, splitting long bodies on paragraph
// boundaries into sequential messages. It returns every provider message
// sid in send order.
func (c *Client) SendText(ctx context.Context, to, body string) ([]string, error) {
	chunks := SplitBody(body)
	if len(chunks) == 0 {
		return nil, nil
	}

	sids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		params := &openapi.CreateMessageParams{}
		params.SetTo(whatsappAddr(to))
		params.SetFrom(c.from)
		params.SetBody(chunk)

		res, err := c.api.Api.CreateMessage(params)
		if err != nil {
			return sids, fmt.Errorf("send text: %w", err)
		}
		if res.Sid != nil {
			sids = append(sids, *res.Sid)
		}
		c.count("text")
	}
	return sids, nil
}

// SendMedia delivers a single media message with an optional caption.
func (c *Client) SendMedia(ctx context.Context, to, body, mediaURL string) (string, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(whatsappAddr(to))
	params.SetFrom(c.from)
	if body != "" {
		params.SetBody(body)
	}
	params.SetMediaUrl([]string{mediaURL})

	res, err := c.api.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("send media: %w", err)
	}
	c.count("media")
	if res.Sid == nil {
		return "", nil
	}
	return *res.Sid, nil
}

// SendTemplate delivers a provider-side rich template (quick replies and
// the like) by content sid with named variables.
func (c *Client) SendTemplate(ctx context.Context, to, contentSID string, variables map[string]string) (string, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(whatsappAddr(to))
	params.SetFrom(c.from)
	params.SetContentSid(contentSID)
	if len(variables) > 0 {
		vars, err := json.Marshal(variables)
		if err != nil {
			return "", fmt.Errorf("marshal template variables: %w", err)
		}
		params.SetContentVariables(string(vars))
	}

	res, err := c.api.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("send template: %w", err)
	}
	c.count("template")
	if res.Sid == nil {
		return "", nil
	}
	return *res.Sid, nil
}

func (c *Client) count(kind string) {
	if c.metrics != nil {
		c.metrics.OutboundMessages.WithLabelValues(kind).Inc()
	}
}

func whatsappAddr(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
