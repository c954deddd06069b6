package wa

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"packbot/internal/metrics"
)

// InboundMessage is a parsed provider webhook delivery.
type InboundMessage struct {
	From       string
	Body       string
	NumMedia   int
	MediaURLs  []string
	MediaTypes []string
	MessageSID string
}

// Processor handles inbound messages. It must never block the webhook
// response on slow generation work.
type Processor interface {
	ProcessMessage(ctx context.Context, msg InboundMessage)
}

// StatusStore updates delivery status by provider message id.
type StatusStore interface {
	UpdateDeliveryStatus(ctx context.Context, providerMessageID, status string) error
}

// WebhookHandler parses provider webhooks. It always acknowledges with
// HTTP 200: errors are swallowed and reported via an outbound message.
type WebhookHandler struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	processor Processor
}

// NewWebhookHandler creates the inbound message webhook handler.
func NewWebhookHandler(logger *slog.Logger, metricRegistry *metrics.Metrics, processor Processor) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger.With("component", "wa_webhook"),
		metrics:   metricRegistry,
		processor: processor,
	}
}

// ServeHTTP satisfies http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("bad webhook form", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	msg := parseInbound(r)
	if msg.From == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.processor != nil {
		// The provider expects a fast acknowledgment; processing continues
		// detached from the request context.
		go h.processor.ProcessMessage(context.WithoutCancel(r.Context()), msg)
	}

	w.WriteHeader(http.StatusOK)
}

func parseInbound(r *http.Request) InboundMessage {
	msg := InboundMessage{
		From:       stripWhatsAppPrefix(r.FormValue("From")),
		Body:       r.FormValue("Body"),
		MessageSID: r.FormValue("MessageSid"),
	}
	if n, err := strconv.Atoi(r.FormValue("NumMedia")); err == nil && n > 0 {
		msg.NumMedia = n
		for i := 0; i < n; i++ {
			msg.MediaURLs = append(msg.MediaURLs, r.FormValue(fmt.Sprintf("MediaUrl%d", i)))
			msg.MediaTypes = append(msg.MediaTypes, r.FormValue(fmt.Sprintf("MediaContentType%d", i)))
		}
	}
	return msg
}

// StatusHandler records delivery-status callbacks onto chat history rows.
type StatusHandler struct {
	logger *slog.Logger
	store  StatusStore
}

// NewStatusHandler creates the delivery-status callback handler.
func NewStatusHandler(logger *slog.Logger, store StatusStore) *StatusHandler {
	return &StatusHandler{
		logger: logger.With("component", "wa_status"),
		store:  store,
	}
}

// ServeHTTP satisfies http.Handler. Always 200.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		sid := r.FormValue("MessageSid")
		status := r.FormValue("MessageStatus")
		if sid != "" && status != "" {
			if err := h.store.UpdateDeliveryStatus(r.Context(), sid, status); err != nil {
				h.logger.Warn("failed updating delivery status", "sid", sid, "error", err)
			}
		}
	}
	w.WriteHeader(http.StatusOK)
}

func stripWhatsAppPrefix(addr string) string {
	return strings.TrimPrefix(strings.TrimSpace(addr), "whatsapp:")
}
