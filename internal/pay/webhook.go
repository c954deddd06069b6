package pay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"packbot/internal/domain"
	"packbot/internal/metrics"
)

// Event is a verified payment callback.
type Event struct {
	EntityRef string
	PaymentID string
	// Entity is "order" or "booking", inferred from the ref prefix.
	Entity string
}

// Processor applies the side effects of a verified payment.
type Processor interface {
	HandlePaymentEvent(ctx context.Context, event Event) error
}

// WebhookHandler verifies payment callback signatures and forwards events.
type WebhookHandler struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	secret    string
	processor Processor
}

// NewWebhookHandler creates a payment webhook handler.
func NewWebhookHandler(logger *slog.Logger, metricRegistry *metrics.Metrics, secret string, processor Processor) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger.With("component", "pay_webhook"),
		metrics:   metricRegistry,
		secret:    secret,
		processor: processor,
	}
}

type callbackPayload struct {
	OrderID   string `json:"order_id"`
	BookingID string `json:"booking_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// ServeHTTP satisfies http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	event := Event{PaymentID: payload.PaymentID}
	switch {
	case payload.OrderID != "":
		event.Entity = "order"
		event.EntityRef = payload.OrderID
	case payload.BookingID != "":
		event.Entity = "booking"
		event.EntityRef = payload.BookingID
	default:
		http.Error(w, "missing entity id", http.StatusBadRequest)
		return
	}

	if err := Verify(h.secret, event.EntityRef, event.PaymentID, strings.TrimSpace(payload.Signature)); err != nil {
		h.logger.Warn("payment signature rejected", "ref", event.EntityRef, "error", err)
		h.count(event.Entity, "rejected")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	if h.processor != nil {
		if err := h.processor.HandlePaymentEvent(r.Context(), event); err != nil {
			if errors.Is(err, domain.ErrPaymentVerification) {
				h.count(event.Entity, "rejected")
				http.Error(w, "invalid payment", http.StatusBadRequest)
				return
			}
			h.logger.Error("failed processing payment event", "ref", event.EntityRef, "error", err)
			h.count(event.Entity, "error")
			http.Error(w, "failed to process", http.StatusInternalServerError)
			return
		}
	}

	h.count(event.Entity, "ok")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *WebhookHandler) count(entity, result string) {
	if h.metrics != nil {
		h.metrics.PaymentCallbacks.WithLabelValues(entity, result).Inc()
	}
}
