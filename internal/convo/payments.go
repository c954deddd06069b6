package convo

import (
	"context"
	"fmt"

	"packbot/internal/pay"
)

// HandlePaymentEvent applies a verified payment callback: flips the order
// or booking to paid, moves the session along and tells the customer.
// Replayed callbacks are acknowledged without re-notifying.
func (e *Engine) HandlePaymentEvent(ctx context.Context, event pay.Event) error {
	switch event.Entity {
	case "order":
		return e.handleOrderPaid(ctx, event)
	case "booking":
		return e.handleBookingPaid(ctx, event)
	default:
		return fmt.Errorf("unknown payment entity %q", event.Entity)
	}
}

func (e *Engine) handleOrderPaid(ctx context.Context, event pay.Event) error {
	applied, err := e.store.MarkOrderPaid(ctx, event.EntityRef, event.PaymentID)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	e.countPayment("order", applied)
	if !applied {
		e.logger.Info("ignoring replayed order payment", "ref", event.EntityRef)
		return nil
	}

	order, err := e.store.GetOrderByRef(ctx, event.EntityRef)
	if err != nil {
		return fmt.Errorf("load paid order: %w", err)
	}

	if err := e.store.SetSessionStage(ctx, order.Phone, StageMenu); err != nil {
		e.logger.Warn("failed resetting session after order payment", "phone", order.Phone, "error", err)
	}
	e.send(ctx, order.Phone, reply{Body: fmt.Sprintf("Payment received! Order *%s* (₹%d) is confirmed and moving to production. We will share dispatch details here.", order.OrderRef, order.TotalAmount)})
	e.notifyAdmins(ctx, fmt.Sprintf("Order %s paid by %s (₹%d).", order.OrderRef, order.Phone, order.TotalAmount))
	return nil
}

func (e *Engine) handleBookingPaid(ctx context.Context, event pay.Event) error {
	applied, err := e.store.MarkBookingConfirmed(ctx, event.EntityRef, event.PaymentID)
	if err != nil {
		return fmt.Errorf("mark booking confirmed: %w", err)
	}
	e.countPayment("booking", applied)
	if !applied {
		e.logger.Info("ignoring replayed booking payment", "ref", event.EntityRef)
		return nil
	}

	b, err := e.store.GetBookingByRef(ctx, event.EntityRef)
	if err != nil {
		return fmt.Errorf("load confirmed booking: %w", err)
	}

	if err := e.store.SetSessionStage(ctx, b.Phone, StageBookingConfirmed); err != nil {
		e.logger.Warn("failed advancing session after booking payment", "phone", b.Phone, "error", err)
	}
	e.send(ctx, b.Phone, reply{Body: fmt.Sprintf("Payment received! Booking *%s* is confirmed: %s, %s, court %d for %d player(s).",
		b.BookingRef, b.Date.Format("Mon, 02 Jan"), b.TimeSlot, b.Court, b.PlayerCount)})
	return nil
}

func (e *Engine) countPayment(entity string, applied bool) {
	if e.metrics == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "replayed"
	}
	e.metrics.PaymentCallbacks.WithLabelValues(entity, result).Inc()
}

var _ pay.Processor = (*Engine)(nil)
