package convo

import (
	"context"
	"fmt"
	"time"

	"packbot/internal/booking"
	"packbot/internal/repo"
)

const bookingDateDays = 5

const dateLayout = "2006-01-02"

func (e *Engine) startBooking(sess *repo.Session) []reply {
	options := make([]string, 0, bookingDateDays)
	labels := make([]string, 0, bookingDateDays)
	now := time.Now()
	for i := 0; i < bookingDateDays; i++ {
		d := now.AddDate(0, 0, i)
		options = append(options, d.Format(dateLayout))
		labels = append(labels, d.Format("Mon, 02 Jan"))
	}
	sess.Context[ctxDateOptions] = options
	sess.Stage = StageChooseDate
	return []reply{{Body: numberedList("Book a demo slot at our experience centre. Which day?", labels, "Reply with a number.")}}
}

func (e *Engine) handleChooseDate(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	date, ok := pickOption(sess.Context, ctxDateOptions, cls)
	if !ok {
		return []reply{{Body: "Please reply with one of the listed numbers."}}
	}
	sess.Context[ctxBookingDate] = date
	sess.Stage = StageChoosePlayers
	return []reply{{Body: fmt.Sprintf("How many people are coming? (1 to %d)", booking.CourtCapacity)}}
}

func (e *Engine) handleChoosePlayers(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	if cls.Kind != KindSelection || cls.Selection < 1 || cls.Selection > booking.CourtCapacity {
		return []reply{{Body: fmt.Sprintf("Please send a number between 1 and %d.", booking.CourtCapacity)}}
	}
	sess.Context[ctxPlayers] = cls.Selection

	date, err := time.ParseInLocation(dateLayout, ctxString(sess.Context, ctxBookingDate), time.Local)
	if err != nil {
		resetSession(sess)
		return []reply{{Body: "Let's start over. " + e.menuText()}}
	}

	now := time.Now()
	var open []string
	for _, slot := range booking.Slots {
		if booking.Bookable(date, slot, now) {
			open = append(open, slot)
		}
	}
	if len(open) == 0 {
		sess.Stage = StageChooseDate
		return []reply{{Body: "No slots left on that day (we need at least 2 hours notice). Please pick another day, or type *menu*."}}
	}

	sess.Context[ctxSlotOptions] = open
	sess.Stage = StageChooseSlot
	return []reply{{Body: numberedList("Open slots:", open, "Reply with a number.")}}
}

func (e *Engine) handleChooseSlot(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	slot, ok := pickOption(sess.Context, ctxSlotOptions, cls)
	if !ok {
		return []reply{{Body: "Please reply with one of the listed numbers."}}
	}
	sess.Context[ctxSlot] = slot

	date, _ := time.ParseInLocation(dateLayout, ctxString(sess.Context, ctxBookingDate), time.Local)
	players := ctxInt(sess.Context, ctxPlayers)

	lines := make([]string, 0, booking.CourtCount)
	for court := 1; court <= booking.CourtCount; court++ {
		occupied, err := e.store.CountPlayers(ctx, date, slot, court)
		if err != nil {
			e.logger.Error("failed counting players", "slot", slot, "court", court, "error", err)
			e.countError("booking")
			return []reply{{Body: apologyReply}}
		}
		left := booking.Remaining(occupied)
		if left >= players {
			lines = append(lines, fmt.Sprintf("Court %d (%d spot(s) left)", court, left))
		}
	}
	if len(lines) == 0 {
		sess.Stage = StageChooseSlot
		return []reply{{Body: "That slot is full for your group size. Please pick another slot:\n\n" + numberedList("Open slots:", ctxStringSlice(sess.Context, ctxSlotOptions), "")}}
	}

	sess.Stage = StageChooseCourt
	return []reply{{Body: numberedList("Which court?", lines, "Reply with a number.")}}
}

func (e *Engine) handleChooseCourt(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	if cls.Kind != KindSelection || cls.Selection < 1 || cls.Selection > booking.CourtCount {
		return []reply{{Body: fmt.Sprintf("Please send a court number between 1 and %d.", booking.CourtCount)}}
	}
	court := cls.Selection

	date, err := time.ParseInLocation(dateLayout, ctxString(sess.Context, ctxBookingDate), time.Local)
	if err != nil {
		resetSession(sess)
		return []reply{{Body: "Let's start over. " + e.menuText()}}
	}
	slot := ctxString(sess.Context, ctxSlot)
	players := ctxInt(sess.Context, ctxPlayers)

	// Capacity is re-checked at booking time: someone may have grabbed the
	// spots between the slot prompt and this confirmation.
	occupied, err := e.store.CountPlayers(ctx, date, slot, court)
	if err != nil {
		e.logger.Error("failed counting players", "slot", slot, "court", court, "error", err)
		e.countError("booking")
		return []reply{{Body: apologyReply}}
	}
	if err := booking.CanBook(occupied, players); err != nil {
		return []reply{{Body: fmt.Sprintf("Sorry, %v. Please pick another court or slot, or type *menu*.", err)}}
	}

	expires := time.Now().Add(e.cfg.BookingTTL)
	b := repo.Booking{
		BookingRef:  newRef("BKG"),
		Phone:       sess.Phone,
		Date:        date,
		TimeSlot:    slot,
		Court:       court,
		DurationMin: 60,
		PlayerCount: players,
		Amount:      booking.Amount(players),
		Status:      repo.BookingStatusPendingPayment,
		ExpiresAt:   &expires,
	}
	created, err := e.store.InsertBooking(ctx, b)
	if err != nil {
		e.logger.Error("failed inserting booking", "phone", sess.Phone, "error", err)
		e.countError("booking")
		return []reply{{Body: apologyReply}}
	}

	sess.Context = map[string]any{ctxBookingRef: created.BookingRef}
	sess.Stage = StagePaymentPending

	e.sendPaymentPrompt(ctx, sess.Phone, created.BookingRef, created.Amount)

	return []reply{{Body: fmt.Sprintf("Slot held! Booking *%s*: %s, %s, court %d for %d player(s). Amount due: ₹%d.\n\nPlease pay within %s or the hold is released.",
		created.BookingRef, date.Format("Mon, 02 Jan"), slot, court, players, created.Amount, formatTTL(e.cfg.BookingTTL))}}
}

func (e *Engine) handlePaymentPending(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	if ref := ctxString(sess.Context, ctxBookingRef); ref != "" {
		b, err := e.store.GetBookingByRef(ctx, ref)
		if err == nil && b != nil {
			switch b.Status {
			case repo.BookingStatusConfirmed:
				sess.Stage = StageBookingConfirmed
				return []reply{{Body: fmt.Sprintf("Booking *%s* is confirmed. See you there!", ref)}}
			case repo.BookingStatusExpired, repo.BookingStatusCancelled:
				resetSession(sess)
				return []reply{{Body: fmt.Sprintf("Booking *%s* was not paid in time and the hold was released. %s", ref, e.menuText())}}
			}
		}
		return []reply{{Body: fmt.Sprintf("We are still waiting for the payment on booking *%s*. Type *menu* to start something else.", ref)}}
	}

	if ref := ctxString(sess.Context, ctxOrderRef); ref != "" {
		o, err := e.store.GetOrderByRef(ctx, ref)
		if err == nil && o != nil {
			switch o.Status {
			case repo.OrderStatusPaid:
				resetSession(sess)
				return []reply{{Body: fmt.Sprintf("Order *%s* is paid and in production. %s", ref, e.menuText())}}
			case repo.OrderStatusExpired, repo.OrderStatusCancelled, repo.OrderStatusFailed:
				resetSession(sess)
				return []reply{{Body: fmt.Sprintf("Order *%s* is no longer active. %s", ref, e.menuText())}}
			}
		}
		return []reply{{Body: fmt.Sprintf("We are still waiting for the payment on order *%s*. Type *menu* to start something else.", ref)}}
	}

	resetSession(sess)
	return []reply{{Body: e.menuText()}}
}
