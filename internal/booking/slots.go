package booking

import (
	"fmt"
	"time"

	"packbot/internal/domain"
)

// CourtCapacity is the maximum player count per (date, slot, court) across
// confirmed and pending reservations.
const CourtCapacity = 4

// AdvanceBuffer is the minimum lead time before a slot starts.
const AdvanceBuffer = 2 * time.Hour

// Courts available per slot.
const CourtCount = 2

// Slots lists the bookable time slots in display order.
var Slots = []string{
	"06:00-07:00",
	"07:00-08:00",
	"08:00-09:00",
	"17:00-18:00",
	"18:00-19:00",
	"19:00-20:00",
	"20:00-21:00",
}

// PricePerPlayer is the per-player slot price in whole rupees.
const PricePerPlayer int64 = 200

// SlotStart resolves a slot label on a date to its starting time in loc.
func SlotStart(date time.Time, slot string, loc *time.Location) (time.Time, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(slot, "%d:%d-", &hh, &mm); err != nil {
		return time.Time{}, fmt.Errorf("%w: bad slot %q", domain.ErrValidation, slot)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hh, mm, 0, 0, loc), nil
}

// Bookable reports whether the slot on the date is still inside the advance
// booking buffer at the reference time now.
func Bookable(date time.Time, slot string, now time.Time) bool {
	start, err := SlotStart(date, slot, now.Location())
	if err != nil {
		return false
	}
	return start.Sub(now) >= AdvanceBuffer
}

// Remaining returns the player capacity left given the occupied count.
func Remaining(occupied int) int {
	left := CourtCapacity - occupied
	if left < 0 {
		return 0
	}
	return left
}

// CanBook checks whether players fit the remaining capacity. The error
// names the exact shortfall so the user sees how many seats are left.
func CanBook(occupied, players int) error {
	if players <= 0 {
		return fmt.Errorf("%w: player count must be positive", domain.ErrValidation)
	}
	left := Remaining(occupied)
	if players > left {
		return fmt.Errorf("%w: only %d spot(s) left on this court", domain.ErrCapacity, left)
	}
	return nil
}

// Amount computes the slot price for a player count.
func Amount(players int) int64 {
	return PricePerPlayer * int64(players)
}
