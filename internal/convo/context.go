package convo

import (
	"strconv"
)

// Session context keys. The context blob round-trips through JSONB, so
// numbers come back as float64 and lists as []any; the accessors below
// normalise that.
const (
	ctxPendingQuestion = "pending_question"
	ctxResumeStage     = "resume_stage"

	ctxTopOptions     = "top_options"
	ctxMidOptions     = "mid_options"
	ctxProductOptions = "product_options"
	ctxProductID      = "product_id"
	ctxQuantity       = "quantity"

	ctxName    = "name"
	ctxAddress = "address"
	ctxPincode = "pincode"
	ctxCity    = "city"

	ctxOrderProduct  = "order_product"
	ctxOrderSize     = "order_size"
	ctxOrderPrinting = "order_printing"
	ctxQuotedRate    = "quoted_rate"
	ctxImageURL      = "image_url"

	ctxOrderRef   = "order_ref"
	ctxBookingRef = "booking_ref"

	ctxBookingDate = "booking_date"
	ctxDateOptions = "date_options"
	ctxPlayers     = "players"
	ctxSlot        = "slot"
	ctxSlotOptions = "slot_options"
)

func ctxString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func ctxInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func ctxFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

func ctxStringSlice(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// mergeOrderContext copies recognised order fields from a parsed model
// context block into the session context. Unknown keys are dropped.
func mergeOrderContext(sessionCtx, fields map[string]any) {
	for _, key := range []string{ctxOrderProduct, ctxOrderSize, ctxOrderPrinting, ctxQuantity, ctxQuotedRate, ctxName, ctxCity, ctxPincode} {
		if v, ok := fields[key]; ok && v != nil {
			sessionCtx[key] = v
		}
	}
	// The model writes shorthand keys too.
	if v, ok := fields["product"]; ok && v != nil {
		sessionCtx[ctxOrderProduct] = v
	}
	if v, ok := fields["size"]; ok && v != nil {
		sessionCtx[ctxOrderSize] = v
	}
	if v, ok := fields["printing"]; ok && v != nil {
		sessionCtx[ctxOrderPrinting] = v
	}
}
