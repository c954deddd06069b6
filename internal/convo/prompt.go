package convo

import (
	"fmt"
	"strings"

	"packbot/internal/repo"
)

// BuildSystemPrompt assembles the custom-solutions persona prompt: business
// scope rules, the caller's classification, accumulated order context and
// the deterministic pricing rules the model must follow verbatim.
func BuildSystemPrompt(userType *repo.UserType, sessionCtx map[string]any) string {
	var b strings.Builder

	b.WriteString(`You are the custom-solutions assistant of a packaging manufacturer on WhatsApp.
Answer only about our packaging products, printing, customisation, pricing and delivery, using the provided context.
Be concise. Never invent prices that contradict the pricing rules below.
When a product image URL appears in context and helps, include it inline as [IMAGE: <url>].
When you have gathered product, size and quantity and computed a rate, confirm the quotation and append a fenced block:
` + "```ORDER_CONTEXT\n{\"product\": ..., \"size\": ..., \"quantity\": ..., \"quoted_rate\": ..., \"quotation_ready\": true}\n```" + `
Update the same block with quotation_ready false while details are still missing.`)

	b.WriteString("\n\nCustomer classification: ")
	if userType != nil {
		b.WriteString(string(*userType))
	} else {
		b.WriteString("unclassified")
	}

	if line := orderContextLine(sessionCtx); line != "" {
		b.WriteString("\nKnown order context: ")
		b.WriteString(line)
	}

	b.WriteString(fmt.Sprintf(`

Pricing rules (deterministic, do not deviate):
- Minimum order quantity for this customer: %d pieces.
- Orders of %d pieces or more get the bulk rate: %d%% off the standard rate.
- GST: 18%% on standard packaging, 12%% on food-grade packaging, 5%% on food-grade for sweet shops.
- Totals: subtotal, then GST on the subtotal, rounded to whole rupees.`,
		MOQ(userType), BulkQuantityCutoff, BulkDiscountPercent))

	return b.String()
}

func orderContextLine(sessionCtx map[string]any) string {
	var parts []string
	if v := ctxString(sessionCtx, ctxOrderProduct); v != "" {
		parts = append(parts, "product="+v)
	}
	if v := ctxString(sessionCtx, ctxOrderSize); v != "" {
		parts = append(parts, "size="+v)
	}
	if v := ctxInt(sessionCtx, ctxQuantity); v > 0 {
		parts = append(parts, fmt.Sprintf("quantity=%d", v))
	}
	if v := ctxString(sessionCtx, ctxOrderPrinting); v != "" {
		parts = append(parts, "printing="+v)
	}
	if v := ctxFloat(sessionCtx, ctxQuotedRate); v > 0 {
		parts = append(parts, fmt.Sprintf("quoted_rate=%.2f", v))
	}
	if v := ctxString(sessionCtx, ctxImageURL); v != "" {
		parts = append(parts, "reference_image="+v)
	}
	return strings.Join(parts, ", ")
}
