package convo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"packbot/internal/rag"
	"packbot/internal/repo"
	"packbot/internal/wa"
)

func (e *Engine) handleCustomSolutions(ctx context.Context, sess *repo.Session, text string) []reply {
	if strings.TrimSpace(text) == "" {
		return []reply{{Body: "Tell us what you need! Describe your packaging requirement, or send a reference photo."}}
	}
	if sess.UserType == nil {
		sess.Context[ctxPendingQuestion] = text
		sess.Stage = StageSelectUserType
		return []reply{{Body: userTypePrompt}}
	}
	return e.answerQuestion(ctx, sess, text)
}

// answerQuestion runs one retrieval-augmented turn. First contact goes
// through lead capture before any retrieval: the question is stashed and
// replayed once name and city are on file.
func (e *Engine) answerQuestion(ctx context.Context, sess *repo.Session, question string) []reply {
	if ctxString(sess.Context, ctxName) == "" || ctxString(sess.Context, ctxCity) == "" {
		return e.startLeadCapture(sess, question)
	}
	if !e.llmReady(ctx) {
		return []reply{{Body: "Our assistant is briefly offline, but our team has your details and will get back to you personally."}}
	}

	req := rag.Request{
		Query:        e.withRecentHistory(ctx, sess.Phone, question),
		TopK:         e.cfg.RAGTopK,
		Namespace:    e.cfg.RAGNamespace,
		SystemPrompt: BuildSystemPrompt(sess.UserType, sess.Context),
	}
	if sess.UserType != nil {
		req.Filter = map[string]string{"userType": string(*sess.UserType)}
		req.Strict = true
	}

	r := e.ragReply(ctx, req)

	clean, fields, ok := rag.ExtractContextBlock(r.Body)
	if ok {
		r.Body = clean
		mergeOrderContext(sess.Context, fields)
		if ready, _ := fields["quotation_ready"].(bool); ready {
			if extra := e.materializeQuotation(ctx, sess); extra != nil {
				return append([]reply{r}, extra...)
			}
		}
	}
	return []reply{r}
}

// materializeQuotation turns an assistant-built quotation into a pending
// order so payment and admin follow-up work the same as catalog checkout.
func (e *Engine) materializeQuotation(ctx context.Context, sess *repo.Session) []reply {
	product := ctxString(sess.Context, ctxOrderProduct)
	quantity := ctxInt(sess.Context, ctxQuantity)
	rate := ctxFloat(sess.Context, ctxQuotedRate)
	if product == "" || quantity <= 0 || rate <= 0 {
		return nil
	}

	q := ComputeQuote(repo.Product{UnitPrice: int64(rate), GSTCategory: "standard"}, quantity, sess.UserType, rate)
	expires := time.Now().Add(e.cfg.OrderTTL)
	meta := map[string]any{"source": "custom_solutions"}
	if size := ctxString(sess.Context, ctxOrderSize); size != "" {
		meta["size"] = size
	}
	if printing := ctxString(sess.Context, ctxOrderPrinting); printing != "" {
		meta["printing"] = printing
	}
	if img := ctxString(sess.Context, ctxImageURL); img != "" {
		meta["reference_image"] = img
	}

	order := repo.Order{
		OrderRef:    newRef("ORD"),
		Phone:       sess.Phone,
		Status:      repo.OrderStatusPending,
		Subtotal:    q.Subtotal,
		GSTAmount:   q.GSTAmount,
		TotalAmount: q.Total,
		ExpiresAt:   &expires,
		Metadata:    meta,
		Items: []repo.OrderItem{{
			Name:      product,
			UnitPrice: q.UnitPrice,
			Quantity:  q.Quantity,
			LineTotal: q.Subtotal,
		}},
	}
	created, err := e.store.InsertOrder(ctx, order)
	if err != nil {
		e.logger.Error("failed inserting quotation order", "phone", sess.Phone, "error", err)
		e.countError("orders")
		return nil
	}

	sess.Context = map[string]any{ctxOrderRef: created.OrderRef}
	sess.Stage = StagePaymentPending

	e.notifyAdmins(ctx, fmt.Sprintf("Custom quotation %s for %s: %d x %s, total ₹%d.", created.OrderRef, sess.Phone, q.Quantity, product, q.Total))
	e.sendPaymentPrompt(ctx, sess.Phone, created.OrderRef, q.Total)
	return []reply{{Body: fmt.Sprintf("Quotation confirmed as order *%s*. Total due: ₹%d. Our team will share the payment link shortly.", created.OrderRef, q.Total)}}
}

const historyTurns = 6

// withRecentHistory prefixes the question with the last few chat turns so
// the model keeps the thread across messages. History failures degrade to
// the bare question.
func (e *Engine) withRecentHistory(ctx context.Context, phone, question string) string {
	msgs, err := e.store.ListRecentChat(ctx, phone, historyTurns)
	if err != nil || len(msgs) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Body == nil || *m.Body == "" {
			continue
		}
		role := "Customer"
		if m.Sender != repo.SenderUser {
			role = "Assistant"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(*m.Body)
		b.WriteString("\n")
	}
	b.WriteString("\nCustomer's new message: ")
	b.WriteString(question)
	return b.String()
}

// llmReady treats a missing readiness probe as ready.
func (e *Engine) llmReady(ctx context.Context) bool {
	return e.cfg.LLMReady == nil || e.cfg.LLMReady(ctx)
}

func (e *Engine) startLeadCapture(sess *repo.Session, question string) []reply {
	sess.Context[ctxPendingQuestion] = question
	sess.Stage = StageAskLeadName
	return []reply{{Body: "Happy to help with that! Before we dive in, may I have your name?"}}
}

func (e *Engine) handleLeadCapture(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	text := strings.TrimSpace(cls.Text)

	switch sess.Stage {
	case StageAskLeadName:
		if len(text) < 2 {
			return []reply{{Body: "Please share your name."}}
		}
		sess.Context[ctxName] = text
		sess.Stage = StageAskLeadCity
		return []reply{{Body: "Thanks! Which city are you in?"}}
	case StageAskLeadCity:
		if text == "" {
			return []reply{{Body: "Please share your city."}}
		}
		sess.Context[ctxCity] = text
		sess.Stage = StageAskLeadPincode
		return []reply{{Body: "And your 6-digit pincode? (type *skip* if you prefer not to share)"}}
	default: // StageAskLeadPincode
		var pincode *string
		if strings.EqualFold(text, "skip") {
			pincode = nil
		} else if pincodeRe.MatchString(text) {
			pincode = &text
		} else {
			return []reply{{Body: "That does not look like a pincode. Send the 6-digit pincode, or *skip*."}}
		}
		return e.finishLeadCapture(ctx, sess, pincode)
	}
}

func (e *Engine) finishLeadCapture(ctx context.Context, sess *repo.Session, pincode *string) []reply {
	name := ctxString(sess.Context, ctxName)
	city := ctxString(sess.Context, ctxCity)
	question := ctxString(sess.Context, ctxPendingQuestion)

	lead := repo.Lead{
		Phone:    sess.Phone,
		Name:     &name,
		City:     &city,
		Pincode:  pincode,
		UserType: sess.UserType,
		Question: nilIfEmpty(question),
	}
	if img := ctxString(sess.Context, ctxImageURL); img != "" {
		lead.ArtifactURL = &img
	}
	if _, err := e.store.InsertLead(ctx, lead); err != nil {
		e.logger.Error("failed inserting lead", "phone", sess.Phone, "error", err)
		e.countError("leads")
		return []reply{{Body: apologyReply}}
	}

	e.notifyAdmins(ctx, fmt.Sprintf("New lead: %s (%s, %s). Question: %s", name, city, sess.Phone, question))

	// With the model available the preserved question is replayed now;
	// name and city stay in context so capture runs once per session.
	if question != "" && e.llmReady(ctx) {
		delete(sess.Context, ctxPendingQuestion)
		sess.Stage = StageCustomSolutions
		return append([]reply{{Body: fmt.Sprintf("Thanks, %s! Coming right up.", name)}}, e.answerQuestion(ctx, sess, question)...)
	}

	resetSession(sess)
	return []reply{{Body: "Thank you! Our team will reach out shortly. " + e.menuText()}}
}

// handleMedia deals with inbound attachments. In the custom-solutions and
// lead flows the first file is kept as a reference image; elsewhere it is
// acknowledged and the flow continues.
func (e *Engine) handleMedia(ctx context.Context, sess *repo.Session, msg wa.InboundMessage) []reply {
	localURL := msg.MediaURLs[0]
	contentType := ""
	if len(msg.MediaTypes) > 0 {
		contentType = msg.MediaTypes[0]
	}
	if e.media != nil {
		fetched, err := e.media.Fetch(ctx, msg.MediaURLs[0], contentType)
		if err != nil {
			e.logger.Warn("failed fetching media", "phone", sess.Phone, "error", err)
			e.countError("media")
		} else {
			localURL = fetched
		}
	}

	switch sess.Stage {
	case StageMenu, StageCustomSolutions:
		sess.Context[ctxImageURL] = localURL
		if sess.Stage == StageMenu {
			sess.Stage = StageCustomSolutions
		}
		body := strings.TrimSpace(msg.Body)
		if body == "" {
			return []reply{{Body: "Got the photo! Now tell us what you need made like this: product, size and quantity."}}
		}
		if sess.UserType == nil {
			sess.Context[ctxPendingQuestion] = body
			sess.Stage = StageSelectUserType
			return []reply{{Body: userTypePrompt}}
		}
		return e.answerQuestion(ctx, sess, body+"\n\n(The customer attached a reference photo: "+localURL+")")
	case StageAskLeadName, StageAskLeadCity, StageAskLeadPincode:
		sess.Context[ctxImageURL] = localURL
		return []reply{{Body: "Got the photo, it will be shared with our team. Please continue with the details above."}}
	default:
		// Attachments outside the custom flow are kept as a lead artifact
		// so the file is not lost when the provider URL expires.
		lead := repo.Lead{Phone: sess.Phone, UserType: sess.UserType, ArtifactURL: &localURL}
		if name := ctxString(sess.Context, ctxName); name != "" {
			lead.Name = &name
		}
		if body := strings.TrimSpace(msg.Body); body != "" {
			lead.Question = &body
		}
		if _, err := e.store.InsertLead(ctx, lead); err != nil {
			e.logger.Warn("failed recording media artifact", "phone", sess.Phone, "error", err)
			e.countError("leads")
		}
		return []reply{{Body: "Got the file, it is saved for our team. Please continue with the current step, or type *menu* to start over."}}
	}
}
