package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"packbot/internal/booking"
	"packbot/internal/domain"
	"packbot/internal/metrics"
	"packbot/internal/rag"
	"packbot/internal/repo"
	"packbot/internal/wa"
)

// User-facing copy for degraded paths.
const (
	apologyReply   = "Sorry, something went wrong on our side. Please try again."
	retrievalReply = "Sorry, our product knowledge is briefly unavailable. Please try again in a minute."
	throttleReply  = "You are sending messages too quickly. Please wait a moment and try again."
)

// Sessions is the session-store surface the engine needs.
type Sessions interface {
	Load(ctx context.Context, phone string) (*repo.Session, error)
	Save(ctx context.Context, sess *repo.Session) error
	Touch(ctx context.Context, phone string) error
}

// Catalog is the product-catalog surface the engine needs.
type Catalog interface {
	TopCategories(ctx context.Context) ([]repo.Category, error)
	SubCategories(ctx context.Context, parentID string) ([]repo.Category, error)
	Products(ctx context.Context, categoryID string) ([]repo.Product, error)
	Product(ctx context.Context, id string) (*repo.Product, error)
}

// Answerer runs retrieval-augmented queries.
type Answerer interface {
	Query(ctx context.Context, req rag.Request) (*rag.Result, error)
}

// Limiter gates inbound message volume per phone.
type Limiter interface {
	Allow(phone string) bool
}

// MediaFetcher downloads an attachment and returns its locally served URL.
type MediaFetcher interface {
	Fetch(ctx context.Context, remoteURL, contentType string) (string, error)
}

// EngineConfig parameterizes menu copy, admin recipients and payment hold
// windows so one state machine serves any deployment.
type EngineConfig struct {
	BusinessName string
	AdminPhones  []string
	OrderTTL     time.Duration
	BookingTTL   time.Duration
	RAGNamespace string
	RAGTopK      int
	// PaymentContentSID is the provider template used for payment prompts.
	// Empty means plain text only.
	PaymentContentSID string
	// LLMReady reports whether generation is currently possible. When it
	// returns false the custom-solutions flow captures a lead instead of
	// calling the model.
	LLMReady func(ctx context.Context) bool
}

// Engine is the per-phone conversation state machine. Each inbound message
// is one turn: classify, dispatch on the current stage, persist the
// session, send the replies.
type Engine struct {
	sessions  Sessions
	catalog   Catalog
	rag       Answerer
	store     repo.Store
	messenger wa.Messenger
	limiter   Limiter
	media     MediaFetcher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       EngineConfig
}

// New creates a conversation engine.
func New(sessions Sessions, catalog Catalog, answerer Answerer, store repo.Store, messenger wa.Messenger, limiter Limiter, media MediaFetcher, metricRegistry *metrics.Metrics, logger *slog.Logger, cfg EngineConfig) *Engine {
	if cfg.BusinessName == "" {
		cfg.BusinessName = "Packbot Packaging"
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = 24 * time.Hour
	}
	if cfg.BookingTTL <= 0 {
		cfg.BookingTTL = 15 * time.Minute
	}
	return &Engine{
		sessions:  sessions,
		catalog:   catalog,
		rag:       answerer,
		store:     store,
		messenger: messenger,
		limiter:   limiter,
		media:     media,
		metrics:   metricRegistry,
		logger:    logger.With("component", "convo"),
		cfg:       cfg,
	}
}

var _ wa.Processor = (*Engine)(nil)

// reply is one outbound message produced by a turn.
type reply struct {
	Body      string
	MediaURLs []string
}

// ProcessMessage handles one inbound message. Errors never escape: any
// failure inside the turn is logged and answered with a generic apology,
// leaving the session in its last persisted state.
func (e *Engine) ProcessMessage(ctx context.Context, msg wa.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic in conversation turn", "phone", msg.From, "panic", r)
			e.send(ctx, msg.From, reply{Body: apologyReply})
		}
	}()

	e.logInbound(ctx, msg)

	sess, err := e.sessions.Load(ctx, msg.From)
	if err != nil {
		e.logger.Error("failed loading session", "phone", msg.From, "error", err)
		e.send(ctx, msg.From, reply{Body: apologyReply})
		return
	}

	// Human takeover absorbs everything first, throttling notices
	// included: an agent is mid-conversation, no automated reply may cut
	// in.
	if sess.Stage == StageManual {
		if err := e.sessions.Touch(ctx, msg.From); err != nil {
			e.logger.Warn("failed touching manual session", "phone", msg.From, "error", err)
		}
		e.logger.Info("manual session message logged", "phone", msg.From)
		return
	}

	if e.limiter != nil && !e.limiter.Allow(msg.From) {
		if e.metrics != nil {
			e.metrics.RateLimited.Inc()
		}
		e.send(ctx, msg.From, reply{Body: throttleReply})
		return
	}

	if e.metrics != nil {
		e.metrics.InboundMessages.WithLabelValues(sess.Stage).Inc()
	}
	fromStage := sess.Stage

	replies := e.step(ctx, sess, msg)

	if e.metrics != nil && sess.Stage != fromStage {
		e.metrics.StageTransitions.WithLabelValues(fromStage, sess.Stage).Inc()
	}

	if err := e.sessions.Save(ctx, sess); err != nil {
		e.logger.Error("failed saving session", "phone", msg.From, "error", err)
		e.send(ctx, msg.From, reply{Body: apologyReply})
		return
	}

	for _, r := range replies {
		e.send(ctx, msg.From, r)
	}
}

// step runs one state-machine transition. It mutates sess and returns the
// outbound replies; persistence happens in the caller.
func (e *Engine) step(ctx context.Context, sess *repo.Session, msg wa.InboundMessage) []reply {
	if msg.NumMedia > 0 && len(msg.MediaURLs) > 0 {
		return e.handleMedia(ctx, sess, msg)
	}

	cls := Classify(msg.Body)

	// Universal reset, valid from every non-manual stage.
	if cls.Kind == KindGreeting || cls.Kind == KindMenuReset {
		resetSession(sess)
		return []reply{{Body: e.menuText()}}
	}

	// Conversational free text inside a multi-step flow offers the
	// exit-flow interrupt instead of a re-prompt.
	if _, shopping := shoppingStages[sess.Stage]; shopping && LooksConversational(cls) {
		return e.offerInterrupt(sess, cls.Text)
	}

	switch sess.Stage {
	case StageMenu:
		return e.handleMenu(ctx, sess, cls)
	case StageSelectUserType:
		return e.handleSelectUserType(ctx, sess, cls)
	case StageCustomSolutions:
		return e.handleCustomSolutions(ctx, sess, cls.Text)
	case StageAskLeadName, StageAskLeadCity, StageAskLeadPincode:
		return e.handleLeadCapture(ctx, sess, cls)
	case StageShopTopCategory:
		return e.handleShopTopCategory(ctx, sess, cls)
	case StageShopMidCategory:
		return e.handleShopMidCategory(ctx, sess, cls)
	case StageShopProduct:
		return e.handleShopProduct(ctx, sess, cls)
	case StageShopQuantity:
		return e.handleShopQuantity(ctx, sess, cls)
	case StageAskName, StageAskAddress, StageAskPincode:
		return e.handleCheckoutDetails(ctx, sess, cls)
	case StageShopConfirm:
		return e.handleShopConfirm(ctx, sess, cls)
	case StageChooseDate:
		return e.handleChooseDate(ctx, sess, cls)
	case StageChoosePlayers:
		return e.handleChoosePlayers(ctx, sess, cls)
	case StageChooseSlot:
		return e.handleChooseSlot(ctx, sess, cls)
	case StageChooseCourt:
		return e.handleChooseCourt(ctx, sess, cls)
	case StagePaymentPending:
		return e.handlePaymentPending(ctx, sess, cls)
	case StageBookingConfirmed:
		resetSession(sess)
		return []reply{{Body: "Your booking is confirmed. " + e.menuText()}}
	case StageConfirmExit:
		return e.handleConfirmExit(ctx, sess, cls)
	default:
		e.logger.Warn("unknown stage, resetting", "stage", sess.Stage, "phone", sess.Phone)
		resetSession(sess)
		return []reply{{Body: e.menuText()}}
	}
}

func resetSession(sess *repo.Session) {
	sess.Stage = StageMenu
	sess.PreviousStage = nil
	sess.Context = map[string]any{}
}

func (e *Engine) menuText() string {
	return fmt.Sprintf(`Welcome to %s! How can we help you today?

1. Browse our product catalog
2. Book a demo slot at our experience centre
3. Custom packaging solutions

Reply with a number, or just type your question.`, e.cfg.BusinessName)
}

// offerInterrupt stashes the pending question and the stage to resume,
// then asks the user to confirm abandoning the flow. A re-interrupt
// overwrites the stash: the newest question wins.
func (e *Engine) offerInterrupt(sess *repo.Session, question string) []reply {
	prev := sess.Stage
	sess.Context[ctxPendingQuestion] = question
	sess.Context[ctxResumeStage] = prev
	sess.PreviousStage = &prev
	sess.Stage = StageConfirmExit
	return []reply{{Body: "That looks like a question. Do you want to leave the current flow and ask it? Reply *yes* to ask, *no* to continue where you were."}}
}

func (e *Engine) handleConfirmExit(ctx context.Context, sess *repo.Session, cls Classification) []reply {
	question := ctxString(sess.Context, ctxPendingQuestion)
	resume := ctxString(sess.Context, ctxResumeStage)

	switch {
	case IsAffirmative(cls.Text):
		delete(sess.Context, ctxPendingQuestion)
		delete(sess.Context, ctxResumeStage)
		sess.PreviousStage = nil
		sess.Stage = StageCustomSolutions
		return e.answerQuestion(ctx, sess, question)
	case IsNegative(cls.Text):
		delete(sess.Context, ctxPendingQuestion)
		delete(sess.Context, ctxResumeStage)
		sess.PreviousStage = nil
		if resume == "" {
			resume = StageMenu
		}
		sess.Stage = resume
		return []reply{{Body: "Back to where you were. " + resumeHint(resume)}}
	default:
		// A fresh question while we wait for yes/no replaces the stashed
		// one: the newest question wins.
		if LooksConversational(cls) {
			sess.Context[ctxPendingQuestion] = cls.Text
			return []reply{{Body: "Got it, I will answer that one instead. Reply *yes* to ask it now or *no* to continue where you were."}}
		}
		return []reply{{Body: "Please reply *yes* to ask your question or *no* to continue the current flow."}}
	}
}

// resumeHint repeats the instruction for the stage a declined interrupt
// returns to.
func resumeHint(stage string) string {
	switch stage {
	case StageShopQuantity:
		return "Please send the quantity as a number."
	case StageChoosePlayers:
		return fmt.Sprintf("How many people are coming? (1 to %d)", booking.CourtCapacity)
	case StageChooseCourt:
		return "Please send the court number."
	case StageShopConfirm:
		return "Reply *yes* to confirm the order or *no* to cancel."
	default:
		return "Please pick one of the numbered options from the list above."
	}
}

// send delivers one reply and records the outbound chat history rows.
func (e *Engine) send(ctx context.Context, phone string, r reply) {
	if r.Body != "" {
		sids, err := e.messenger.SendText(ctx, phone, r.Body)
		if err != nil {
			e.logger.Error("failed sending text", "phone", phone, "error", err)
			e.countError("send")
		}
		e.logOutboundText(ctx, phone, r.Body, sids)
	}
	for _, u := range r.MediaURLs {
		sid, err := e.messenger.SendMedia(ctx, phone, "", u)
		if err != nil {
			e.logger.Error("failed sending media", "phone", phone, "url", u, "error", err)
			e.countError("send")
			continue
		}
		e.logOutbound(ctx, repo.ChatMessage{Phone: phone, Sender: repo.SenderBot, MediaURL: &u, ProviderMessageID: nilIfEmpty(sid)})
	}
}

// sendPaymentPrompt delivers the rich payment template when one is
// configured. The plain-text confirmation already carries the reference,
// so template failures are only logged.
func (e *Engine) sendPaymentPrompt(ctx context.Context, phone, ref string, amount int64) {
	if e.cfg.PaymentContentSID == "" {
		return
	}
	sid, err := e.messenger.SendTemplate(ctx, phone, e.cfg.PaymentContentSID, map[string]string{
		"1": ref,
		"2": fmt.Sprintf("%d", amount),
	})
	if err != nil {
		e.logger.Warn("failed sending payment template", "phone", phone, "ref", ref, "error", err)
		e.countError("send")
		return
	}
	body := "Payment request for " + ref
	e.logOutbound(ctx, repo.ChatMessage{Phone: phone, Sender: repo.SenderBot, Body: &body, ProviderMessageID: nilIfEmpty(sid)})
}

func (e *Engine) logInbound(ctx context.Context, msg wa.InboundMessage) {
	row := repo.ChatMessage{
		Phone:             msg.From,
		Sender:            repo.SenderUser,
		Body:              nilIfEmpty(msg.Body),
		ProviderMessageID: nilIfEmpty(msg.MessageSID),
	}
	if len(msg.MediaURLs) > 0 {
		row.MediaURL = &msg.MediaURLs[0]
	}
	if err := e.store.InsertChatMessage(ctx, row); err != nil {
		e.logger.Warn("failed logging inbound message", "phone", msg.From, "error", err)
	}
}

func (e *Engine) logOutboundText(ctx context.Context, phone, body string, sids []string) {
	var sid *string
	if len(sids) > 0 {
		sid = &sids[0]
	}
	e.logOutbound(ctx, repo.ChatMessage{Phone: phone, Sender: repo.SenderBot, Body: &body, ProviderMessageID: sid})
}

func (e *Engine) logOutbound(ctx context.Context, row repo.ChatMessage) {
	if err := e.store.InsertChatMessage(ctx, row); err != nil {
		e.logger.Warn("failed logging outbound message", "phone", row.Phone, "error", err)
	}
}

func (e *Engine) countError(component string) {
	if e.metrics != nil {
		e.metrics.Errors.WithLabelValues(component).Inc()
	}
}

// ragReply converts RAG failures into user-facing copy.
func (e *Engine) ragReply(ctx context.Context, req rag.Request) reply {
	res, err := e.rag.Query(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrRetrieval) {
			e.countError("rag")
			return reply{Body: retrievalReply}
		}
		e.logger.Error("rag query failed", "error", err)
		e.countError("rag")
		return reply{Body: apologyReply}
	}
	return reply{Body: res.Answer, MediaURLs: res.MediaURLs}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
