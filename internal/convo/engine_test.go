package convo

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"packbot/internal/rag"
	"packbot/internal/repo"
	"packbot/internal/wa"
)

type fakeSessions struct {
	sessions map[string]*repo.Session
	touched  int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*repo.Session{}}
}

func (f *fakeSessions) Load(_ context.Context, phone string) (*repo.Session, error) {
	if s, ok := f.sessions[phone]; ok {
		clone := *s
		clone.Context = map[string]any{}
		for k, v := range s.Context {
			clone.Context[k] = v
		}
		return &clone, nil
	}
	s := &repo.Session{Phone: phone, Stage: StageMenu, Context: map[string]any{}}
	f.sessions[phone] = s
	clone := *s
	clone.Context = map[string]any{}
	return &clone, nil
}

func (f *fakeSessions) Save(_ context.Context, sess *repo.Session) error {
	clone := *sess
	f.sessions[sess.Phone] = &clone
	return nil
}

func (f *fakeSessions) Touch(_ context.Context, phone string) error {
	f.touched++
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) TopCategories(context.Context) ([]repo.Category, error) {
	return []repo.Category{{ID: "cat-boxes", Name: "Cake Boxes"}, {ID: "cat-bags", Name: "Paper Bags"}}, nil
}

func (fakeCatalog) SubCategories(_ context.Context, parentID string) ([]repo.Category, error) {
	if parentID == "cat-boxes" {
		return []repo.Category{{ID: "cat-boxes-half", Name: "Half Kg Boxes"}}, nil
	}
	return nil, nil
}

func (fakeCatalog) Products(_ context.Context, _ string) ([]repo.Product, error) {
	return []repo.Product{{ID: "prod-1", Name: "Half Kg Cake Box", UnitPrice: 12, Unit: "pc", MinQuantity: 50, GSTCategory: "food_grade"}}, nil
}

func (fakeCatalog) Product(_ context.Context, id string) (*repo.Product, error) {
	return &repo.Product{ID: id, Name: "Half Kg Cake Box", UnitPrice: 12, Unit: "pc", MinQuantity: 50, GSTCategory: "food_grade"}, nil
}

type fakeAnswerer struct {
	lastReq rag.Request
	answer  string
}

func (f *fakeAnswerer) Query(_ context.Context, req rag.Request) (*rag.Result, error) {
	f.lastReq = req
	answer := f.answer
	if answer == "" {
		answer = "We make those in kraft and white."
	}
	return &rag.Result{Answer: answer}, nil
}

// fakeStore stubs only the store methods the engine touches; anything else
// panics via the embedded nil interface.
type fakeStore struct {
	repo.Store
	chat     []repo.ChatMessage
	orders   []repo.Order
	bookings []repo.Booking
	leads    []repo.Lead
}

func (f *fakeStore) InsertChatMessage(_ context.Context, msg repo.ChatMessage) error {
	f.chat = append(f.chat, msg)
	return nil
}

func (f *fakeStore) ListRecentChat(context.Context, string, int) ([]repo.ChatMessage, error) {
	return nil, nil
}

func (f *fakeStore) InsertOrder(_ context.Context, order repo.Order) (*repo.Order, error) {
	f.orders = append(f.orders, order)
	return &order, nil
}

func (f *fakeStore) InsertBooking(_ context.Context, b repo.Booking) (*repo.Booking, error) {
	f.bookings = append(f.bookings, b)
	return &b, nil
}

func (f *fakeStore) InsertLead(_ context.Context, lead repo.Lead) (*repo.Lead, error) {
	f.leads = append(f.leads, lead)
	return &lead, nil
}

type fakeMessenger struct {
	texts []string
	to    []string
}

func (f *fakeMessenger) SendText(_ context.Context, to, body string) ([]string, error) {
	f.to = append(f.to, to)
	f.texts = append(f.texts, body)
	return []string{"SM123"}, nil
}

func (f *fakeMessenger) SendMedia(_ context.Context, to, _, mediaURL string) (string, error) {
	f.to = append(f.to, to)
	f.texts = append(f.texts, "[media] "+mediaURL)
	return "MM123", nil
}

func (f *fakeMessenger) SendTemplate(context.Context, string, string, map[string]string) (string, error) {
	return "TM123", nil
}

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func newTestEngine(t *testing.T) (*Engine, *fakeSessions, *fakeMessenger, *fakeStore, *fakeAnswerer) {
	t.Helper()
	sessions := newFakeSessions()
	messenger := &fakeMessenger{}
	store := &fakeStore{}
	answerer := &fakeAnswerer{}
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	eng := New(sessions, fakeCatalog{}, answerer, store, messenger, allowAll{}, nil, nil, logger, EngineConfig{
		BusinessName: "Testpack",
		AdminPhones:  []string{"+910000000000"},
		RAGNamespace: "knowledge",
		RAGTopK:      5,
	})
	return eng, sessions, messenger, store, answerer
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func inbound(body string) wa.InboundMessage {
	return wa.InboundMessage{From: "+911234567890", Body: body, MessageSID: "SMin"}
}

func lastText(t *testing.T, m *fakeMessenger) string {
	t.Helper()
	if len(m.texts) == 0 {
		t.Fatal("no outbound message sent")
	}
	return m.texts[len(m.texts)-1]
}

func sessionOf(t *testing.T, s *fakeSessions) *repo.Session {
	t.Helper()
	sess, ok := s.sessions["+911234567890"]
	if !ok {
		t.Fatal("no session stored")
	}
	return sess
}

func TestGreetingShowsMenu(t *testing.T) {
	eng, sessions, messenger, _, _ := newTestEngine(t)

	eng.ProcessMessage(context.Background(), inbound("Hi"))

	if got := lastText(t, messenger); !strings.Contains(got, "1. Browse our product catalog") {
		t.Fatalf("expected menu, got %q", got)
	}
	if sess := sessionOf(t, sessions); sess.Stage != StageMenu {
		t.Fatalf("stage = %q, want %q", sess.Stage, StageMenu)
	}
}

func TestGreetingResetsMidFlow(t *testing.T) {
	eng, sessions, messenger, _, _ := newTestEngine(t)
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageShopQuantity,
		Context: map[string]any{ctxProductID: "prod-1"},
	}

	eng.ProcessMessage(context.Background(), inbound("hello"))

	sess := sessionOf(t, sessions)
	if sess.Stage != StageMenu {
		t.Fatalf("stage = %q, want menu reset", sess.Stage)
	}
	if len(sess.Context) != 0 {
		t.Fatalf("context not cleared: %v", sess.Context)
	}
	if got := lastText(t, messenger); !strings.Contains(got, "How can we help") {
		t.Fatalf("expected menu, got %q", got)
	}
}

func TestMenuSelectionOneAsksUserTypeFirst(t *testing.T) {
	eng, sessions, messenger, _, _ := newTestEngine(t)

	eng.ProcessMessage(context.Background(), inbound("1"))

	if sess := sessionOf(t, sessions); sess.Stage != StageSelectUserType {
		t.Fatalf("stage = %q, want %q", sess.Stage, StageSelectUserType)
	}
	if got := lastText(t, messenger); !strings.Contains(got, "Homebaker") {
		t.Fatalf("expected user type prompt, got %q", got)
	}
}

func TestUserTypeThenCatalogListing(t *testing.T) {
	eng, sessions, messenger, _, _ := newTestEngine(t)

	eng.ProcessMessage(context.Background(), inbound("1"))
	eng.ProcessMessage(context.Background(), inbound("1"))

	sess := sessionOf(t, sessions)
	if sess.Stage != StageShopTopCategory {
		t.Fatalf("stage = %q, want %q", sess.Stage, StageShopTopCategory)
	}
	if sess.UserType == nil || *sess.UserType != repo.UserTypeHomebaker {
		t.Fatalf("user type = %v, want Homebakers", sess.UserType)
	}
	if got := lastText(t, messenger); !strings.Contains(got, "Cake Boxes") {
		t.Fatalf("expected category list, got %q", got)
	}
}

func TestOutOfRangeSelectionRepromptsWithoutTransition(t *testing.T) {
	eng, sessions, messenger, _, _ := newTestEngine(t)
	ut := repo.UserTypeHomebaker
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageShopTopCategory, UserType: &ut,
		Context: map[string]any{ctxTopOptions: []string{"cat-boxes", "cat-bags"}},
	}

	eng.ProcessMessage(context.Background(), inbound("9"))

	if sess := sessionOf(t, sessions); sess.Stage != StageShopTopCategory {
		t.Fatalf("stage = %q, want unchanged", sess.Stage)
	}
	if got := lastText(t, messenger); !strings.Contains(got, "listed numbers") {
		t.Fatalf("expected re-prompt, got %q", got)
	}
}

func TestQuantityBelowMinimumReprompts(t *testing.T) {
	eng, sessions, messenger, _, _ := newTestEngine(t)
	ut := repo.UserTypeHomebaker
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageShopQuantity, UserType: &ut,
		Context: map[string]any{ctxProductID: "prod-1"},
	}

	eng.ProcessMessage(context.Background(), inbound("20"))

	if sess := sessionOf(t, sessions); sess.Stage != StageShopQuantity {
		t.Fatalf("stage = %q, want unchanged", sess.Stage)
	}
	if got := lastText(t, messenger); !strings.Contains(got, "minimum order") {
		t.Fatalf("expected minimum re-prompt, got %q", got)
	}
}

func TestQuantityQuoteUsesGSTAndAsksName(t *testing.T) {
	eng, sessions, messenger, _, _ := newTestEngine(t)
	ut := repo.UserTypeHomebaker
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageShopQuantity, UserType: &ut,
		Context: map[string]any{ctxProductID: "prod-1"},
	}

	eng.ProcessMessage(context.Background(), inbound("300"))

	sess := sessionOf(t, sessions)
	if sess.Stage != StageAskName {
		t.Fatalf("stage = %q, want %q", sess.Stage, StageAskName)
	}
	got := lastText(t, messenger)
	// 300 x 12 = 3600, food grade GST 12% = 432, total 4032.
	for _, want := range []string{"3600", "12% GST", "432", "4032"} {
		if !strings.Contains(got, want) {
			t.Fatalf("quote %q missing %q", got, want)
		}
	}
}

func TestConfirmCreatesPendingOrder(t *testing.T) {
	eng, sessions, messenger, store, _ := newTestEngine(t)
	ut := repo.UserTypeHomebaker
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageShopConfirm, UserType: &ut,
		Context: map[string]any{
			ctxProductID: "prod-1", ctxQuantity: 300,
			ctxName: "Asha", ctxAddress: "12 MG Road, Pune", ctxPincode: "411001",
		},
	}

	eng.ProcessMessage(context.Background(), inbound("yes"))

	if len(store.orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(store.orders))
	}
	order := store.orders[0]
	if order.Status != repo.OrderStatusPending {
		t.Fatalf("status = %q, want PENDING", order.Status)
	}
	if order.TotalAmount != 4032 {
		t.Fatalf("total = %d, want 4032", order.TotalAmount)
	}
	if !strings.HasPrefix(order.OrderRef, "ORD-") {
		t.Fatalf("ref = %q", order.OrderRef)
	}
	sess := sessionOf(t, sessions)
	if sess.Stage != StagePaymentPending {
		t.Fatalf("stage = %q, want %q", sess.Stage, StagePaymentPending)
	}
	// Admin notification plus user confirmation both go out.
	joined := strings.Join(messenger.texts, "\n")
	if !strings.Contains(joined, "New order") {
		t.Fatalf("expected admin notification, got %q", joined)
	}
}

func TestInterruptOffersExitAndNoResumes(t *testing.T) {
	eng, sessions, messenger, _, _ := newTestEngine(t)
	ut := repo.UserTypeHomebaker
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageShopQuantity, UserType: &ut,
		Context: map[string]any{ctxProductID: "prod-1"},
	}

	eng.ProcessMessage(context.Background(), inbound("do you also print logos on boxes?"))

	sess := sessionOf(t, sessions)
	if sess.Stage != StageConfirmExit {
		t.Fatalf("stage = %q, want %q", sess.Stage, StageConfirmExit)
	}
	if got := lastText(t, messenger); !strings.Contains(got, "leave the current flow") {
		t.Fatalf("expected interrupt prompt, got %q", got)
	}

	eng.ProcessMessage(context.Background(), inbound("no"))

	sess = sessionOf(t, sessions)
	if sess.Stage != StageShopQuantity {
		t.Fatalf("stage = %q, want resumed %q", sess.Stage, StageShopQuantity)
	}
	if ctxString(sess.Context, ctxPendingQuestion) != "" {
		t.Fatal("pending question not cleared")
	}
	if got := lastText(t, messenger); !strings.Contains(got, "quantity") {
		t.Fatalf("expected the quantity prompt repeated, got %q", got)
	}
}

func TestInterruptYesAnswersQuestion(t *testing.T) {
	eng, sessions, messenger, _, answerer := newTestEngine(t)
	ut := repo.UserTypeSweetShop
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageShopQuantity, UserType: &ut,
		Context: map[string]any{ctxProductID: "prod-1", ctxName: "Asha", ctxCity: "Pune"},
	}

	eng.ProcessMessage(context.Background(), inbound("do you also print logos on boxes?"))
	eng.ProcessMessage(context.Background(), inbound("yes"))

	sess := sessionOf(t, sessions)
	if sess.Stage != StageCustomSolutions {
		t.Fatalf("stage = %q, want %q", sess.Stage, StageCustomSolutions)
	}
	if answerer.lastReq.Query != "do you also print logos on boxes?" {
		t.Fatalf("question = %q", answerer.lastReq.Query)
	}
	if !answerer.lastReq.Strict || answerer.lastReq.Filter["userType"] != string(repo.UserTypeSweetShop) {
		t.Fatalf("expected strict user-type filtered query, got %+v", answerer.lastReq)
	}
	if got := lastText(t, messenger); !strings.Contains(got, "kraft") {
		t.Fatalf("expected rag answer, got %q", got)
	}
}

func TestReinterruptOverwritesPendingQuestion(t *testing.T) {
	eng, sessions, _, _, answerer := newTestEngine(t)
	ut := repo.UserTypeHomebaker
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageShopQuantity, UserType: &ut,
		Context: map[string]any{ctxProductID: "prod-1", ctxName: "Asha", ctxCity: "Pune"},
	}

	eng.ProcessMessage(context.Background(), inbound("what sizes do you stock?"))
	// Instead of yes/no, the user asks a different question.
	eng.ProcessMessage(context.Background(), inbound("actually, do you deliver to Jaipur?"))
	eng.ProcessMessage(context.Background(), inbound("yes"))

	if answerer.lastReq.Query != "actually, do you deliver to Jaipur?" {
		t.Fatalf("latest question should win, got %q", answerer.lastReq.Query)
	}
	if sess := sessionOf(t, sessions); sess.Stage != StageCustomSolutions {
		t.Fatalf("stage = %q, want %q", sess.Stage, StageCustomSolutions)
	}
}

func TestManualStageAbsorbsWithoutReply(t *testing.T) {
	eng, sessions, messenger, store, _ := newTestEngine(t)
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageManual, Context: map[string]any{},
	}

	eng.ProcessMessage(context.Background(), inbound("is anyone there?"))

	if len(messenger.texts) != 0 {
		t.Fatalf("expected no automated reply, got %v", messenger.texts)
	}
	if sessions.touched != 1 {
		t.Fatalf("touched = %d, want 1", sessions.touched)
	}
	// Inbound history is still logged.
	if len(store.chat) != 1 || store.chat[0].Sender != repo.SenderUser {
		t.Fatalf("chat log = %+v", store.chat)
	}
}

func TestRateLimitedMessageGetsThrottleReply(t *testing.T) {
	sessions := newFakeSessions()
	messenger := &fakeMessenger{}
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	eng := New(sessions, fakeCatalog{}, &fakeAnswerer{}, &fakeStore{}, messenger, denyAll{}, nil, nil, logger, EngineConfig{})

	eng.ProcessMessage(context.Background(), inbound("hi"))

	if got := lastText(t, messenger); !strings.Contains(got, "too quickly") {
		t.Fatalf("expected throttle reply, got %q", got)
	}
	if len(messenger.texts) != 1 {
		t.Fatalf("texts = %d, want only the throttle notice", len(messenger.texts))
	}
	if got := sessionOf(t, sessions).Stage; got != StageMenu {
		t.Fatalf("stage = %q, throttled message must not advance the conversation", got)
	}
}

func TestManualStageSwallowsThrottleNotice(t *testing.T) {
	sessions := newFakeSessions()
	messenger := &fakeMessenger{}
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	eng := New(sessions, fakeCatalog{}, &fakeAnswerer{}, &fakeStore{}, messenger, denyAll{}, nil, nil, logger, EngineConfig{})
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageManual, Context: map[string]any{},
	}

	eng.ProcessMessage(context.Background(), inbound("still waiting"))

	if len(messenger.texts) != 0 {
		t.Fatalf("expected silence during human takeover, got %v", messenger.texts)
	}
}

func TestLLMOfflineCapturesLead(t *testing.T) {
	sessions := newFakeSessions()
	messenger := &fakeMessenger{}
	store := &fakeStore{}
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	eng := New(sessions, fakeCatalog{}, &fakeAnswerer{}, store, messenger, allowAll{}, nil, nil, logger, EngineConfig{
		AdminPhones: []string{"+910000000000"},
		LLMReady:    func(context.Context) bool { return false },
	})
	ut := repo.UserTypeHomebaker
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageCustomSolutions, UserType: &ut, Context: map[string]any{},
	}

	eng.ProcessMessage(context.Background(), inbound("need 2000 printed boxes"))
	eng.ProcessMessage(context.Background(), inbound("Asha"))
	eng.ProcessMessage(context.Background(), inbound("Pune"))
	eng.ProcessMessage(context.Background(), inbound("411001"))

	if len(store.leads) != 1 {
		t.Fatalf("leads = %d, want 1", len(store.leads))
	}
	lead := store.leads[0]
	if lead.Name == nil || *lead.Name != "Asha" {
		t.Fatalf("lead name = %v", lead.Name)
	}
	if lead.Question == nil || *lead.Question != "need 2000 printed boxes" {
		t.Fatalf("lead question = %v", lead.Question)
	}
	if sess := sessionOf(t, sessions); sess.Stage != StageMenu {
		t.Fatalf("stage = %q, want menu after lead", sess.Stage)
	}
}

func TestFirstQuestionCapturesLeadThenAnswers(t *testing.T) {
	eng, sessions, messenger, store, answerer := newTestEngine(t)
	ut := repo.UserTypeHomebaker
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageCustomSolutions, UserType: &ut, Context: map[string]any{},
	}

	eng.ProcessMessage(context.Background(), inbound("do you print logos on kraft boxes?"))

	// No retrieval happens until the contact details are on file.
	if answerer.lastReq.Query != "" {
		t.Fatalf("retrieval ran before lead capture: %q", answerer.lastReq.Query)
	}
	if got := lastText(t, messenger); !strings.Contains(got, "name") {
		t.Fatalf("expected name prompt, got %q", got)
	}

	eng.ProcessMessage(context.Background(), inbound("Asha"))
	eng.ProcessMessage(context.Background(), inbound("Pune"))
	eng.ProcessMessage(context.Background(), inbound("skip"))

	if len(store.leads) != 1 {
		t.Fatalf("leads = %d, want 1", len(store.leads))
	}
	if !strings.Contains(answerer.lastReq.Query, "do you print logos on kraft boxes?") {
		t.Fatalf("stashed question not replayed, query = %q", answerer.lastReq.Query)
	}
	if got := lastText(t, messenger); !strings.Contains(got, "kraft") {
		t.Fatalf("expected answer after capture, got %q", got)
	}
	sess := sessionOf(t, sessions)
	if sess.Stage != StageCustomSolutions {
		t.Fatalf("stage = %q, want %q", sess.Stage, StageCustomSolutions)
	}
	if ctxString(sess.Context, ctxName) != "Asha" {
		t.Fatal("name should stay in context so capture runs once")
	}
	if _, ok := sess.Context[ctxPendingQuestion]; ok {
		t.Fatal("pending question should be cleared after replay")
	}
}

func TestMediaOutsideCustomFlowRecordsArtifact(t *testing.T) {
	eng, sessions, _, store, _ := newTestEngine(t)
	ut := repo.UserTypeStoreOwner
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageShopProduct, UserType: &ut, Context: map[string]any{},
	}

	eng.ProcessMessage(context.Background(), wa.InboundMessage{
		From:       "+911234567890",
		Body:       "something like this",
		MessageSID: "MMin",
		NumMedia:   1,
		MediaURLs:  []string{"https://api.twilio.com/media/abc"},
		MediaTypes: []string{"image/jpeg"},
	})

	if len(store.leads) != 1 {
		t.Fatalf("leads = %d, want 1", len(store.leads))
	}
	lead := store.leads[0]
	if lead.ArtifactURL == nil || *lead.ArtifactURL != "https://api.twilio.com/media/abc" {
		t.Fatalf("artifact = %v", lead.ArtifactURL)
	}
	if lead.Question == nil || *lead.Question != "something like this" {
		t.Fatalf("question = %v", lead.Question)
	}
	if sess := sessionOf(t, sessions); sess.Stage != StageShopProduct {
		t.Fatalf("stage = %q, attachment must not derail the flow", sess.Stage)
	}
}

func TestQuotationReadyCreatesOrder(t *testing.T) {
	eng, sessions, messenger, store, answerer := newTestEngine(t)
	answerer.answer = "Here is your quotation.\n```ORDER_CONTEXT\n{\"product\": \"Printed Mailer Box\", \"quantity\": 1200, \"quoted_rate\": 18, \"quotation_ready\": true}\n```"
	ut := repo.UserTypeStoreOwner
	sessions.sessions["+911234567890"] = &repo.Session{
		Phone: "+911234567890", Stage: StageCustomSolutions, UserType: &ut,
		Context: map[string]any{ctxName: "Ravi", ctxCity: "Jaipur"},
	}

	eng.ProcessMessage(context.Background(), inbound("yes that works, go ahead"))

	if len(store.orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(store.orders))
	}
	order := store.orders[0]
	if order.Items[0].Name != "Printed Mailer Box" || order.Items[0].Quantity != 1200 {
		t.Fatalf("item = %+v", order.Items[0])
	}
	// 1200 x 18 = 21600 + 18% GST 3888 = 25488.
	if order.TotalAmount != 25488 {
		t.Fatalf("total = %d, want 25488", order.TotalAmount)
	}
	if sess := sessionOf(t, sessions); sess.Stage != StagePaymentPending {
		t.Fatalf("stage = %q, want %q", sess.Stage, StagePaymentPending)
	}
	joined := strings.Join(messenger.texts, "\n")
	if strings.Contains(joined, "ORDER_CONTEXT") {
		t.Fatalf("context block leaked to user: %q", joined)
	}
}
