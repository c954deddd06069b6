package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"packbot/internal/llm"
	"packbot/internal/repo"
	"packbot/internal/vector"
)

type fakeStore struct {
	repo.Store
	products  []repo.Product
	expired   []repo.Booking
	staged    map[string]string
	reminded  []string
	inactives []repo.Session
}

func (f *fakeStore) ListAllProducts(context.Context) ([]repo.Product, error) {
	return f.products, nil
}

func (f *fakeStore) ExpirePendingOrders(context.Context, time.Time) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) ExpirePendingBookings(context.Context, time.Time) ([]repo.Booking, error) {
	return f.expired, nil
}

func (f *fakeStore) SetSessionStage(_ context.Context, phone, stage string) error {
	if f.staged == nil {
		f.staged = map[string]string{}
	}
	f.staged[phone] = stage
	return nil
}

func (f *fakeStore) ListInactiveSessions(context.Context, time.Time, int) ([]repo.Session, error) {
	return f.inactives, nil
}

func (f *fakeStore) MarkSessionReminded(_ context.Context, phone string) error {
	f.reminded = append(f.reminded, phone)
	return nil
}

type fakeIndex struct {
	namespace string
	docs      []vector.Document
}

func (f *fakeIndex) Upsert(_ context.Context, namespace string, docs []vector.Document) error {
	f.namespace = namespace
	f.docs = docs
	return nil
}

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("quota exhausted")
	}
	return make([]float32, llm.EmbeddingDim), nil
}

type fakeNotifier struct {
	to     []string
	bodies []string
}

func (f *fakeNotifier) SendText(_ context.Context, to, body string) ([]string, error) {
	f.to = append(f.to, to)
	f.bodies = append(f.bodies, body)
	return []string{"SM1"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestSyncCatalogIndexBuildsProductDocuments(t *testing.T) {
	img := "https://cdn.example.com/halfkg.jpg"
	store := &fakeStore{products: []repo.Product{
		{ID: "p1", Name: "Half Kg Cake Box", UnitPrice: 12, Unit: "pc", MinQuantity: 50, GSTCategory: "food_grade", ImageURL: &img},
	}}
	index := &fakeIndex{}
	r := NewRunner(store, index, &fakeEmbedder{}, nil, testLogger(), Config{RAGNamespace: "knowledge"})

	if err := r.SyncCatalogIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	if index.namespace != "knowledge" {
		t.Fatalf("namespace = %q", index.namespace)
	}
	if len(index.docs) != 1 {
		t.Fatalf("docs = %d, want 1", len(index.docs))
	}
	doc := index.docs[0]
	if doc.ID != "product:p1" {
		t.Fatalf("doc id = %q", doc.ID)
	}
	if doc.Metadata["imageUrl"] != img {
		t.Fatalf("metadata = %v", doc.Metadata)
	}
	if !strings.Contains(doc.Content, "₹12") || !strings.Contains(doc.Content, "minimum order 50") {
		t.Fatalf("content = %q", doc.Content)
	}
}

func TestSyncCatalogIndexFallsBackOnEmbedFailure(t *testing.T) {
	store := &fakeStore{products: []repo.Product{{ID: "p1", Name: "Box", UnitPrice: 10, Unit: "pc", MinQuantity: 50}}}
	index := &fakeIndex{}
	r := NewRunner(store, index, &fakeEmbedder{fail: true}, nil, testLogger(), Config{RAGNamespace: "knowledge"})

	if err := r.SyncCatalogIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(index.docs[0].Vector); got != llm.EmbeddingDim {
		t.Fatalf("vector dim = %d, want %d", got, llm.EmbeddingDim)
	}
}

func TestExpireHoldsNotifiesAndResetsBookingSessions(t *testing.T) {
	store := &fakeStore{expired: []repo.Booking{{BookingRef: "BKG-1", Phone: "+911111111111"}}}
	notifier := &fakeNotifier{}
	r := NewRunner(store, &fakeIndex{}, &fakeEmbedder{}, notifier, testLogger(), Config{})

	r.expireHolds(context.Background())

	if store.staged["+911111111111"] != "menu" {
		t.Fatalf("staged = %v", store.staged)
	}
	if len(notifier.bodies) != 1 || !strings.Contains(notifier.bodies[0], "BKG-1") {
		t.Fatalf("notices = %v", notifier.bodies)
	}
}

func TestRemindInactiveMarksOncePerSession(t *testing.T) {
	store := &fakeStore{inactives: []repo.Session{{Phone: "+912222222222"}}}
	notifier := &fakeNotifier{}
	r := NewRunner(store, &fakeIndex{}, &fakeEmbedder{}, notifier, testLogger(), Config{})

	r.remindInactive(context.Background())

	if len(notifier.to) != 1 || notifier.to[0] != "+912222222222" {
		t.Fatalf("reminders sent to %v", notifier.to)
	}
	if len(store.reminded) != 1 {
		t.Fatalf("reminded = %v", store.reminded)
	}
}
