package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"packbot/internal/llm"
	"packbot/internal/repo"
	"packbot/internal/vector"
)

// Embedder turns text into a vector for catalog indexing.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Indexer is the vector-store surface the catalog sync needs.
type Indexer interface {
	Upsert(ctx context.Context, namespace string, docs []vector.Document) error
}

// Notifier sends reminder and expiry texts.
type Notifier interface {
	SendText(ctx context.Context, to, body string) ([]string, error)
}

// Config holds the sweep cadences.
type Config struct {
	SweepInterval    time.Duration
	ReminderAfter    time.Duration
	CatalogSyncEvery time.Duration
	RAGNamespace     string
}

// Runner owns the periodic background sweeps: payment-hold expiry,
// catalog-to-vector indexing and inactivity reminders.
type Runner struct {
	store    repo.Store
	index    Indexer
	embedder Embedder
	notifier Notifier
	logger   *slog.Logger
	cfg      Config
}

// NewRunner creates the background job runner.
func NewRunner(store repo.Store, index Indexer, embedder Embedder, notifier Notifier, logger *slog.Logger, cfg Config) *Runner {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.ReminderAfter <= 0 {
		cfg.ReminderAfter = 24 * time.Hour
	}
	if cfg.CatalogSyncEvery <= 0 {
		cfg.CatalogSyncEvery = 6 * time.Hour
	}
	return &Runner{
		store:    store,
		index:    index,
		embedder: embedder,
		notifier: notifier,
		logger:   logger.With("component", "jobs"),
		cfg:      cfg,
	}
}

// Run blocks until ctx is cancelled, driving all sweeps off their tickers.
// The catalog index is synced once at startup so search works immediately.
func (r *Runner) Run(ctx context.Context) {
	if err := r.SyncCatalogIndex(ctx); err != nil {
		r.logger.Error("initial catalog index sync failed", "error", err)
	}

	sweep := time.NewTicker(r.cfg.SweepInterval)
	defer sweep.Stop()
	catalogSync := time.NewTicker(r.cfg.CatalogSyncEvery)
	defer catalogSync.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("background jobs stopped")
			return
		case <-sweep.C:
			r.expireHolds(ctx)
			r.remindInactive(ctx)
		case <-catalogSync.C:
			if err := r.SyncCatalogIndex(ctx); err != nil {
				r.logger.Error("catalog index sync failed", "error", err)
			}
		}
	}
}

// expireHolds releases unpaid orders and bookings past their hold window.
// Booking holders get a text; expired bookings free their slot capacity
// because capacity counting only sees pending and confirmed rows.
func (r *Runner) expireHolds(ctx context.Context) {
	now := time.Now()

	refs, err := r.store.ExpirePendingOrders(ctx, now)
	if err != nil {
		r.logger.Error("failed expiring orders", "error", err)
	} else if len(refs) > 0 {
		r.logger.Info("expired unpaid orders", "count", len(refs), "refs", refs)
	}

	bookings, err := r.store.ExpirePendingBookings(ctx, now)
	if err != nil {
		r.logger.Error("failed expiring bookings", "error", err)
		return
	}
	for _, b := range bookings {
		r.logger.Info("expired unpaid booking", "ref", b.BookingRef, "phone", b.Phone)
		if err := r.store.SetSessionStage(ctx, b.Phone, "menu"); err != nil {
			r.logger.Warn("failed resetting session after booking expiry", "phone", b.Phone, "error", err)
		}
		if r.notifier == nil {
			continue
		}
		body := fmt.Sprintf("Your slot hold *%s* expired because the payment did not arrive in time. The spots are released. Type *hi* to book again.", b.BookingRef)
		if _, err := r.notifier.SendText(ctx, b.Phone, body); err != nil {
			r.logger.Warn("failed sending expiry notice", "phone", b.Phone, "error", err)
		}
	}
}

const reminderBatch = 100

const reminderBody = "Hi! You had started a conversation with us. Reply anytime to pick up where you left off, or type *hi* for the menu."

// remindInactive nudges sessions quiet beyond the reminder window, once
// per session.
func (r *Runner) remindInactive(ctx context.Context) {
	if r.notifier == nil {
		return
	}
	cutoff := time.Now().Add(-r.cfg.ReminderAfter)
	sessions, err := r.store.ListInactiveSessions(ctx, cutoff, reminderBatch)
	if err != nil {
		r.logger.Error("failed listing inactive sessions", "error", err)
		return
	}
	for _, s := range sessions {
		if _, err := r.notifier.SendText(ctx, s.Phone, reminderBody); err != nil {
			r.logger.Warn("failed sending reminder", "phone", s.Phone, "error", err)
			continue
		}
		if err := r.store.MarkSessionReminded(ctx, s.Phone); err != nil {
			r.logger.Warn("failed marking session reminded", "phone", s.Phone, "error", err)
		}
	}
}

// SyncCatalogIndex embeds every catalog product into the knowledge
// namespace so the assistant can answer product questions with prices and
// images. Embedding failures fall back to the deterministic vector so the
// document is still retrievable after a re-embed.
func (r *Runner) SyncCatalogIndex(ctx context.Context) error {
	products, err := r.store.ListAllProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil
	}

	docs := make([]vector.Document, 0, len(products))
	for _, p := range products {
		content := productDocument(p)
		vec, err := r.embedder.Embed(ctx, content)
		if err != nil {
			r.logger.Warn("falling back to deterministic vector for product", "product", p.ID, "error", err)
			vec = llm.FallbackVector(content)
		}
		meta := map[string]string{
			"type":        "product",
			"productId":   p.ID,
			"gstCategory": p.GSTCategory,
		}
		if p.ImageURL != nil {
			meta["imageUrl"] = *p.ImageURL
		}
		docs = append(docs, vector.Document{
			ID:       "product:" + p.ID,
			Content:  content,
			Metadata: meta,
			Vector:   vec,
		})
	}

	if err := r.index.Upsert(ctx, r.cfg.RAGNamespace, docs); err != nil {
		return fmt.Errorf("upsert product documents: %w", err)
	}
	r.logger.Info("catalog index synced", "products", len(docs))
	return nil
}

func productDocument(p repo.Product) string {
	return fmt.Sprintf("%s, priced at ₹%d per %s, minimum order %d pieces.", p.Name, p.UnitPrice, p.Unit, p.MinQuantity)
}
