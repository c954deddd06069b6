package repo

import (
	"context"
	"io/fs"
	"time"
)

// Store defines the interface for data persistence.
type Store interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Sessions
	GetSession(ctx context.Context, phone string) (*Session, error)
	UpsertSession(ctx context.Context, s Session) (*Session, error)
	TouchSession(ctx context.Context, phone string) error
	SetSessionStage(ctx context.Context, phone, stage string) error
	ListInactiveSessions(ctx context.Context, cutoff time.Time, limit int) ([]Session, error)
	MarkSessionReminded(ctx context.Context, phone string) error

	// Chat history
	InsertChatMessage(ctx context.Context, msg ChatMessage) error
	UpdateDeliveryStatus(ctx context.Context, providerMessageID, status string) error
	ListRecentChat(ctx context.Context, phone string, limit int) ([]ChatMessage, error)

	// API keys
	SyncGeminiKeys(ctx context.Context, keys []string) error
	ListActiveGeminiKeys(ctx context.Context) ([]APIKey, error)
	MarkKeyUsed(ctx context.Context, id string) error
	SetCooldownUntil(ctx context.Context, id string, until time.Time) error

	// Orders
	InsertOrder(ctx context.Context, order Order) (*Order, error)
	GetOrderByRef(ctx context.Context, ref string) (*Order, error)
	MarkOrderPaid(ctx context.Context, orderRef, paymentID string) (bool, error)
	UpdateOrderStatus(ctx context.Context, orderRef, status string, metadata map[string]any) error
	ExpirePendingOrders(ctx context.Context, now time.Time) ([]string, error)

	// Bookings
	InsertBooking(ctx context.Context, b Booking) (*Booking, error)
	GetBookingByRef(ctx context.Context, ref string) (*Booking, error)
	CountPlayers(ctx context.Context, date time.Time, timeSlot string, court int) (int, error)
	MarkBookingConfirmed(ctx context.Context, bookingRef, paymentID string) (bool, error)
	ExpirePendingBookings(ctx context.Context, now time.Time) ([]Booking, error)

	// Leads
	InsertLead(ctx context.Context, lead Lead) (*Lead, error)
	ListLeads(ctx context.Context, limit int) ([]Lead, error)

	// Catalog
	ListTopCategories(ctx context.Context) ([]Category, error)
	ListSubCategories(ctx context.Context, parentID string) ([]Category, error)
	ListProducts(ctx context.Context, categoryID string) ([]Product, error)
	ListAllProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
}

var _ Store = (*Repository)(nil)
