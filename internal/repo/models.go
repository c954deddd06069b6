package repo

import "time"

// UserType classifies a customer for MOQ, rate and GST selection.
type UserType string

const (
	UserTypeHomebaker  UserType = "Homebakers"
	UserTypeStoreOwner UserType = "StoreOwnerBulkBuyer"
	UserTypeSweetShop  UserType = "SweetShopOwner"
)

// Session represents the per-phone conversation state row.
type Session struct {
	ID            string
	Phone         string
	Stage         string
	PreviousStage *string
	UserType      *UserType
	Context       map[string]any
	LastMessageAt time.Time
	RemindedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChatMessage is an immutable chat-history log row.
type ChatMessage struct {
	ID                string
	Phone             string
	Sender            string
	Body              *string
	MediaURL          *string
	ProviderMessageID *string
	DeliveryStatus    *string
	CreatedAt         time.Time
}

// Chat history sender values.
const (
	SenderUser      = "user"
	SenderBot       = "bot"
	SenderAdmin     = "admin"
	SenderAdminBulk = "admin_bulk"
)

// Order statuses.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusFailed    = "FAILED"
	OrderStatusExpired   = "EXPIRED"
	OrderStatusCancelled = "CANCELLED"
)

// Order represents a quotation or checkout order.
type Order struct {
	ID              string
	OrderRef        string
	Phone           string
	CustomerName    *string
	CustomerAddress *string
	CustomerPincode *string
	Status          string
	Subtotal        int64
	GSTAmount       int64
	TotalAmount     int64
	PaymentID       *string
	ExpiresAt       *time.Time
	Metadata        map[string]any
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is a single order line.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
	LineTotal int64
	Size      *string
	Color     *string
}

// Booking statuses.
const (
	BookingStatusPendingPayment = "pending_payment"
	BookingStatusConfirmed      = "confirmed"
	BookingStatusCancelled      = "cancelled"
	BookingStatusExpired        = "expired"
)

// Booking represents a reserved court slot.
type Booking struct {
	ID          string
	BookingRef  string
	Phone       string
	Date        time.Time
	TimeSlot    string
	Court       int
	DurationMin int
	PlayerCount int
	Amount      int64
	Status      string
	PaymentID   *string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Lead captures prospect contact details and the question that produced them.
type Lead struct {
	ID          string
	Phone       string
	Name        *string
	City        *string
	Pincode     *string
	UserType    *UserType
	Question    *string
	ArtifactURL *string
	CreatedAt   time.Time
}

// Category is a catalog category node; TopLevel when ParentID is nil.
type Category struct {
	ID       string
	Name     string
	ParentID *string
	Position int
}

// Product is a sellable catalog entry.
type Product struct {
	ID          string
	CategoryID  string
	Name        string
	UnitPrice   int64
	Unit        string
	MinQuantity int
	GSTCategory string
	ImageURL    *string
	Position    int
}

// APIKey represents a record in the api_keys table.
type APIKey struct {
	ID            string
	Provider      string
	Value         string
	Status        string
	CooldownUntil *time.Time
	LastUsedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
