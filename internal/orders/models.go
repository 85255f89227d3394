package orders

import "time"

// Address is the shipping destination. All five fields are required.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// LineItem is one product entry within an order. UnitPriceCents is the
// product price snapshotted at placement; later price changes never touch it.
type LineItem struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// HistoryEntry records one status transition and who made it. Entries are
// append-only and never edited once written.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	ActorID   string    `json:"actor_id"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Items           []LineItem     `json:"items"`
	TotalCents      int64          `json:"total_cents"`
	Status          Status         `json:"status"`
	ShippingAddress Address        `json:"shipping_address"`
	History         []HistoryEntry `json:"history"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cancellation carries the fields that must be set together when an order
// reaches the terminal cancelled state.
type Cancellation struct {
	At     time.Time
	By     string
	Reason string
}
