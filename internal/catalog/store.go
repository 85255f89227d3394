package catalog

import (
	"context"
	"fmt"
)

// LineRequest asks for qty units of one product.
type LineRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Reservation is a successful decrement with the unit price snapshotted from
// the same statement that took the stock.
type Reservation struct {
	ProductID      string
	Qty            int
	UnitPriceCents int64
}

type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Store owns product records. Stock never goes below zero: Reserve and
// Restock are the only mutation paths and both are single conditional
// updates against the persisted value.
type Store interface {
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)

	// Reserve decrements stock for every line or for none of them. A
	// shortfall or a missing product aborts the whole reservation and
	// returns the typed error for the offending line.
	Reserve(ctx context.Context, lines []LineRequest) ([]Reservation, error)

	// Restock increments stock for each line. Products that no longer exist
	// are skipped and returned; they never fail the call.
	Restock(ctx context.Context, lines []LineRequest) (missing []string, err error)
}
