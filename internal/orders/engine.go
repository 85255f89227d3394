package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grocart/storefront/internal/auth"
	"github.com/grocart/storefront/internal/catalog"
)

// TransitionGuard decides, under the repository's row lock, whether an order
// in the given status may make the requested transition. Returning an error
// aborts the transaction with nothing written.
type TransitionGuard func(from Status) error

// Repository persists orders and their history.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, int, error)

	// Transition atomically checks the guard against the current status,
	// updates it, and appends the history entry (with the cancellation
	// fields when cancel is non-nil) in one transaction.
	Transition(ctx context.Context, id string, to Status, entry HistoryEntry, cancel *Cancellation, guard TransitionGuard) (*Order, error)
}

// PlaceOrderRequest is the validated input to PlaceOrder.
type PlaceOrderRequest struct {
	Items           []catalog.LineRequest `json:"items"`
	ShippingAddress Address               `json:"shipping_address"`
}

// Engine governs the whole order lifecycle: placement with stock
// reservation, listing, cancellation with stock restoration, and forced
// status transitions. It is stateless between calls.
type Engine struct {
	Catalog catalog.Store
	Repo    Repository
	Sink    Sink
	Log     *zap.Logger

	// Overridable for tests.
	Now   func() time.Time
	NewID func() string
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e *Engine) log() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

// PlaceOrder validates the request, reserves stock for every line as one
// all-or-nothing unit, snapshots unit prices, and creates the order in
// pending status with its first history entry.
func (e *Engine) PlaceOrder(ctx context.Context, p auth.Principal, req PlaceOrderRequest) (*Order, error) {
	if verr := validatePlaceOrder(req); verr != nil {
		return nil, verr
	}

	reservations, err := e.Catalog.Reserve(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	now := e.now()
	items := make([]LineItem, 0, len(reservations))
	var total int64
	for _, res := range reservations {
		items = append(items, LineItem{
			ProductID:      res.ProductID,
			Qty:            res.Qty,
			UnitPriceCents: res.UnitPriceCents,
		})
		total += res.UnitPriceCents * int64(res.Qty)
	}

	o := &Order{
		ID:              e.newID(),
		UserID:          p.UserID,
		Items:           items,
		TotalCents:      total,
		Status:          StatusPending,
		ShippingAddress: req.ShippingAddress,
		History: []HistoryEntry{{
			Status:    StatusPending,
			ActorID:   p.UserID,
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.Repo.Create(ctx, o); err != nil {
		// Stock is already taken; hand it back before reporting failure.
		e.restock(ctx, o)
		e.log().Error("order create failed after reservation",
			zap.String("order_id", o.ID), zap.Error(err))
		return nil, fmt.Errorf("create order: %w", err)
	}

	if e.Sink != nil {
		e.Sink.OrderPlaced(ctx, o)
	}
	e.log().Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", p.UserID),
		zap.Int64("total_cents", total))
	return o, nil
}

// ListOrders returns a filtered, newest-first page of orders plus the total
// match count. Non-admin callers only ever see their own orders.
func (e *Engine) ListOrders(ctx context.Context, p auth.Principal, f Filter) ([]Order, int, error) {
	if !p.IsAdmin() {
		f.UserID = p.UserID
	}
	return e.Repo.List(ctx, f.Normalize())
}

// GetOrder fetches one order for its owner or an administrator.
func (e *Engine) GetOrder(ctx context.Context, p auth.Principal, orderID string) (*Order, error) {
	o, err := e.Repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && o.UserID != p.UserID {
		return nil, ErrForbidden
	}
	return o, nil
}

// CancelOrder lets the owner cancel a still-pending order. The reserved
// stock of every line is restored.
func (e *Engine) CancelOrder(ctx context.Context, p auth.Principal, orderID, reason string) (*Order, error) {
	if reason == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "reason", Message: "cancellation reason is required"}}}
	}

	o, err := e.Repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// A stranger's order looks exactly like a missing one.
	if !p.IsAdmin() && o.UserID != p.UserID {
		return nil, ErrNotFound
	}

	now := e.now()
	updated, err := e.Repo.Transition(ctx, orderID, StatusCancelled,
		HistoryEntry{Status: StatusCancelled, ActorID: p.UserID, Comment: reason, CreatedAt: now},
		&Cancellation{At: now, By: p.UserID, Reason: reason},
		func(from Status) error {
			if from != StatusPending {
				return &InvalidTransitionError{From: from, To: StatusCancelled}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	e.restock(ctx, updated)
	if e.Sink != nil {
		e.Sink.StatusChanged(ctx, updated, o.Status, reason)
	}
	e.log().Info("order cancelled",
		zap.String("order_id", orderID), zap.String("user_id", p.UserID))
	return updated, nil
}

// UpdateStatus is the administrator capability to force any transition the
// table allows. A transition into cancelled restores stock exactly like
// CancelOrder does.
func (e *Engine) UpdateStatus(ctx context.Context, p auth.Principal, orderID string, to Status, comment string) (*Order, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if !to.Valid() {
		return nil, &ValidationError{Fields: []FieldError{{Field: "status", Message: "must be one of pending, processing, shipped, delivered, cancelled"}}}
	}

	o, err := e.Repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var cancel *Cancellation
	if to == StatusCancelled {
		reason := comment
		if reason == "" {
			reason = "cancelled by administrator"
		}
		cancel = &Cancellation{At: now, By: p.UserID, Reason: reason}
	}

	updated, err := e.Repo.Transition(ctx, orderID, to,
		HistoryEntry{Status: to, ActorID: p.UserID, Comment: comment, CreatedAt: now},
		cancel,
		func(from Status) error {
			if !CanTransition(from, to) {
				return &InvalidTransitionError{From: from, To: to}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	if to == StatusCancelled {
		e.restock(ctx, updated)
	}
	if e.Sink != nil {
		e.Sink.StatusChanged(ctx, updated, o.Status, comment)
	}
	e.log().Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(o.Status)),
		zap.String("to", string(to)))
	return updated, nil
}

// GetOrderHistory returns the audit trail, oldest entry first.
func (e *Engine) GetOrderHistory(ctx context.Context, p auth.Principal, orderID string) ([]HistoryEntry, error) {
	o, err := e.Repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && o.UserID != p.UserID {
		return nil, ErrForbidden
	}
	return o.History, nil
}

// restock returns every line's quantity to the catalog. Products deleted
// since placement are skipped with a warning; restoration never fails the
// operation that triggered it.
func (e *Engine) restock(ctx context.Context, o *Order) {
	lines := make([]catalog.LineRequest, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, catalog.LineRequest{ProductID: it.ProductID, Qty: it.Qty})
	}
	missing, err := e.Catalog.Restock(ctx, lines)
	if err != nil {
		e.log().Error("stock restoration failed",
			zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	for _, id := range missing {
		e.log().Warn("restock skipped, product no longer exists",
			zap.String("order_id", o.ID), zap.String("product_id", id))
	}
}

func validatePlaceOrder(req PlaceOrderRequest) *ValidationError {
	var fields []FieldError
	if len(req.Items) == 0 {
		fields = append(fields, FieldError{Field: "items", Message: "at least one item is required"})
	}
	for i, it := range req.Items {
		if it.ProductID == "" {
			fields = append(fields, FieldError{Field: fmt.Sprintf("items[%d].product_id", i), Message: "product id is required"})
		}
		if it.Qty < 1 {
			fields = append(fields, FieldError{Field: fmt.Sprintf("items[%d].qty", i), Message: "quantity must be at least 1"})
		}
	}
	addr := req.ShippingAddress
	for _, f := range []struct {
		name, value string
	}{
		{"shipping_address.street", addr.Street},
		{"shipping_address.city", addr.City},
		{"shipping_address.state", addr.State},
		{"shipping_address.zip_code", addr.ZipCode},
		{"shipping_address.country", addr.Country},
	} {
		if f.value == "" {
			fields = append(fields, FieldError{Field: f.name, Message: "is required"})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
