package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the postgres-backed order repository.
type Repo struct {
	DB *pgxpool.Pool
}

var _ Repository = (*Repo)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so reads can run
// inside or outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents,
			street, city, state, zip_code, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		o.ID, o.UserID, o.Status, o.TotalCents,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
		o.ShippingAddress.ZipCode, o.ShippingAddress.Country, o.CreatedAt)
	if err != nil {
		return err
	}

	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, product_id, qty, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, it.ProductID, it.Qty, it.UnitPriceCents); err != nil {
			return err
		}
	}

	for _, h := range o.History {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_history(order_id, status, actor_id, comment, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, h.Status, h.ActorID, nullable(h.Comment), h.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	return getOrder(ctx, r.DB, id)
}

func getOrder(ctx context.Context, q querier, id string) (*Order, error) {
	o := &Order{}
	var reason *string
	var cancelledBy *string
	err := q.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents,
			street, city, state, zip_code, country,
			cancelled_at, cancelled_by, cancellation_reason,
			created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents,
			&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
			&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
			&o.CancelledAt, &cancelledBy, &reason,
			&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if cancelledBy != nil {
		o.CancelledBy = *cancelledBy
	}
	if reason != nil {
		o.CancellationReason = *reason
	}

	if err := loadItems(ctx, q, []*Order{o}); err != nil {
		return nil, err
	}
	if err := loadHistory(ctx, q, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Order, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageArgs := append(args, f.Limit, f.Offset())
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`
		SELECT id, user_id, status, total_cents,
			street, city, state, zip_code, country,
			cancelled_at, cancelled_by, cancellation_reason,
			created_at, updated_at
		FROM orders%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2), pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var reason, cancelledBy *string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents,
			&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
			&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
			&o.CancelledAt, &cancelledBy, &reason,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if cancelledBy != nil {
			o.CancelledBy = *cancelledBy
		}
		if reason != nil {
			o.CancellationReason = *reason
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	refs := make([]*Order, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err := loadItems(ctx, r.DB, refs); err != nil {
		return nil, 0, err
	}
	if err := loadHistory(ctx, r.DB, refs); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, vals ...any) {
		n := len(args)
		for i := range vals {
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", n+i+1), 1)
		}
		conds = append(conds, cond)
		args = append(args, vals...)
	}

	if f.UserID != "" {
		add("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.Search != "" {
		pat := "%" + f.Search + "%"
		add("(city ILIKE ? OR state ILIKE ?)", pat, pat)
	}
	if f.StartDate != nil {
		add("created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		add("created_at <= ?", *f.EndDate)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func loadItems(ctx context.Context, q querier, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, qty, unit_price_cents
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it LineItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Qty, &it.UnitPriceCents); err != nil {
			return err
		}
		if o := byID[orderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func loadHistory(ctx context.Context, q querier, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := q.Query(ctx, `
		SELECT order_id, status, actor_id, COALESCE(comment, ''), created_at
		FROM order_history
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var h HistoryEntry
		if err := rows.Scan(&orderID, &h.Status, &h.ActorID, &h.Comment, &h.CreatedAt); err != nil {
			return err
		}
		if o := byID[orderID]; o != nil {
			o.History = append(o.History, h)
		}
	}
	return rows.Err()
}

// Transition locks the order row, runs the guard against the status it
// found, then writes the new status and the history entry as one unit.
func (r *Repo) Transition(ctx context.Context, id string, to Status, entry HistoryEntry, cancel *Cancellation, guard TransitionGuard) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(from); err != nil {
			return nil, err
		}
	}

	if cancel != nil {
		_, err = tx.Exec(ctx, `
			UPDATE orders
			SET status = $2, cancelled_at = $3, cancelled_by = $4,
				cancellation_reason = $5, updated_at = $6
			WHERE id = $1`,
			id, to, cancel.At, cancel.By, cancel.Reason, entry.CreatedAt)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
			id, to, entry.CreatedAt)
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_history(order_id, status, actor_id, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, entry.Status, entry.ActorID, nullable(entry.Comment), entry.CreatedAt); err != nil {
		return nil, err
	}

	o, err := getOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
