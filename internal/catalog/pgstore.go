package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the postgres-backed catalog.
type PGStore struct {
	DB *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	err := s.DB.QueryRow(ctx, `
		SELECT id, sku, name, category, price_cents, stock, created_at, updated_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &NotFoundError{ProductID: id}
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PGStore) List(ctx context.Context) ([]Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, sku, name, category, price_cents, stock, created_at, updated_at
		FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.DB.QueryRow(ctx, `
		INSERT INTO products(id, sku, name, category, price_cents, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		p.ID, p.SKU, p.Name, p.Category, p.PriceCents, p.Stock).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// Reserve runs all decrements in one transaction. Each line is a single
// conditional update, so two concurrent reservations for the same product
// can never drive stock negative: the condition fails for the loser and the
// whole transaction rolls back.
func (s *PGStore) Reserve(ctx context.Context, lines []LineRequest) ([]Reservation, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]Reservation, 0, len(lines))
	for _, ln := range lines {
		var price int64
		err := tx.QueryRow(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2
			RETURNING price_cents`, ln.ProductID, ln.Qty).Scan(&price)
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the product is gone or there was not enough stock.
			var available int
			err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, ln.ProductID).Scan(&available)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &NotFoundError{ProductID: ln.ProductID}
			}
			if err != nil {
				return nil, err
			}
			return nil, &InsufficientStockError{ProductID: ln.ProductID, Requested: ln.Qty, Available: available}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Reservation{ProductID: ln.ProductID, Qty: ln.Qty, UnitPriceCents: price})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PGStore) Restock(ctx context.Context, lines []LineRequest) ([]string, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var missing []string
	for _, ln := range lines {
		ct, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock + $2, updated_at = now()
			WHERE id = $1`, ln.ProductID, ln.Qty)
		if err != nil {
			return nil, err
		}
		if ct.RowsAffected() == 0 {
			missing = append(missing, ln.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return missing, nil
}
