package notify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("notify: user not found")

type User struct {
	ID    string
	Name  string
	Email string
}

// Directory resolves a user id to a deliverable address.
type Directory interface {
	Lookup(ctx context.Context, userID string) (User, error)
}

type PGDirectory struct {
	DB *pgxpool.Pool
}

func (d *PGDirectory) Lookup(ctx context.Context, userID string) (User, error) {
	u := User{ID: userID}
	err := d.DB.QueryRow(ctx, `SELECT name, email FROM users WHERE id = $1`, userID).
		Scan(&u.Name, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
