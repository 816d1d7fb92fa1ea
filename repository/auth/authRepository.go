package authrepo

import (
	"context"
	"database/sql"
	"errors"

	"textbookindent/model"
)

type Repo interface {
	ByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
SELECT id, first_name, last_name, email, username, role, password_hash, created_at
FROM users
WHERE email = $1`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.Role, &u.PasswordHash, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (first_name, last_name, email, username, role, password_hash)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q,
		u.FirstName, u.LastName, u.Email, u.Username, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
}
