package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrEmailTaken is returned when an account with the same email exists.
var ErrEmailTaken = errors.New("email already in use")

// CreateAccount inserts a new account.
func (db *DB) CreateAccount(ctx context.Context, a *Account) error {
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		a.UserID, a.Email, a.PasswordHash, a.CreatedAt)
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrEmailTaken
	}
	return err
}

// AccountByEmail returns the account for email, or nil if none exists.
func (db *DB) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return db.scanAccount(db.QueryRowContext(ctx, `
		SELECT user_id, email, password_hash, created_at FROM accounts WHERE email = ?`, email))
}

// AccountByID returns the account for userID, or nil if none exists.
func (db *DB) AccountByID(ctx context.Context, userID string) (*Account, error) {
	return db.scanAccount(db.QueryRowContext(ctx, `
		SELECT user_id, email, password_hash, created_at FROM accounts WHERE user_id = ?`, userID))
}

func (db *DB) scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.UserID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
