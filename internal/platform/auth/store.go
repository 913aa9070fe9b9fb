package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type Account struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    string
}

// 変更したい項目だけ非nilにする
type AccountUpdate struct {
	Email        *string
	FullName     *string
	PasswordHash *string
}

type AccountStore interface {
	EnsureSchema(ctx context.Context) error
	GetByUsername(ctx context.Context, username string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Delete(ctx context.Context, username string) (int64, error)
	Update(ctx context.Context, username string, u AccountUpdate) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

// EnsureSchema: 起動毎に呼んで良い（IF NOT EXISTS）
func (s *Store) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS accounts (
	username      VARCHAR(190) NOT NULL,
	email         VARCHAR(255) NOT NULL DEFAULT '',
	full_name     VARCHAR(255) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL,
	role          VARCHAR(32)  NOT NULL DEFAULT 'issuer',
	is_disabled   TINYINT(1)   NOT NULL DEFAULT 0,
	created_at    DATETIME(6)  NOT NULL,
	PRIMARY KEY (username)
)`
	_, err := s.db.ExecContext(ctx, q)
	return err
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	const q = `
SELECT username, email, full_name, password_hash, role, is_disabled, created_at
FROM accounts
WHERE username = ?
LIMIT 1
`
	var a Account
	var isDisabledInt int
	err := s.db.QueryRowContext(ctx, q, username).Scan(
		&a.Username,
		&a.Email,
		&a.FullName,
		&a.PasswordHash,
		&a.Role,
		&isDisabledInt,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if isDisabledInt != 0 {
		a.IsDisabled = true
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO accounts (username, email, full_name, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, ?, ?, 0, NOW(6))
`
	_, err := s.db.ExecContext(ctx, q, a.Username, a.Email, a.FullName, a.PasswordHash, a.Role)
	return err
}

func (s *Store) Delete(ctx context.Context, username string) (int64, error) {
	const q = `DELETE FROM accounts WHERE username = ?`
	res, err := s.db.ExecContext(ctx, q, username)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Update(ctx context.Context, username string, u AccountUpdate) (int64, error) {
	// 指定された項目だけSET句を組み立てる
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if u.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *u.Email)
	}
	if u.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *u.FullName)
	}
	if u.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *u.PasswordHash)
	}
	if len(sets) == 0 {
		return 0, nil
	}

	q := "UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE username = ?"
	args = append(args, username)

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
