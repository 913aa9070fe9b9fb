package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin  = "admin"
	RoleIssuer = "issuer"

	tokenTTL = 24 * time.Hour
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrAuthFailed    = errors.New("authentication failed")
)

type Service struct {
	store  AccountStore
	secret []byte
}

func NewService(db *sql.DB, secret []byte) *Service {
	return &Service{store: NewStore(db), secret: secret}
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, in RegisterInput) error
	Remove(ctx context.Context, username string) error
	Update(ctx context.Context, username string, in UpdateInput) error
}

type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Role     string
}

type UpdateInput struct {
	Email    *string
	FullName *string
	Password *string
}

func (s *Service) EnsureSchema(ctx context.Context) error {
	return s.store.EnsureSchema(ctx)
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	acct, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", ErrAuthFailed
	}
	if acct.IsDisabled {
		return "", ErrAuthFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrAuthFailed
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  acct.Username,
		"role": acct.Role,
		"exp":  time.Now().Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	exists, err := s.store.GetByUsername(ctx, in.Username)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	role := in.Role
	if role == "" {
		role = RoleIssuer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.store.Create(ctx, &Account{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: string(hash),
		Role:         role,
		IsDisabled:   false,
	})
}

func (s *Service) Remove(ctx context.Context, username string) error {
	n, err := s.store.Delete(ctx, username)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Update(ctx context.Context, username string, in UpdateInput) error {
	// 対象が存在するか（同値UPDATEはRowsAffected=0になるため先に確認）
	acct, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrNotFound
	}

	u := AccountUpdate{Email: in.Email, FullName: in.FullName}
	if in.Password != nil && *in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		h := string(hash)
		u.PasswordHash = &h
	}

	_, err = s.store.Update(ctx, username, u)
	return err
}
