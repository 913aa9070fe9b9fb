package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeStore struct {
	accounts map[string]*Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]*Account{}}
}

func (f *fakeStore) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeStore) GetByUsername(ctx context.Context, username string) (*Account, error) {
	a, ok := f.accounts[username]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) Create(ctx context.Context, a *Account) error {
	cp := *a
	f.accounts[a.Username] = &cp
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, username string) (int64, error) {
	if _, ok := f.accounts[username]; !ok {
		return 0, nil
	}
	delete(f.accounts, username)
	return 1, nil
}

func (f *fakeStore) Update(ctx context.Context, username string, u AccountUpdate) (int64, error) {
	a, ok := f.accounts[username]
	if !ok {
		return 0, nil
	}
	if u.Email != nil {
		a.Email = *u.Email
	}
	if u.FullName != nil {
		a.FullName = *u.FullName
	}
	if u.PasswordHash != nil {
		a.PasswordHash = *u.PasswordHash
	}
	return 1, nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	return &Service{store: store, secret: testSecret}, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	err := svc.Register(ctx, RegisterInput{
		Username: "ops1",
		Email:    "ops1@example.org",
		FullName: "Operator One",
		Password: "s3cret",
	})
	require.NoError(t, err)

	tokenStr, err := svc.Login(ctx, "ops1", "s3cret")
	require.NoError(t, err)

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) { return testSecret, nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "ops1", claims["sub"])
	// 未指定ロールは issuer になる
	assert.Equal(t, RoleIssuer, claims["role"])
}

func TestLoginFailures(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterInput{Username: "ops1", Password: "s3cret"}))

	_, err := svc.Login(ctx, "ops1", "wrong")
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = svc.Login(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrAuthFailed)

	store.accounts["ops1"].IsDisabled = true
	_, err = svc.Login(ctx, "ops1", "s3cret")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterInput{Username: "ops1", Password: "a"}))
	err := svc.Register(ctx, RegisterInput{Username: "ops1", Password: "b"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUpdatePassword(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterInput{Username: "ops1", Password: "old"}))

	newPass := "new-password"
	require.NoError(t, svc.Update(ctx, "ops1", UpdateInput{Password: &newPass}))

	hash := store.accounts["ops1"].PasswordHash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(newPass)))

	_, err := svc.Login(ctx, "ops1", "old")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestRemoveUnknown(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Remove(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
