// Package authpw provides email/password account management.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"waps/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailTaken is returned on sign-up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is the single failure for sign-in, so the
	// response never reveals whether the email exists.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserStore is the account storage the service needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUserByID(ctx context.Context, id string) (*store.User, error)
	CreateUser(ctx context.Context, user store.User) error
}

type Service struct {
	store UserStore
	newID func() string
}

func NewService(userStore UserStore, newID func() string) *Service {
	return &Service{store: userStore, newID: newID}
}

// SignUp registers a new account. Emails are matched case- and
// whitespace-insensitively.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return store.User{}, errors.New("a valid email is required")
	}
	if len(password) < 8 {
		return store.User{}, errors.New("password must be at least 8 characters")
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, err
	}
	if existing != nil {
		return store.User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           s.newID(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// SignIn verifies credentials and returns the account.
func (s *Service) SignIn(ctx context.Context, email, password string) (store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, err
	}
	if user == nil {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return *user, nil
}
