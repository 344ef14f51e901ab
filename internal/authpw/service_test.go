package authpw

import (
	"context"
	"errors"
	"testing"

	"waps/api/internal/store"
)

type memUserStore struct {
	users map[string]*store.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*store.User)}
}

func (m *memUserStore) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) GetUserByID(_ context.Context, id string) (*store.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *memUserStore) CreateUser(_ context.Context, user store.User) error {
	m.users[user.ID] = &user
	return nil
}

func newTestService() *Service {
	counter := 0
	return NewService(newMemUserStore(), func() string {
		counter++
		return "usr_" + string(rune('a'+counter))
	})
}

func TestSignUpNormalizesEmail(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	user, err := service.SignUp(ctx, "  Dev@Example.COM ", "correct-horse", "  Dev  ")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Email != "dev@example.com" {
		t.Fatalf("email = %q", user.Email)
	}
	if user.Name != "Dev" {
		t.Fatalf("name = %q", user.Name)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct-horse" {
		t.Fatal("password stored in the clear")
	}
}

func TestSignUpValidatesInput(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	if _, err := service.SignUp(ctx, "no-at-sign", "correct-horse", ""); err == nil {
		t.Fatal("bogus email accepted")
	}
	if _, err := service.SignUp(ctx, "dev@example.com", "short", ""); err == nil {
		t.Fatal("short password accepted")
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	if _, err := service.SignUp(ctx, "dev@example.com", "correct-horse", ""); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	_, err := service.SignUp(ctx, "DEV@example.com", "correct-horse", "")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate sign up = %v, want ErrEmailTaken", err)
	}
}

func TestSignInVerifiesPassword(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	created, err := service.SignUp(ctx, "dev@example.com", "correct-horse", "Dev")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	user, err := service.SignIn(ctx, "Dev@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("user = %q, want %q", user.ID, created.ID)
	}

	if _, err := service.SignIn(ctx, "dev@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.SignIn(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}
