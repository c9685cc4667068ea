package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/viewlulu/pouch-backend/internal/catalog"
	"github.com/viewlulu/pouch-backend/internal/catalog/mock"
	"github.com/viewlulu/pouch-backend/internal/config"
)

func newTestService(users catalog.UserRepository) *Service {
	return NewService(users, config.AuthConfig{
		JWTSecret:  "test-secret",
		BcryptCost: 4, // minimum cost keeps the tests fast
		TokenDays:  7,
	})
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "alice@example.com", "password123", nil},
		{"empty email", "", "password123", catalog.ErrInvalidInput},
		{"empty password", "alice@example.com", "", catalog.ErrInvalidInput},
		{"malformed email", "not-an-email", "password123", catalog.ErrInvalidInput},
		{"short password", "alice@example.com", "short", catalog.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(mock.NewMockUserRepository())
			user, err := svc.Register(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.ID == 0 {
				t.Error("expected user to be assigned an id")
			}
			if user.PasswordHash == tt.password {
				t.Error("password must not be stored in clear text")
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(mock.NewMockUserRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "password123"); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	_, err := svc.Register(ctx, "alice@example.com", "different-pass")
	if !errors.Is(err, catalog.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLoginAndVerify(t *testing.T) {
	svc := newTestService(mock.NewMockUserRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, err := svc.Login(ctx, "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	identity, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if identity.UserID != user.ID {
		t.Errorf("expected user id %d, got %d", user.ID, identity.UserID)
	}
	if identity.Email != "bob@example.com" {
		t.Errorf("expected email bob@example.com, got %q", identity.Email)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newTestService(mock.NewMockUserRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "carol@example.com", "password123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "carol@example.com", "wrong-password")
		if !errors.Is(err, catalog.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "password123")
		if !errors.Is(err, catalog.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(mock.NewMockUserRepository())

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.VerifyToken(token); !errors.Is(err, catalog.ErrUnauthorized) {
			t.Errorf("token %q: expected ErrUnauthorized, got %v", token, err)
		}
	}
}

func TestVerifyTokenRejectsForeignSecret(t *testing.T) {
	issuer := newTestService(mock.NewMockUserRepository())
	ctx := context.Background()
	if _, err := issuer.Register(ctx, "dave@example.com", "password123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	token, err := issuer.Login(ctx, "dave@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	verifier := NewService(mock.NewMockUserRepository(), config.AuthConfig{
		JWTSecret:  "another-secret",
		BcryptCost: 4,
		TokenDays:  7,
	})
	if _, err := verifier.VerifyToken(token); !errors.Is(err, catalog.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
