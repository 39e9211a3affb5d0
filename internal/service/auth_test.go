package service

import (
	"context"
	"errors"
	"testing"

	"github.com/brixsport/backend/internal/domain"
)

type fakeUserStore struct {
	users map[int64]*domain.User
}

func (s *fakeUserStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) Upsert(_ context.Context, user domain.User) (*domain.User, error) {
	user.ID = int64(len(s.users) + 1)
	user.Role = domain.RoleUser
	user.Active = true
	s.users[user.ID] = &user
	return &user, nil
}

func newAuthFixture() (*AuthService, *fakeUserStore) {
	store := &fakeUserStore{users: make(map[int64]*domain.User)}
	svc := NewAuthService(store, AuthConfig{
		JWTSecret:   "test-secret",
		FrontendURL: "http://localhost:3000",
	})
	return svc, store
}

func TestTokenPairRoundTrip(t *testing.T) {
	svc, _ := newAuthFixture()

	pair, err := svc.generateTokenPair(42, domain.RoleLogger)
	if err != nil {
		t.Fatalf("generateTokenPair: %v", err)
	}

	ident, err := svc.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if ident.UserID != 42 {
		t.Errorf("UserID = %d, want 42", ident.UserID)
	}
	if ident.Role != domain.RoleLogger {
		t.Errorf("Role = %q, want logger", ident.Role)
	}
}

func TestValidateTokenRejectsRefreshToken(t *testing.T) {
	svc, _ := newAuthFixture()

	pair, err := svc.generateTokenPair(42, domain.RoleUser)
	if err != nil {
		t.Fatalf("generateTokenPair: %v", err)
	}

	if _, err := svc.ValidateToken(pair.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture()

	if _, err := svc.ValidateToken("not-a-jwt"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc, _ := newAuthFixture()
	other := NewAuthService(&fakeUserStore{users: make(map[int64]*domain.User)}, AuthConfig{
		JWTSecret: "different-secret",
	})

	pair, err := other.generateTokenPair(42, domain.RoleUser)
	if err != nil {
		t.Fatalf("generateTokenPair: %v", err)
	}

	if _, err := svc.ValidateToken(pair.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestRefreshAccessToken(t *testing.T) {
	svc, store := newAuthFixture()
	store.users[42] = &domain.User{ID: 42, Role: domain.RoleAdmin, Active: true}

	pair, err := svc.generateTokenPair(42, domain.RoleUser)
	if err != nil {
		t.Fatalf("generateTokenPair: %v", err)
	}

	// The refreshed pair carries the role read from the store, so a
	// promotion takes effect here.
	fresh, err := svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}

	ident, err := svc.ValidateToken(fresh.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if ident.Role != domain.RoleAdmin {
		t.Errorf("Role = %q, want admin after refresh", ident.Role)
	}
}

func TestRefreshRejectsInactiveUser(t *testing.T) {
	svc, store := newAuthFixture()
	store.users[42] = &domain.User{ID: 42, Role: domain.RoleUser, Active: false}

	pair, err := svc.generateTokenPair(42, domain.RoleUser)
	if err != nil {
		t.Fatalf("generateTokenPair: %v", err)
	}

	if _, err := svc.RefreshAccessToken(context.Background(), pair.RefreshToken); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, store := newAuthFixture()
	store.users[42] = &domain.User{ID: 42, Role: domain.RoleUser, Active: true}

	pair, err := svc.generateTokenPair(42, domain.RoleUser)
	if err != nil {
		t.Fatalf("generateTokenPair: %v", err)
	}

	if _, err := svc.RefreshAccessToken(context.Background(), pair.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}
