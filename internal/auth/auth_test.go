package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spendtrack/spendtrack/internal/auth"
	"github.com/spendtrack/spendtrack/internal/models"
)

type memUserStore struct {
	nextID int64
	users  map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (s *memUserStore) CreateUser(_ context.Context, user *models.User) error {
	if _, exists := s.users[user.Username]; exists {
		return auth.ErrUsernameTaken
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return auth.ErrEmailTaken
		}
	}
	s.nextID++
	user.ID = s.nextID
	copied := *user
	s.users[user.Username] = &copied
	return nil
}

func (s *memUserStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func TestRegisterAndLogin(t *testing.T) {
	svc, err := auth.NewService(newMemUserStore(), "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating auth service: %v", err)
	}

	user, err := svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if user.ID == 0 {
		t.Fatalf("expected user id to be populated")
	}
	if user.Username != "alice" {
		t.Fatalf("expected username alice, got %s", user.Username)
	}
	if user.PasswordHash == "s3cret!" {
		t.Fatalf("password stored in plaintext")
	}

	result, err := svc.Login(context.Background(), auth.LoginInput{
		Username: "alice",
		Password: "s3cret!",
	})
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}

	if result.AccessToken == "" {
		t.Fatalf("expected access token on login")
	}
	if result.TokenType != "bearer" {
		t.Fatalf("expected token type bearer, got %s", result.TokenType)
	}

	claims, err := svc.VerifyToken(result.AccessToken)
	if err != nil {
		t.Fatalf("verify token failed: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("expected token subject alice, got %s", claims.Subject)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, err := auth.NewService(newMemUserStore(), "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating auth service: %v", err)
	}

	cases := []struct {
		name  string
		input auth.RegisterInput
		want  error
	}{
		{"short username", auth.RegisterInput{Username: "ab", Email: "a@b.com", Password: "secret123"}, auth.ErrInvalidUsername},
		{"bad email", auth.RegisterInput{Username: "alice", Email: "not-an-email", Password: "secret123"}, auth.ErrInvalidEmail},
		{"short password", auth.RegisterInput{Username: "alice", Email: "a@b.com", Password: "abc"}, auth.ErrPasswordTooWeak},
	}

	for _, tc := range cases {
		if _, err := svc.Register(context.Background(), tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc, err := auth.NewService(newMemUserStore(), "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating auth service: %v", err)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "secret123",
	}); !errors.Is(err, auth.ErrUsernameTaken) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice2", Email: "alice@example.com", Password: "secret123",
	}); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, err := auth.NewService(newMemUserStore(), "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating auth service: %v", err)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	_, wrongPassword := svc.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "wrong"})
	_, unknownUser := svc.Login(context.Background(), auth.LoginInput{Username: "nobody", Password: "wrong"})

	if !errors.Is(wrongPassword, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for wrong password, got %v", wrongPassword)
	}
	if !errors.Is(unknownUser, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("login errors differ between wrong password and unknown user")
	}
}

func TestVerifyTokenRejectsBadTokens(t *testing.T) {
	store := newMemUserStore()
	svc, err := auth.NewService(store, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating auth service: %v", err)
	}

	if _, err := svc.VerifyToken("not-a-token"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	// A token signed with a different secret must not verify.
	other, err := auth.NewService(store, "other-secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating auth service: %v", err)
	}
	result, err := other.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if _, err := svc.VerifyToken(result.AccessToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected invalid token for foreign signature, got %v", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	store := newMemUserStore()
	svc, err := auth.NewService(store, "test-secret", time.Nanosecond)
	if err != nil {
		t.Fatalf("unexpected error creating auth service: %v", err)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	result, err := svc.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := svc.VerifyToken(result.AccessToken); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected expired token to fail verification, got %v", err)
	}
}
