package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/herbalscanner/backend/internal/domain"
)

func newAuthFixture() (*AuthService, *MockKeyValueStore) {
	store := NewMockKeyValueStore()
	svc := NewAuthService(store, AuthServiceConfig{PasswordHashCost: bcrypt.MinCost}, discardLogger())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800)) }
	return svc, store
}

func storedUsers(t *testing.T, store *MockKeyValueStore) []domain.Credential {
	t.Helper()
	var users []domain.Credential
	if err := json.Unmarshal(store.data[usersKey], &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	return users
}

func TestNewAuthService(t *testing.T) {
	t.Run("uses default cost when zero", func(t *testing.T) {
		svc := NewAuthService(NewMockKeyValueStore(), AuthServiceConfig{}, nil)
		if svc.hashCost != bcrypt.DefaultCost {
			t.Errorf("hashCost = %d, want %d", svc.hashCost, bcrypt.DefaultCost)
		}
	})
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account and session", func(t *testing.T) {
		svc, store := newAuthFixture()

		user, err := svc.Signup(ctx, domain.SignupRequest{Email: "Asha@Example.com", Password: "secret", Name: "Asha"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID == "" {
			t.Error("expected an id")
		}
		if user.Email != "Asha@Example.com" {
			t.Errorf("Email = %q, want as entered", user.Email)
		}
		if user.CreatedAt != "2024-05-01T04:00:00.000Z" {
			t.Errorf("CreatedAt = %q, want UTC millisecond timestamp", user.CreatedAt)
		}

		users := storedUsers(t, store)
		if len(users) != 1 {
			t.Fatalf("stored %d users, want 1", len(users))
		}
		if users[0].Password != "" {
			t.Error("cleartext password must not be stored")
		}
		if bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte("secret")) != nil {
			t.Error("stored hash does not verify")
		}
		if strings.Contains(string(store.data[usersKey]), "secret") {
			t.Error("password leaked into the directory")
		}

		current, err := svc.CurrentSession(ctx)
		if err != nil {
			t.Fatalf("CurrentSession: %v", err)
		}
		if current.ID != user.ID {
			t.Errorf("session user = %s, want %s", current.ID, user.ID)
		}
		if strings.Contains(string(store.data[sessionKey]), "passwordHash") {
			t.Error("session must not carry secrets")
		}
	})

	t.Run("duplicate email is case-insensitive", func(t *testing.T) {
		svc, store := newAuthFixture()
		_, _ = svc.Signup(ctx, domain.SignupRequest{Email: "asha@example.com", Password: "a", Name: "A"})

		_, err := svc.Signup(ctx, domain.SignupRequest{Email: "ASHA@EXAMPLE.COM", Password: "b", Name: "B"})
		if !errors.Is(err, domain.ErrDuplicateEmail) {
			t.Errorf("error = %v, want ErrDuplicateEmail", err)
		}
		if n := len(storedUsers(t, store)); n != 1 {
			t.Errorf("stored %d users, want 1", n)
		}
	})

	t.Run("validates required fields", func(t *testing.T) {
		svc, store := newAuthFixture()

		tests := []domain.SignupRequest{
			{Email: "", Password: "p", Name: "n"},
			{Email: "e@x", Password: "", Name: "n"},
			{Email: "e@x", Password: "p", Name: "  "},
		}
		for _, req := range tests {
			if _, err := svc.Signup(ctx, req); !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("Signup(%+v) error = %v, want ErrInvalidRequest", req, err)
			}
		}
		if store.setCalls != 0 {
			t.Error("invalid signup must not write")
		}
	})

	t.Run("rejects passwords bcrypt cannot hash", func(t *testing.T) {
		svc, _ := newAuthFixture()

		_, err := svc.Signup(ctx, domain.SignupRequest{Email: "e@x", Password: strings.Repeat("x", 73), Name: "n"})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		svc, store := newAuthFixture()
		store.setError = errDiskFull

		_, err := svc.Signup(ctx, domain.SignupRequest{Email: "e@x", Password: "p", Name: "n"})
		if !errors.Is(err, errDiskFull) {
			t.Errorf("error = %v, want errDiskFull", err)
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials set the session", func(t *testing.T) {
		svc, _ := newAuthFixture()
		created, _ := svc.Signup(ctx, domain.SignupRequest{Email: "asha@example.com", Password: "secret", Name: "Asha"})
		_ = svc.Logout(ctx)

		user, err := svc.Login(ctx, domain.LoginRequest{Email: "ASHA@example.com", Password: "secret"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != created.ID {
			t.Errorf("ID = %s, want %s", user.ID, created.ID)
		}

		current, err := svc.CurrentSession(ctx)
		if err != nil || current.ID != created.ID {
			t.Errorf("CurrentSession = %v, %v", current, err)
		}
	})

	t.Run("wrong password or unknown email", func(t *testing.T) {
		svc, _ := newAuthFixture()
		_, _ = svc.Signup(ctx, domain.SignupRequest{Email: "asha@example.com", Password: "secret", Name: "Asha"})
		_ = svc.Logout(ctx)

		tests := []domain.LoginRequest{
			{Email: "asha@example.com", Password: "Secret"},
			{Email: "ravi@example.com", Password: "secret"},
		}
		for _, req := range tests {
			if _, err := svc.Login(ctx, req); !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Errorf("Login(%s) error = %v, want ErrInvalidCredentials", req.Email, err)
			}
		}

		if _, err := svc.CurrentSession(ctx); !errors.Is(err, domain.ErrNotAuthenticated) {
			t.Errorf("failed login must not set a session, got %v", err)
		}
	})

	t.Run("empty fields are invalid", func(t *testing.T) {
		svc, _ := newAuthFixture()
		if _, err := svc.Login(ctx, domain.LoginRequest{Email: "a@b"}); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("legacy cleartext record logs in and is upgraded", func(t *testing.T) {
		svc, store := newAuthFixture()
		legacy := []domain.Credential{{
			ID:        "1714556400000",
			Email:     "old@example.com",
			Name:      "Old",
			CreatedAt: "2024-05-01T09:40:00.000Z",
			Password:  "hunter2",
		}}
		store.data[usersKey], _ = json.Marshal(legacy)

		user, err := svc.Login(ctx, domain.LoginRequest{Email: "old@example.com", Password: "hunter2"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "1714556400000" {
			t.Errorf("ID = %s", user.ID)
		}

		users := storedUsers(t, store)
		if users[0].Password != "" {
			t.Error("cleartext password should be cleared after upgrade")
		}
		if bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte("hunter2")) != nil {
			t.Error("upgraded hash does not verify")
		}

		_ = svc.Logout(ctx)
		if _, err := svc.Login(ctx, domain.LoginRequest{Email: "old@example.com", Password: "hunter2"}); err != nil {
			t.Errorf("login after upgrade: %v", err)
		}
	})

	t.Run("legacy record with wrong password", func(t *testing.T) {
		svc, store := newAuthFixture()
		store.data[usersKey], _ = json.Marshal([]domain.Credential{{ID: "1", Email: "old@example.com", Password: "hunter2"}})

		if _, err := svc.Login(ctx, domain.LoginRequest{Email: "old@example.com", Password: "hunter3"}); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestLogoutAndCurrentSession(t *testing.T) {
	ctx := context.Background()
	svc, store := newAuthFixture()

	if _, err := svc.CurrentSession(ctx); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}

	_, _ = svc.Signup(ctx, domain.SignupRequest{Email: "a@b", Password: "p", Name: "n"})
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if _, err := svc.CurrentSession(ctx); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}

	store.data[sessionKey] = []byte(`null`)
	if _, err := svc.CurrentSession(ctx); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("null session error = %v, want ErrNotAuthenticated", err)
	}

	store.data[sessionKey] = []byte(`{broken`)
	if _, err := svc.CurrentSession(ctx); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("corrupt session error = %v, want ErrStorageUnavailable", err)
	}
}

func TestAuthScopesHistory(t *testing.T) {
	ctx := context.Background()
	auth, store := newAuthFixture()
	history := NewHistoryService(store, auth, discardLogger())

	_ = history.Add(ctx, newTestScan("guest-scan", "Neem"))

	user, _ := auth.Signup(ctx, domain.SignupRequest{Email: "a@b", Password: "p", Name: "n"})
	_ = history.Add(ctx, newTestScan("user-scan", "Ginger"))

	if _, ok := store.data[HistoryKey(user.ID)]; !ok {
		t.Error("user scan not stored under the user partition")
	}

	_ = auth.Logout(ctx)
	scans, _ := history.Load(ctx)
	if got := scanIDs(scans); len(got) != 1 || got[0] != "guest-scan" {
		t.Errorf("guest history = %v, want [guest-scan]", got)
	}
}
