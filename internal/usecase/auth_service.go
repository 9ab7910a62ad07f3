package usecase

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/herbalscanner/backend/internal/domain"
)

const (
	usersKey   = "herbalscanner:users"
	sessionKey = "herbalscanner:auth"
)

// AuthServiceConfig holds configuration for the auth service
type AuthServiceConfig struct {
	PasswordHashCost int
}

// AuthService keeps the user directory and the single current session.
// It is the SessionProvider that scopes history to the logged-in user.
type AuthService struct {
	store    domain.KeyValueStore
	hashCost int
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewAuthService creates an auth service backed by store
func NewAuthService(store domain.KeyValueStore, config AuthServiceConfig, logger *slog.Logger) *AuthService {
	cost := config.PasswordHashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		store:    store,
		hashCost: cost,
		logger:   logger.With("component", "auth"),
		now:      time.Now,
	}
}

// Signup registers a new account and logs it in
func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: email, password and name are required", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if strings.EqualFold(u.Email, req.Email) {
			return nil, domain.ErrDuplicateEmail
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := domain.Credential{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		CreatedAt:    s.now().UTC().Format(domain.TimestampLayout),
		PasswordHash: string(hash),
	}

	next := make([]domain.Credential, 0, len(users)+1)
	next = append(next, users...)
	next = append(next, cred)
	if err := s.saveUsers(ctx, next); err != nil {
		return nil, err
	}

	user := cred.User()
	if err := s.setSession(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", "user_id", user.ID)
	return &user, nil
}

// Login checks credentials and makes the user the current session.
// Records imported with a cleartext password are rehashed on success.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, u := range users {
		if strings.EqualFold(u.Email, req.Email) && passwordMatches(u, req.Password) {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.logger.Info("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	if users[idx].PasswordHash == "" {
		s.upgradeLegacyPassword(ctx, users, idx, req.Password)
	}

	user := users[idx].User()
	if err := s.setSession(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &user, nil
}

// Logout clears the current session; logging out twice is fine
func (s *AuthService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Info("user logged out")
	return nil
}

// CurrentSession returns the logged-in user or ErrNotAuthenticated
func (s *AuthService) CurrentSession(ctx context.Context) (*domain.User, error) {
	data, err := s.store.Get(ctx, sessionKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, domain.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var user *domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", domain.ErrStorageUnavailable, err)
	}
	if user == nil || user.ID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return user, nil
}

// upgradeLegacyPassword replaces a cleartext password with its hash.
// Failure is logged and does not block the login.
func (s *AuthService) upgradeLegacyPassword(ctx context.Context, users []domain.Credential, idx int, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		s.logger.Warn("failed to hash legacy password", "user_id", users[idx].ID, "error", err)
		return
	}

	next := make([]domain.Credential, len(users))
	copy(next, users)
	next[idx].PasswordHash = string(hash)
	next[idx].Password = ""

	if err := s.saveUsers(ctx, next); err != nil {
		s.logger.Warn("failed to upgrade legacy password", "user_id", users[idx].ID, "error", err)
		return
	}
	s.logger.Info("upgraded legacy password", "user_id", users[idx].ID)
}

func passwordMatches(cred domain.Credential, password string) bool {
	if cred.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) == nil
	}
	if cred.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cred.Password), []byte(password)) == 1
}

func (s *AuthService) loadUsers(ctx context.Context) ([]domain.Credential, error) {
	data, err := s.store.Get(ctx, usersKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	var users []domain.Credential
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: decode users: %v", domain.ErrStorageUnavailable, err)
	}
	return users, nil
}

func (s *AuthService) saveUsers(ctx context.Context, users []domain.Credential) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := s.store.Set(ctx, usersKey, data); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (s *AuthService) setSession(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Set(ctx, sessionKey, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
