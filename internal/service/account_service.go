package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"onstream/internal/middleware"
	"onstream/internal/models"
	"onstream/internal/repository"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// AccountService handles registration, login and token issuance.
type AccountService struct {
	repo        *repository.AccountRepository
	jwtSecret   []byte
	tokenExpiry time.Duration
}

func NewAccountService(repo *repository.AccountRepository, jwtSecret string, tokenExpiry time.Duration) *AccountService {
	return &AccountService{
		repo:        repo,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenExpiry,
	}
}

// Register creates a new account after validating the credentials.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if len(username) < minUsernameLen {
		return nil, models.NewValidationError("Username must be at least 3 characters")
	}
	if len(password) < minPasswordLen {
		return nil, models.NewValidationError("Password must be at least 6 characters")
	}
	if !strings.Contains(email, "@") {
		return nil, models.NewValidationError("Invalid email address")
	}

	// Duplicates are rejected before the password is hashed; the unique
	// constraints below remain the backstop for concurrent registrations.
	if existing, err := s.repo.GetByUsername(ctx, username); err != nil {
		return nil, models.NewInternalError(err)
	} else if existing != nil {
		return nil, models.NewConflictError(models.CodeUserExists, "Username or email already registered")
	}
	if existing, err := s.repo.GetByEmail(ctx, email); err != nil {
		return nil, models.NewInternalError(err)
	} else if existing != nil {
		return nil, models.NewConflictError(models.CodeUserExists, "Username or email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	account := &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			return nil, models.NewConflictError(models.CodeUserExists, "Username or email already registered")
		}
		return nil, models.NewInternalError(err)
	}
	return account, nil
}

// Login verifies credentials and issues an access token. Missing accounts and
// wrong passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, username, password string) (*models.Token, error) {
	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if account == nil {
		return nil, models.NewConflictError(models.CodeBadCreds, "Invalid username or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, models.NewConflictError(models.CodeBadCreds, "Invalid username or password")
	}

	if err := s.repo.TouchLastLogin(ctx, username); err != nil {
		middleware.Logger.WarnContext(ctx, "last login update failed",
			slog.String("username", username), slog.String("error", err.Error()))
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   account.Username,
		"admin": account.IsAdmin,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenExpiry).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &models.Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokenExpiry.Seconds()),
	}, nil
}

// VerifyToken validates an access token and returns the subject username.
func (s *AccountService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", models.NewUnauthorizedError("Invalid or expired token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", models.NewUnauthorizedError("Invalid or expired token")
	}
	return sub, nil
}

// GetAccount loads an account by username, or nil when absent.
func (s *AccountService) GetAccount(ctx context.Context, username string) (*models.Account, error) {
	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return account, nil
}

// SeedAdmin creates the configured admin account on first boot. An existing
// account with the same username is left untouched.
func (s *AccountService) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	account := &models.Account{
		Username:     username,
		Email:        username + "@local",
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			return nil
		}
		return err
	}

	middleware.Logger.InfoContext(ctx, "admin account seeded", slog.String("username", username))
	return nil
}

// Stats assembles system stats for the admin surface.
func (s *AccountService) Stats(ctx context.Context, catalog *CatalogService) (*models.SystemStats, error) {
	users, err := s.repo.Count(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	active, err := s.repo.CountActiveSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	items, bundles, err := catalog.CachedCounts(ctx)
	if err != nil {
		return nil, err
	}

	return &models.SystemStats{
		TotalUsers:         users,
		TotalMoviesCached:  items,
		TotalStreamsCached: bundles,
		ActiveUsersToday:   active,
		CacheHitRate:       catalog.HitRate(),
	}, nil
}
