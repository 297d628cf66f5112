package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"onstream/internal/models"
)

// ErrDuplicateAccount marks a create that collided with an existing username
// or email.
var ErrDuplicateAccount = errors.New("account already exists")

// AccountRepository stores user accounts.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. Unique-constraint collisions on username or
// email surface as ErrDuplicateAccount.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateAccount
	}
	return err
}

// GetByUsername returns the account for a username, or nil when absent.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByEmail returns the account for an email, or nil when absent.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// TouchLastLogin stamps the account's last_login with the current time.
func (r *AccountRepository) TouchLastLogin(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("username = ?", username).
		Update("last_login", time.Now().UTC()).Error
}

// Count counts all accounts.
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Count(&n).Error
	return n, err
}

// CountActiveSince counts accounts whose last login is at or after the cutoff.
func (r *AccountRepository) CountActiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("last_login >= ?", cutoff).
		Count(&n).Error
	return n, err
}

// isUniqueViolation recognizes unique-constraint errors from both supported
// drivers without importing either driver's error types.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
