package auth

import (
	"context"
	"errors"
	"fmt"

	"paper-trading-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Credential and registration failures. All of them are user-visible
// and terminal for the request; none carry internal detail.
var (
	ErrInvalidCredentials = errors.New("invalid username and/or password")
	ErrMissingField       = errors.New("must provide username, password and confirmation")
	ErrPasswordMismatch   = errors.New("password and confirmation do not match")
	ErrUsernameTaken      = errors.New("username is already taken")
)

// Service implements registration, login and password changes.
type Service struct {
	db           *gorm.DB
	logger       *zap.Logger
	startingCash decimal.Decimal
}

// NewService creates a new auth service. New accounts are seeded with
// startingCash.
func NewService(db *gorm.DB, logger *zap.Logger, startingCash decimal.Decimal) *Service {
	return &Service{
		db:           db,
		logger:       logger,
		startingCash: startingCash,
	}
}

// Register creates a new user with a freshly salted hash. The username
// must not be in use; password and confirmation must match.
func (s *Service) Register(ctx context.Context, username, password, confirmation string) (*models.User, error) {
	if username == "" || password == "" || confirmation == "" {
		return nil, ErrMissingField
	}
	if password != confirmation {
		return nil, ErrPasswordMismatch
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username: username,
		Hash:     string(hash),
		Cash:     s.startingCash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// The unique index is the authority; the pre-check above only
		// exists for a cleaner error on the common path.
		return nil, ErrUsernameTaken
	}

	s.logger.Info("Registered new user", zap.String("username", username))
	return &user, nil
}

// Login verifies a username/password pair. The bcrypt comparison runs
// even when the username is unknown so response timing does not reveal
// which of the two was wrong.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// ChangePassword re-hashes the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uint, current, newPassword, confirmation string) error {
	if current == "" || newPassword == "" || confirmation == "" {
		return ErrMissingField
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if newPassword != confirmation {
		return ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("hash", string(hash)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password changed", zap.Uint("user_id", userID))
	return nil
}

// dummyHash is compared against when the username does not exist, to keep
// login timing independent of user existence. Hash of an unguessable
// throwaway value; the comparison is expected to fail.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("paper-trading-go timing pad"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()
