package auth

import (
	"context"
	"testing"

	"paper-trading-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}))

	return NewService(db, zap.NewNop(), decimal.NewFromInt(10000))
}

func TestRegister_Success(t *testing.T) {
	svc := setupTest(t)

	user, err := svc.Register(context.Background(), "alice", "hunter2", "hunter2")

	assert.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.Cash.Equal(decimal.NewFromInt(10000)))
	// The stored hash verifies against the password and is salted, not the password itself.
	assert.NotEqual(t, "hunter2", user.Hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte("hunter2")))
}

func TestRegister_Validation(t *testing.T) {
	svc := setupTest(t)

	_, err := svc.Register(context.Background(), "", "pw", "pw")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = svc.Register(context.Background(), "alice", "", "")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = svc.Register(context.Background(), "alice", "pw", "other")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestRegister_UsernameTaken(t *testing.T) {
	svc := setupTest(t)

	first, err := svc.Register(context.Background(), "alice", "pw1", "pw1")
	assert.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "pw2", "pw2")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	// The first account is unaffected: its password still logs in.
	user, err := svc.Login(context.Background(), "alice", "pw1")
	assert.NoError(t, err)
	assert.Equal(t, first.ID, user.ID)
}

func TestLogin(t *testing.T) {
	svc := setupTest(t)
	_, err := svc.Register(context.Background(), "alice", "hunter2", "hunter2")
	assert.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		user, err := svc.Login(context.Background(), "alice", "hunter2")
		assert.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "alice", "hunter3")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "bob", "hunter2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("EmptyFields", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestChangePassword(t *testing.T) {
	svc := setupTest(t)
	user, err := svc.Register(context.Background(), "alice", "old-pw", "old-pw")
	assert.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, "wrong", "new-pw", "new-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), user.ID, "old-pw", "new-pw", "other")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	err = svc.ChangePassword(context.Background(), user.ID, "old-pw", "", "")
	assert.ErrorIs(t, err, ErrMissingField)

	assert.NoError(t, svc.ChangePassword(context.Background(), user.ID, "old-pw", "new-pw", "new-pw"))

	_, err = svc.Login(context.Background(), "alice", "old-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "alice", "new-pw")
	assert.NoError(t, err)
}
