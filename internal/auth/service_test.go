package auth

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/librarium/librarium/internal/config"
	"github.com/librarium/librarium/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB, func()) {
	dbPath := "./test_auth_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{})
	require.NoError(t, err)

	service := NewService(db, config.Auth{
		Mode:            config.AuthModeLocal,
		BcryptCost:      bcrypt.MinCost,
		TokenExpiry:     time.Hour,
		LockoutDuration: time.Minute,
	})

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return service, db, cleanup
}

func TestCreateUser(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	user, err := service.CreateUser("librarian", "librarian@example.com", "a-long-password", entities.UserRoleStaff)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, entities.UserRoleStaff, user.Role)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "a-long-password", user.PasswordHash)

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, err := service.CreateUser("librarian", "other@example.com", "a-long-password", entities.UserRoleStaff)
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("InvalidUsername", func(t *testing.T) {
		_, err := service.CreateUser("x", "x@example.com", "a-long-password", entities.UserRoleStaff)
		assert.ErrorIs(t, err, ErrUsernameInvalid)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		_, err := service.CreateUser("reader", "not-an-email", "a-long-password", entities.UserRoleMember)
		assert.ErrorIs(t, err, ErrEmailInvalid)
	})

	t.Run("InvalidRole", func(t *testing.T) {
		_, err := service.CreateUser("reader", "reader@example.com", "a-long-password", entities.UserRole("superuser"))
		assert.ErrorIs(t, err, ErrInvalidRole)
	})
}

func TestAuthenticate(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateUser("librarian", "librarian@example.com", "a-long-password", entities.UserRoleStaff)
	require.NoError(t, err)

	t.Run("ValidCredentials", func(t *testing.T) {
		user, err := service.Authenticate("librarian", "a-long-password")
		require.NoError(t, err)
		assert.Equal(t, "librarian", user.Username)
	})

	t.Run("ByEmail", func(t *testing.T) {
		_, err := service.Authenticate("librarian@example.com", "a-long-password")
		assert.NoError(t, err)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := service.Authenticate("librarian", "not-the-password")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := service.Authenticate("nobody", "a-long-password")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestAccountLockout(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CreateUser("librarian", "librarian@example.com", "a-long-password", entities.UserRoleStaff)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := service.Authenticate("librarian", "wrong-password-1")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	_, err = service.Authenticate("librarian", "a-long-password")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestTokenLifecycle(t *testing.T) {
	service, db, cleanup := setupTestService(t)
	defer cleanup()

	user, err := service.CreateUser("librarian", "librarian@example.com", "a-long-password", entities.UserRoleStaff)
	require.NoError(t, err)

	plaintext, err := service.GenerateToken(user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, plaintext)

	// Only the hash is persisted
	var stored entities.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NotEqual(t, plaintext, stored.TokenHash)

	found, err := service.ValidateToken(plaintext)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = service.ValidateToken("0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, service.RevokeToken(user.ID))
	_, err = service.ValidateToken(plaintext)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	service, db, cleanup := setupTestService(t)
	defer cleanup()

	user, err := service.CreateUser("librarian", "librarian@example.com", "a-long-password", entities.UserRoleStaff)
	require.NoError(t, err)

	plaintext, err := service.GenerateToken(user.ID)
	require.NoError(t, err)

	// Backdate the token past its expiry
	created := time.Now().Add(-2 * time.Hour)
	require.NoError(t, db.Model(&entities.User{}).Where("id = ?", user.ID).
		Update("token_created_at", created).Error)

	_, err = service.ValidateToken(plaintext)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestChangePassword(t *testing.T) {
	service, _, cleanup := setupTestService(t)
	defer cleanup()

	user, err := service.CreateUser("librarian", "librarian@example.com", "a-long-password", entities.UserRoleStaff)
	require.NoError(t, err)

	err = service.ChangePassword(user.ID, "wrong-old-password", "a-new-long-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	require.NoError(t, service.ChangePassword(user.ID, "a-long-password", "a-new-long-password"))

	_, err = service.Authenticate("librarian", "a-new-long-password")
	assert.NoError(t, err)
}
