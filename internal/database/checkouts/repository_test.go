package checkouts

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/librarium/librarium/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_checkouts_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Checkout{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestOpenCheckout(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	due := now.Add(7 * 24 * time.Hour)

	checkout, err := repo.OpenCheckout(10, 1, 100, now, due)
	require.NoError(t, err)
	assert.NotZero(t, checkout.ID)
	assert.False(t, checkout.IsReturned)
	assert.Nil(t, checkout.ReturnDate)
}

func TestOpenCheckoutCopyAlreadyOut(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	due := now.Add(7 * 24 * time.Hour)

	_, err := repo.OpenCheckout(10, 1, 100, now, due)
	require.NoError(t, err)

	_, err = repo.OpenCheckout(11, 1, 100, now, due)
	assert.ErrorIs(t, err, ErrCopyAlreadyOut)
}

func TestOpenCheckoutUserHoldsTitle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	due := now.Add(7 * 24 * time.Hour)

	_, err := repo.OpenCheckout(10, 1, 100, now, due)
	require.NoError(t, err)

	// Same user, same book, a different physical copy.
	_, err = repo.OpenCheckout(10, 1, 101, now, due)
	assert.ErrorIs(t, err, ErrUserHoldsTitle)

	// A different book is fine.
	_, err = repo.OpenCheckout(10, 2, 200, now, due)
	assert.NoError(t, err)
}

func TestCloseCheckout(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	due := now.Add(7 * 24 * time.Hour)

	checkout, err := repo.OpenCheckout(10, 1, 100, now, due)
	require.NoError(t, err)

	returnedAt := now.Add(time.Hour)
	closed, err := repo.CloseCheckout(checkout.ID, returnedAt, false)
	require.NoError(t, err)
	assert.True(t, closed.IsReturned)
	assert.False(t, closed.IsLate)
	require.NotNil(t, closed.ReturnDate)

	// Closing twice fails, the first verdict stands.
	_, err = repo.CloseCheckout(checkout.ID, returnedAt.Add(time.Hour), true)
	assert.ErrorIs(t, err, ErrCheckoutNotFound)

	reread, err := repo.GetCheckout(checkout.ID)
	require.NoError(t, err)
	assert.False(t, reread.IsLate)
}

func TestFindOpenCheckout(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	found, err := repo.FindOpenCheckout(10, 1)
	require.NoError(t, err)
	assert.Nil(t, found)

	now := time.Now()
	checkout, err := repo.OpenCheckout(10, 1, 100, now, now.Add(24*time.Hour))
	require.NoError(t, err)

	found, err = repo.FindOpenCheckout(10, 1)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, checkout.ID, found.ID)

	_, err = repo.CloseCheckout(checkout.ID, now.Add(time.Hour), false)
	require.NoError(t, err)

	found, err = repo.FindOpenCheckout(10, 1)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestListForUser(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	for bookID := uint(1); bookID <= 3; bookID++ {
		_, err := repo.OpenCheckout(10, bookID, 100+bookID, now, now.Add(24*time.Hour))
		require.NoError(t, err)
	}
	_, err := repo.OpenCheckout(11, 1, 200, now, now.Add(24*time.Hour))
	require.NoError(t, err)

	list, total, err := repo.ListForUser(10, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 2)

	list, _, err = repo.ListForUser(10, 2, 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListOverdue(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()

	overdue, err := repo.OpenCheckout(10, 1, 100, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	require.NoError(t, err)
	_, err = repo.OpenCheckout(11, 2, 200, now, now.Add(24*time.Hour))
	require.NoError(t, err)

	// A returned checkout never shows up, however late it was.
	closedLate, err := repo.OpenCheckout(12, 3, 300, now.Add(-96*time.Hour), now.Add(-72*time.Hour))
	require.NoError(t, err)
	_, err = repo.CloseCheckout(closedLate.ID, now, true)
	require.NoError(t, err)

	list, err := repo.ListOverdue(now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, overdue.ID, list[0].ID)
}

func TestCountOpenForBook(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	first, err := repo.OpenCheckout(10, 1, 100, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	_, err = repo.OpenCheckout(11, 1, 101, now, now.Add(24*time.Hour))
	require.NoError(t, err)

	count, err := repo.CountOpenForBook(1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = repo.CloseCheckout(first.ID, now, false)
	require.NoError(t, err)

	count, err = repo.CountOpenForBook(1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
