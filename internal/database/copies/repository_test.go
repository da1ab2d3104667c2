package copies

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/librarium/librarium/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, func()) {
	dbPath := "./test_copies_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.BookCopy{},
	)
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return db, repo, cleanup
}

func createTestBook(t *testing.T, db *gorm.DB) *entities.Book {
	book := &entities.Book{Title: "Dune", Author: "Frank Herbert"}
	require.NoError(t, db.Create(book).Error)
	return book
}

func TestCreateCopy(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db)

	first, err := repo.CreateCopy(book.ID)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.False(t, first.IsBorrowed)
	assert.False(t, first.Retired)

	second, err := repo.CreateCopy(book.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	updated, err := repo.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, 2, updated.AvailableCopies)
}

func TestCreateCopyUnknownBook(t *testing.T) {
	_, repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.CreateCopy(9999)
	assert.Error(t, err)
}

func TestPickAvailableCopy(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db)

	_, err := repo.PickAvailableCopy(book.ID)
	assert.ErrorIs(t, err, ErrCopyNotFound)

	created, err := repo.CreateCopy(book.ID)
	require.NoError(t, err)

	picked, err := repo.PickAvailableCopy(book.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, picked.ID)

	require.NoError(t, repo.MarkBorrowed(created.ID))
	_, err = repo.PickAvailableCopy(book.ID)
	assert.ErrorIs(t, err, ErrCopyNotFound)
}

func TestMarkBorrowedAndAvailable(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db)
	bookCopy, err := repo.CreateCopy(book.ID)
	require.NoError(t, err)

	require.NoError(t, repo.MarkBorrowed(bookCopy.ID))

	updated, err := repo.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Quantity)
	assert.Equal(t, 0, updated.AvailableCopies)

	// Flipping an already-borrowed copy is a conflict, and the counters
	// are not touched twice.
	err = repo.MarkBorrowed(bookCopy.ID)
	assert.ErrorIs(t, err, ErrCopyStateConflict)

	updated, err = repo.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableCopies)

	require.NoError(t, repo.MarkAvailable(bookCopy.ID))
	updated, err = repo.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.AvailableCopies)

	err = repo.MarkAvailable(bookCopy.ID)
	assert.ErrorIs(t, err, ErrCopyStateConflict)
}

func TestMarkBorrowedRetiredCopy(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db)
	bookCopy, err := repo.CreateCopy(book.ID)
	require.NoError(t, err)

	require.NoError(t, repo.RetireCopy(bookCopy.ID))

	err = repo.MarkBorrowed(bookCopy.ID)
	assert.ErrorIs(t, err, ErrCopyRetired)
}

func TestDeleteCopy(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db)
	bookCopy, err := repo.CreateCopy(book.ID)
	require.NoError(t, err)

	require.NoError(t, repo.MarkBorrowed(bookCopy.ID))
	assert.ErrorIs(t, repo.DeleteCopy(bookCopy.ID), ErrCopyBorrowed)

	require.NoError(t, repo.MarkAvailable(bookCopy.ID))
	require.NoError(t, repo.DeleteCopy(bookCopy.ID))

	_, err = repo.GetCopy(bookCopy.ID)
	assert.ErrorIs(t, err, ErrCopyNotFound)

	updated, err := repo.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, 0, updated.AvailableCopies)
}

func TestRetireCopyKeepsRow(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db)
	bookCopy, err := repo.CreateCopy(book.ID)
	require.NoError(t, err)

	require.NoError(t, repo.RetireCopy(bookCopy.ID))
	assert.ErrorIs(t, repo.RetireCopy(bookCopy.ID), ErrCopyRetired)

	kept, err := repo.GetCopy(bookCopy.ID)
	require.NoError(t, err)
	assert.True(t, kept.Retired)

	updated, err := repo.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, 0, updated.AvailableCopies)
}

func TestDeleteAvailableCopies(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db)
	for i := 0; i < 4; i++ {
		_, err := repo.CreateCopy(book.ID)
		require.NoError(t, err)
	}

	picked, err := repo.PickAvailableCopy(book.ID)
	require.NoError(t, err)
	require.NoError(t, repo.MarkBorrowed(picked.ID))

	removed, err := repo.DeleteAvailableCopies(book.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	updated, err := repo.GetBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, 1, updated.AvailableCopies)

	// Only one free copy remains, so removal stops short.
	removed, err = repo.DeleteAvailableCopies(book.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// The borrowed copy is never eligible.
	stillOut, err := repo.GetCopy(picked.ID)
	require.NoError(t, err)
	assert.True(t, stillOut.IsBorrowed)
}

func TestCountBorrowed(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db)
	first, err := repo.CreateCopy(book.ID)
	require.NoError(t, err)
	_, err = repo.CreateCopy(book.ID)
	require.NoError(t, err)

	count, err := repo.CountBorrowed(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, repo.MarkBorrowed(first.ID))

	count, err = repo.CountBorrowed(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRetireBook(t *testing.T) {
	db, repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createTestBook(t, db)
	require.NoError(t, repo.RetireBook(book.ID))

	updated, err := repo.GetBook(book.ID)
	require.NoError(t, err)
	assert.True(t, updated.Retired)

	assert.ErrorIs(t, repo.RetireBook(9999), ErrBookNotFound)
}
