package books

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

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{}, &entities.BookCopy{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestCreateBook(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.CreateBook(&entities.Book{
		Title:  "Neuromancer",
		Author: "William Gibson",
		ISBN:   "978-0441569595",
		// Counters are managed by circulation, not by registration.
		Quantity:        10,
		AvailableCopies: 10,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, 0, created.Quantity)
	assert.Equal(t, 0, created.AvailableCopies)
	assert.False(t, created.Retired)
}

func TestGetBookByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.CreateBook(&entities.Book{Title: "Hyperion", Author: "Dan Simmons"})
	require.NoError(t, err)

	found, err := repo.GetBookByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hyperion", found.Title)

	_, err = repo.GetBookByID(9999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestGetAllBooks(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.CreateBook(&entities.Book{Title: "Zen", Author: "B"})
	require.NoError(t, err)
	_, err = repo.CreateBook(&entities.Book{Title: "Anathem", Author: "A"})
	require.NoError(t, err)

	all, err := repo.GetAllBooks()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Anathem", all[0].Title)
	assert.Equal(t, "Zen", all[1].Title)
}

func TestSearchBooks(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.CreateBook(&entities.Book{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin"})
	require.NoError(t, err)
	_, err = repo.CreateBook(&entities.Book{Title: "The Dispossessed", Author: "Ursula K. Le Guin"})
	require.NoError(t, err)
	_, err = repo.CreateBook(&entities.Book{Title: "Solaris", Author: "Stanislaw Lem"})
	require.NoError(t, err)

	byTitle, err := repo.SearchBooks("darkness")
	require.NoError(t, err)
	assert.Len(t, byTitle, 1)

	byAuthor, err := repo.SearchBooks("le guin")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	none, err := repo.SearchBooks("asimov")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateMetadata(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.CreateBook(&entities.Book{Title: "Draft Title", Author: "Someone"})
	require.NoError(t, err)

	updated, err := repo.UpdateMetadata(created.ID, &entities.Book{
		Title:     "Final Title",
		Publisher: "Tor",
	})
	require.NoError(t, err)
	assert.Equal(t, "Final Title", updated.Title)
	assert.Equal(t, "Tor", updated.Publisher)
	assert.Equal(t, "Someone", updated.Author)

	_, err = repo.UpdateMetadata(9999, &entities.Book{Title: "X"})
	assert.ErrorIs(t, err, ErrBookNotFound)
}
