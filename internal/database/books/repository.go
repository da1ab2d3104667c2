// Package books provides catalogue operations on book metadata.
//
// Quantity, availability and retirement are deliberately absent here:
// anything that moves copy state or the counters goes through the
// circulation manager. This repository only touches descriptive fields.
package books

import (
	"errors"

	"gorm.io/gorm"

	"github.com/librarium/librarium/internal/entities"
)

var ErrBookNotFound = errors.New("book not found")

// Repository handles book catalogue database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBook inserts a new title with zero copies. Copies are provisioned
// separately through the inventory operations.
func (r *Repository) CreateBook(book *entities.Book) (*entities.Book, error) {
	book.Quantity = 0
	book.AvailableCopies = 0
	book.Retired = false
	if err := r.db.Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// GetAllBooks retrieves all books ordered by title.
func (r *Repository) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("title ASC").Find(&books).Error
	return books, err
}

// SearchBooks searches books by title or author (case-insensitive partial match).
func (r *Repository) SearchBooks(query string) ([]entities.Book, error) {
	var books []entities.Book
	searchPattern := "%" + query + "%"
	err := r.db.
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?)", searchPattern, searchPattern).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

// UpdateMetadata updates descriptive fields on a book. Counter and
// retirement fields are ignored even if set on the argument.
func (r *Repository) UpdateMetadata(id uint, updates *entities.Book) (*entities.Book, error) {
	book, err := r.GetBookByID(id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if updates.Title != "" {
		fields["title"] = updates.Title
	}
	if updates.Author != "" {
		fields["author"] = updates.Author
	}
	if updates.ISBN != "" {
		fields["isbn"] = updates.ISBN
	}
	if updates.Publisher != "" {
		fields["publisher"] = updates.Publisher
	}
	if updates.Genre != "" {
		fields["genre"] = updates.Genre
	}
	if updates.Description != "" {
		fields["description"] = updates.Description
	}
	if len(fields) == 0 {
		return book, nil
	}

	if err := r.db.Model(book).Updates(fields).Error; err != nil {
		return nil, err
	}
	return r.GetBookByID(id)
}
