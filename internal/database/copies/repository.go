// Package copies owns Book and BookCopy rows: the physical inventory and
// its aggregate availability counters. Copy state is authoritative; the
// counters on the parent Book are a projection that this package only
// moves together with the copy-state change that justifies it, inside
// whatever transaction the caller has bound with WithTx.
package copies

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/librarium/librarium/internal/entities"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrCopyNotFound = errors.New("copy not found")

	// ErrCopyBorrowed rejects destructive operations on a copy that is out.
	ErrCopyBorrowed = errors.New("copy is currently borrowed")

	// ErrCopyStateConflict means a mark operation found the copy already in
	// the target state. Surfacing it instead of silently succeeding is what
	// prevents a double decrement of the availability counter.
	ErrCopyStateConflict = errors.New("copy already in requested state")

	ErrCopyRetired = errors.New("copy is retired")

	// ErrCounterOutOfSync means a counter update would have violated
	// 0 <= available_copies <= quantity. The guards in counter updates make
	// this unreachable unless copy rows and counters have drifted, so it
	// always aborts the surrounding transaction.
	ErrCounterOutOfSync = errors.New("availability counter out of sync")
)

// Repository handles book copy and availability counter operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new copies repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to an open transaction. All writes
// made through the returned value commit or roll back with that
// transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetBook retrieves a book by its ID.
func (r *Repository) GetBook(id uint) (*entities.Book, error) {
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

// GetBookForUpdate retrieves a book under a row-level exclusive lock.
// Inside a transaction this serializes all inventory operations against
// the same title.
func (r *Repository) GetBookForUpdate(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// GetCopy retrieves a single copy by its ID.
func (r *Repository) GetCopy(id uint) (*entities.BookCopy, error) {
	var bookCopy entities.BookCopy
	err := r.db.First(&bookCopy, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCopyNotFound
		}
		return nil, err
	}
	return &bookCopy, nil
}

// ListCopies returns all copies of a book ordered by ID. The ordering is
// for stable reads only; lending never depends on it.
func (r *Repository) ListCopies(bookID uint) ([]entities.BookCopy, error) {
	var copies []entities.BookCopy
	err := r.db.Where("book_id = ?", bookID).Order("id ASC").Find(&copies).Error
	return copies, err
}

// PickAvailableCopy selects one lendable copy of the book. Copies are
// fungible, so any available one will do; callers must not rely on which
// ID comes back. Returns ErrCopyNotFound when none is available.
func (r *Repository) PickAvailableCopy(bookID uint) (*entities.BookCopy, error) {
	var bookCopy entities.BookCopy
	err := r.db.Where("book_id = ? AND is_borrowed = ? AND retired = ?", bookID, false, false).
		Limit(1).Take(&bookCopy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCopyNotFound
		}
		return nil, err
	}
	return &bookCopy, nil
}

// CreateCopy inserts a new available copy and moves both counters on the
// parent book up by one. Must run inside the caller's transaction so the
// row and the counters move as one unit.
func (r *Repository) CreateCopy(bookID uint) (*entities.BookCopy, error) {
	bookCopy := &entities.BookCopy{BookID: bookID}
	if err := r.db.Create(bookCopy).Error; err != nil {
		return nil, err
	}
	if err := r.adjustCounters(bookID, +1, +1); err != nil {
		return nil, err
	}
	return bookCopy, nil
}

// DeleteCopy removes a copy row and decrements the counters. A borrowed
// copy cannot be deleted; it has an open checkout pointing at it.
func (r *Repository) DeleteCopy(copyID uint) error {
	bookCopy, err := r.GetCopy(copyID)
	if err != nil {
		return err
	}
	if bookCopy.IsBorrowed {
		return ErrCopyBorrowed
	}

	if err := r.db.Delete(&entities.BookCopy{}, copyID).Error; err != nil {
		return err
	}

	if bookCopy.Retired {
		// Retired copies already left the counters when they were retired.
		return nil
	}
	return r.adjustCounters(bookCopy.BookID, -1, -1)
}

// MarkBorrowed flips a copy to borrowed and decrements the parent book's
// available counter. Both updates are conditional: if the copy is already
// borrowed (or retired) the flip affects zero rows and the whole
// operation fails with ErrCopyStateConflict instead of decrementing
// twice.
func (r *Repository) MarkBorrowed(copyID uint) error {
	res := r.db.Model(&entities.BookCopy{}).
		Where("id = ? AND is_borrowed = ? AND retired = ?", copyID, false, false).
		Update("is_borrowed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.classifyMarkConflict(copyID)
	}

	bookCopy, err := r.GetCopy(copyID)
	if err != nil {
		return err
	}
	return r.adjustCounters(bookCopy.BookID, 0, -1)
}

// MarkAvailable flips a copy back to available and increments the
// available counter. Fails with ErrCopyStateConflict if the copy was not
// borrowed.
func (r *Repository) MarkAvailable(copyID uint) error {
	res := r.db.Model(&entities.BookCopy{}).
		Where("id = ? AND is_borrowed = ? AND retired = ?", copyID, true, false).
		Update("is_borrowed", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.classifyMarkConflict(copyID)
	}

	bookCopy, err := r.GetCopy(copyID)
	if err != nil {
		return err
	}
	return r.adjustCounters(bookCopy.BookID, 0, +1)
}

// RetireCopy marks a copy as permanently out of circulation and removes
// it from both counters. The copy row stays for checkout history.
func (r *Repository) RetireCopy(copyID uint) error {
	bookCopy, err := r.GetCopy(copyID)
	if err != nil {
		return err
	}
	if bookCopy.IsBorrowed {
		return ErrCopyBorrowed
	}
	if bookCopy.Retired {
		return ErrCopyRetired
	}

	res := r.db.Model(&entities.BookCopy{}).
		Where("id = ? AND is_borrowed = ? AND retired = ?", copyID, false, false).
		Update("retired", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCopyStateConflict
	}

	return r.adjustCounters(bookCopy.BookID, -1, -1)
}

// RetireBook flips a book to its non-borrowable terminal status. Rows and
// history stay untouched.
func (r *Repository) RetireBook(bookID uint) error {
	res := r.db.Model(&entities.Book{}).
		Where("id = ?", bookID).
		Update("retired", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// DeleteAvailableCopies removes up to n available, non-retired copies of
// a book and decrements the counters by the number actually removed,
// which it returns. Used when shrinking a book's provisioned quantity.
func (r *Repository) DeleteAvailableCopies(bookID uint, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	res := r.db.Exec(`DELETE FROM book_copies WHERE id IN (
		SELECT id FROM book_copies
		WHERE book_id = ? AND is_borrowed = ? AND retired = ?
		LIMIT ?)`, bookID, false, false, n)
	if res.Error != nil {
		return 0, res.Error
	}
	removed := int(res.RowsAffected)
	if removed == 0 {
		return 0, nil
	}
	return removed, r.adjustCounters(bookID, -removed, -removed)
}

// CountBorrowed returns how many non-retired copies of the book are
// currently out.
func (r *Repository) CountBorrowed(bookID uint) (int, error) {
	var count int64
	err := r.db.Model(&entities.BookCopy{}).
		Where("book_id = ? AND is_borrowed = ? AND retired = ?", bookID, true, false).
		Count(&count).Error
	return int(count), err
}

// adjustCounters applies a delta to quantity/available_copies with the
// invariant 0 <= available_copies <= quantity expressed as SQL guards, so
// an update that would violate it affects zero rows and aborts the
// transaction instead of persisting a drifted counter.
func (r *Repository) adjustCounters(bookID uint, dQuantity, dAvailable int) error {
	res := r.db.Exec(`UPDATE books
		SET quantity = quantity + ?, available_copies = available_copies + ?
		WHERE id = ?
		  AND quantity + ? >= 0
		  AND available_copies + ? >= 0
		  AND available_copies + ? <= quantity + ?`,
		dQuantity, dAvailable, bookID,
		dQuantity, dAvailable, dAvailable, dQuantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCounterOutOfSync
	}
	return nil
}

// classifyMarkConflict distinguishes a missing copy from one that is in
// the wrong state for the attempted flip.
func (r *Repository) classifyMarkConflict(copyID uint) error {
	bookCopy, err := r.GetCopy(copyID)
	if err != nil {
		return err
	}
	if bookCopy.Retired {
		return ErrCopyRetired
	}
	return ErrCopyStateConflict
}
