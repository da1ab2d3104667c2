// Package checkouts owns Checkout rows: who borrowed which copy, when it
// is due, and how the loan ended. Rows are append-then-close; nothing
// here ever deletes a checkout.
package checkouts

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/librarium/librarium/internal/entities"
)

var (
	ErrCheckoutNotFound = errors.New("checkout not found")

	// ErrCopyAlreadyOut means the copy already has an open checkout.
	ErrCopyAlreadyOut = errors.New("copy already has an open checkout")

	// ErrUserHoldsTitle means the user already has an open checkout for
	// this book; one user may not hold two copies of the same title.
	ErrUserHoldsTitle = errors.New("user already holds an open checkout for this book")
)

// Repository handles checkout lifecycle records.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new checkouts repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// OpenCheckout creates the record for a new loan. It refuses to create a
// second open checkout for the same copy, or a second open checkout of
// the same title by the same user.
func (r *Repository) OpenCheckout(userID, bookID, copyID uint, checkoutDate, dueDate time.Time) (*entities.Checkout, error) {
	var count int64
	err := r.db.Model(&entities.Checkout{}).
		Where("copy_id = ? AND is_returned = ?", copyID, false).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCopyAlreadyOut
	}

	err = r.db.Model(&entities.Checkout{}).
		Where("user_id = ? AND book_id = ? AND is_returned = ?", userID, bookID, false).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserHoldsTitle
	}

	checkout := &entities.Checkout{
		UserID:       userID,
		BookID:       bookID,
		CopyID:       copyID,
		CheckoutDate: checkoutDate,
		DueDate:      dueDate,
	}
	if err := r.db.Create(checkout).Error; err != nil {
		return nil, err
	}
	return checkout, nil
}

// CloseCheckout marks an open checkout as returned. The update is
// conditional on the checkout still being open, so closing twice fails
// with ErrCheckoutNotFound instead of silently rewriting history.
func (r *Repository) CloseCheckout(checkoutID uint, returnedAt time.Time, isLate bool) (*entities.Checkout, error) {
	res := r.db.Model(&entities.Checkout{}).
		Where("id = ? AND is_returned = ?", checkoutID, false).
		Updates(map[string]any{
			"return_date": returnedAt,
			"is_returned": true,
			"is_late":     isLate,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrCheckoutNotFound
	}

	var checkout entities.Checkout
	if err := r.db.First(&checkout, checkoutID).Error; err != nil {
		return nil, err
	}
	return &checkout, nil
}

// FindOpenCheckout resolves the open checkout a user holds for a book,
// or nil if there is none. Return uses this so callers do not need to
// know which physical copy was assigned.
func (r *Repository) FindOpenCheckout(userID, bookID uint) (*entities.Checkout, error) {
	var checkout entities.Checkout
	err := r.db.Where("user_id = ? AND book_id = ? AND is_returned = ?", userID, bookID, false).
		Take(&checkout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &checkout, nil
}

// FindOpenCheckoutForCopy returns the open checkout on a copy, or nil.
func (r *Repository) FindOpenCheckoutForCopy(copyID uint) (*entities.Checkout, error) {
	var checkout entities.Checkout
	err := r.db.Where("copy_id = ? AND is_returned = ?", copyID, false).
		Take(&checkout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &checkout, nil
}

// GetCheckout retrieves a checkout by ID.
func (r *Repository) GetCheckout(id uint) (*entities.Checkout, error) {
	var checkout entities.Checkout
	err := r.db.First(&checkout, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckoutNotFound
		}
		return nil, err
	}
	return &checkout, nil
}

// ListForUser returns a user's checkouts, most recent first.
func (r *Repository) ListForUser(userID uint, limit, offset int) ([]entities.Checkout, int64, error) {
	return r.list(r.db.Where("user_id = ?", userID), limit, offset)
}

// ListForBook returns a book's checkouts, most recent first.
func (r *Repository) ListForBook(bookID uint, limit, offset int) ([]entities.Checkout, int64, error) {
	return r.list(r.db.Where("book_id = ?", bookID), limit, offset)
}

// ListOverdue returns open checkouts whose due date has passed at the
// given instant.
func (r *Repository) ListOverdue(asOf time.Time) ([]entities.Checkout, error) {
	var overdue []entities.Checkout
	err := r.db.Where("is_returned = ? AND due_date < ?", false, asOf).
		Order("due_date ASC").Find(&overdue).Error
	return overdue, err
}

// CountOpenForBook returns how many checkouts on a book are still open.
func (r *Repository) CountOpenForBook(bookID uint) (int, error) {
	var count int64
	err := r.db.Model(&entities.Checkout{}).
		Where("book_id = ? AND is_returned = ?", bookID, false).
		Count(&count).Error
	return int(count), err
}

func (r *Repository) list(query *gorm.DB, limit, offset int) ([]entities.Checkout, int64, error) {
	var checkouts []entities.Checkout
	var total int64

	q := query.Model(&entities.Checkout{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := q.Order("checkout_date DESC, id DESC").Limit(limit).Offset(offset).Find(&checkouts).Error
	return checkouts, total, err
}
