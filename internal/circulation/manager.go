// Package circulation implements the inventory and checkout lifecycle
// engine: borrowing, returning, and provisioning of physical book
// copies.
//
// Every operation is one atomic unit of work. The manager opens a single
// transaction, takes the book row lock that serializes all activity on a
// title, applies the state transition across the copies and checkouts
// stores, appends exactly one staff log record, and commits or rolls
// back as a whole. The repositories never commit independently of this
// boundary, so a failure at any step leaves the store in its
// pre-operation state.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium/internal/config"
	"github.com/librarium/librarium/internal/database/checkouts"
	"github.com/librarium/librarium/internal/database/copies"
	"github.com/librarium/librarium/internal/database/stafflog"
	"github.com/librarium/librarium/internal/entities"
)

// Manager is the only component allowed to touch more than one store in
// a single call. All counter and copy-state mutation in the application
// funnels through it.
type Manager struct {
	db     *gorm.DB
	copies *copies.Repository
	ledger *checkouts.Repository
	logs   *stafflog.Repository

	loanPeriod time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewManager creates the circulation engine around an injected store
// handle.
func NewManager(db *gorm.DB, copiesRepo *copies.Repository, ledger *checkouts.Repository, logs *stafflog.Repository, cfg config.Circulation) *Manager {
	loanDays := cfg.LoanPeriodDays
	if loanDays <= 0 {
		loanDays = config.DefaultLoanPeriodDays
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 25 * time.Millisecond
	}
	return &Manager{
		db:         db,
		copies:     copiesRepo,
		ledger:     ledger,
		logs:       logs,
		loanPeriod: time.Duration(loanDays) * 24 * time.Hour,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
	}
}

// BorrowResult reports a successful borrow.
type BorrowResult struct {
	CheckoutID uint      `json:"checkout_id"`
	CopyID     uint      `json:"copy_id"`
	DueDate    time.Time `json:"due_date"`
}

// ReturnResult reports a successful return.
type ReturnResult struct {
	CheckoutID uint      `json:"checkout_id"`
	IsLate     bool      `json:"is_late"`
	ReturnedAt time.Time `json:"returned_at"`
}

// BorrowBook lends one available copy of the book to the user. Which
// physical copy is assigned is unspecified; copies are fungible. A zero
// dueDate applies the configured loan period from now.
func (m *Manager) BorrowBook(ctx context.Context, userID, bookID uint, dueDate time.Time, staffID uint) (*BorrowResult, error) {
	if userID == 0 || bookID == 0 {
		return nil, newError(KindValidation, "user id and book id are required")
	}
	if dueDate.IsZero() {
		dueDate = time.Now().Add(m.loanPeriod)
	}

	var result *BorrowResult
	err := m.run(ctx, func(tx *gorm.DB) error {
		copyStore := m.copies.WithTx(tx)

		book, err := copyStore.GetBookForUpdate(bookID)
		if err != nil {
			if errors.Is(err, copies.ErrBookNotFound) {
				return newError(KindNotFound, "book %d not found", bookID)
			}
			return err
		}
		if book.Retired {
			return newError(KindConflict, "book %d is retired from circulation", bookID)
		}
		// Re-checked under the lock; a concurrent borrow that won the
		// race has already decremented this.
		if book.AvailableCopies <= 0 {
			return newError(KindOutOfStock, "no available copies of book %d", bookID)
		}

		bookCopy, err := copyStore.PickAvailableCopy(bookID)
		if err != nil {
			if errors.Is(err, copies.ErrCopyNotFound) {
				return newError(KindOutOfStock, "no available copies of book %d", bookID)
			}
			return err
		}

		if err := copyStore.MarkBorrowed(bookCopy.ID); err != nil {
			if errors.Is(err, copies.ErrCopyStateConflict) || errors.Is(err, copies.ErrCopyRetired) {
				return wrapError(KindConflict, err, "copy state changed mid-operation")
			}
			return err
		}

		now := time.Now()
		checkout, err := m.ledger.WithTx(tx).OpenCheckout(userID, bookID, bookCopy.ID, now, dueDate)
		if err != nil {
			if errors.Is(err, checkouts.ErrUserHoldsTitle) {
				return newError(KindAlreadyBorrowed, "user %d already holds a copy of book %d", userID, bookID)
			}
			if errors.Is(err, checkouts.ErrCopyAlreadyOut) {
				return wrapError(KindConflict, err, "selected copy already has an open checkout")
			}
			return err
		}

		err = m.logs.WithTx(tx).Record(&entities.StaffLog{
			UserID:        staffID,
			BookID:        bookID,
			ActionType:    entities.StaffActionCheckout,
			ActionDetails: fmt.Sprintf("checkout %d: copy %d lent to user %d, due %s", checkout.ID, bookCopy.ID, userID, dueDate.Format(time.RFC3339)),
			CorrelationID: uuid.NewString(),
		})
		if err != nil {
			return err
		}

		result = &BorrowResult{CheckoutID: checkout.ID, CopyID: bookCopy.ID, DueDate: dueDate}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReturnBook closes the user's open checkout of the book, frees the copy
// and freezes the lateness verdict. A zero returnedAt means now.
func (m *Manager) ReturnBook(ctx context.Context, userID, bookID uint, returnedAt time.Time, staffID uint) (*ReturnResult, error) {
	if userID == 0 || bookID == 0 {
		return nil, newError(KindValidation, "user id and book id are required")
	}
	if returnedAt.IsZero() {
		returnedAt = time.Now()
	}

	var result *ReturnResult
	err := m.run(ctx, func(tx *gorm.DB) error {
		copyStore := m.copies.WithTx(tx)
		ledger := m.ledger.WithTx(tx)

		if _, err := copyStore.GetBookForUpdate(bookID); err != nil {
			if errors.Is(err, copies.ErrBookNotFound) {
				return newError(KindNotFound, "book %d not found", bookID)
			}
			return err
		}

		checkout, err := ledger.FindOpenCheckout(userID, bookID)
		if err != nil {
			return err
		}
		if checkout == nil {
			return newError(KindNoActiveCheckout, "user %d has no active checkout of book %d", userID, bookID)
		}

		isLate := IsLate(checkout.DueDate, returnedAt)

		if _, err := ledger.CloseCheckout(checkout.ID, returnedAt, isLate); err != nil {
			return err
		}
		if err := copyStore.MarkAvailable(checkout.CopyID); err != nil {
			if errors.Is(err, copies.ErrCopyStateConflict) {
				return wrapError(KindConflict, err, "copy state changed mid-operation")
			}
			return err
		}

		err = m.logs.WithTx(tx).Record(&entities.StaffLog{
			UserID:        staffID,
			BookID:        bookID,
			ActionType:    entities.StaffActionReturn,
			ActionDetails: fmt.Sprintf("checkout %d: copy %d returned by user %d (late: %t)", checkout.ID, checkout.CopyID, userID, isLate),
			CorrelationID: uuid.NewString(),
		})
		if err != nil {
			return err
		}

		result = &ReturnResult{CheckoutID: checkout.ID, IsLate: isLate, ReturnedAt: returnedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddCopy provisions one new copy of the book.
func (m *Manager) AddCopy(ctx context.Context, bookID, staffID uint) (*entities.BookCopy, error) {
	if bookID == 0 {
		return nil, newError(KindValidation, "book id is required")
	}

	var created *entities.BookCopy
	err := m.run(ctx, func(tx *gorm.DB) error {
		copyStore := m.copies.WithTx(tx)

		book, err := copyStore.GetBookForUpdate(bookID)
		if err != nil {
			if errors.Is(err, copies.ErrBookNotFound) {
				return newError(KindNotFound, "book %d not found", bookID)
			}
			return err
		}
		if book.Retired {
			return newError(KindConflict, "book %d is retired from circulation", bookID)
		}

		created, err = copyStore.CreateCopy(bookID)
		if err != nil {
			return err
		}

		return m.logs.WithTx(tx).Record(&entities.StaffLog{
			UserID:        staffID,
			BookID:        bookID,
			ActionType:    entities.StaffActionAddCopy,
			ActionDetails: fmt.Sprintf("copy %d added (quantity %d -> %d)", created.ID, book.Quantity, book.Quantity+1),
			CorrelationID: uuid.NewString(),
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteCopy removes a copy that is not currently out.
func (m *Manager) DeleteCopy(ctx context.Context, copyID, staffID uint) error {
	if copyID == 0 {
		return newError(KindValidation, "copy id is required")
	}

	return m.run(ctx, func(tx *gorm.DB) error {
		copyStore := m.copies.WithTx(tx)

		bookCopy, err := copyStore.GetCopy(copyID)
		if err != nil {
			if errors.Is(err, copies.ErrCopyNotFound) {
				return newError(KindNotFound, "copy %d not found", copyID)
			}
			return err
		}

		// Lock the parent book so the deletion serializes with borrows.
		if _, err := copyStore.GetBookForUpdate(bookCopy.BookID); err != nil {
			return err
		}

		if err := copyStore.DeleteCopy(copyID); err != nil {
			if errors.Is(err, copies.ErrCopyBorrowed) {
				return newError(KindConflict, "copy %d is currently borrowed", copyID)
			}
			return err
		}

		return m.logs.WithTx(tx).Record(&entities.StaffLog{
			UserID:        staffID,
			BookID:        bookCopy.BookID,
			ActionType:    entities.StaffActionDeleteCopy,
			ActionDetails: fmt.Sprintf("copy %d deleted", copyID),
			CorrelationID: uuid.NewString(),
		})
	})
}

// RetireCopy permanently removes a copy from circulation, keeping its
// row for history.
func (m *Manager) RetireCopy(ctx context.Context, copyID, staffID uint) error {
	if copyID == 0 {
		return newError(KindValidation, "copy id is required")
	}

	return m.run(ctx, func(tx *gorm.DB) error {
		copyStore := m.copies.WithTx(tx)

		bookCopy, err := copyStore.GetCopy(copyID)
		if err != nil {
			if errors.Is(err, copies.ErrCopyNotFound) {
				return newError(KindNotFound, "copy %d not found", copyID)
			}
			return err
		}

		if _, err := copyStore.GetBookForUpdate(bookCopy.BookID); err != nil {
			return err
		}

		if err := copyStore.RetireCopy(copyID); err != nil {
			switch {
			case errors.Is(err, copies.ErrCopyBorrowed):
				return newError(KindConflict, "copy %d is currently borrowed", copyID)
			case errors.Is(err, copies.ErrCopyRetired):
				return newError(KindConflict, "copy %d is already retired", copyID)
			}
			return err
		}

		return m.logs.WithTx(tx).Record(&entities.StaffLog{
			UserID:        staffID,
			BookID:        bookCopy.BookID,
			ActionType:    entities.StaffActionRetireCopy,
			ActionDetails: fmt.Sprintf("copy %d retired", copyID),
			CorrelationID: uuid.NewString(),
		})
	})
}

// RetireBook moves a book to its non-borrowable terminal status. Refused
// while any copy is still out.
func (m *Manager) RetireBook(ctx context.Context, bookID, staffID uint) error {
	if bookID == 0 {
		return newError(KindValidation, "book id is required")
	}

	return m.run(ctx, func(tx *gorm.DB) error {
		copyStore := m.copies.WithTx(tx)

		book, err := copyStore.GetBookForUpdate(bookID)
		if err != nil {
			if errors.Is(err, copies.ErrBookNotFound) {
				return newError(KindNotFound, "book %d not found", bookID)
			}
			return err
		}
		if book.Retired {
			return newError(KindConflict, "book %d is already retired", bookID)
		}

		borrowed, err := copyStore.CountBorrowed(bookID)
		if err != nil {
			return err
		}
		if borrowed > 0 {
			return newError(KindConflict, "book %d has %d copies currently out", bookID, borrowed)
		}

		if err := copyStore.RetireBook(bookID); err != nil {
			return err
		}

		return m.logs.WithTx(tx).Record(&entities.StaffLog{
			UserID:        staffID,
			BookID:        bookID,
			ActionType:    entities.StaffActionRetireBook,
			ActionDetails: fmt.Sprintf("book retired with %d copies on shelf", book.AvailableCopies),
			CorrelationID: uuid.NewString(),
		})
	})
}

// UpdateQuantity reprovisions a book to exactly newQuantity copies.
// Growth adds available copies; shrinkage deletes available ones. A
// target below the number currently borrowed is rejected, not clamped.
func (m *Manager) UpdateQuantity(ctx context.Context, bookID uint, newQuantity int, staffID uint) (*entities.Book, error) {
	if bookID == 0 {
		return nil, newError(KindValidation, "book id is required")
	}
	if newQuantity < 0 {
		return nil, newError(KindValidation, "quantity must not be negative")
	}

	var updated *entities.Book
	err := m.run(ctx, func(tx *gorm.DB) error {
		copyStore := m.copies.WithTx(tx)

		book, err := copyStore.GetBookForUpdate(bookID)
		if err != nil {
			if errors.Is(err, copies.ErrBookNotFound) {
				return newError(KindNotFound, "book %d not found", bookID)
			}
			return err
		}
		if book.Retired {
			return newError(KindConflict, "book %d is retired from circulation", bookID)
		}

		borrowed := book.Quantity - book.AvailableCopies
		if newQuantity < borrowed {
			return newError(KindConflict, "quantity %d is below the %d copies currently out", newQuantity, borrowed)
		}

		switch {
		case newQuantity > book.Quantity:
			for i := book.Quantity; i < newQuantity; i++ {
				if _, err := copyStore.CreateCopy(bookID); err != nil {
					return err
				}
			}
		case newQuantity < book.Quantity:
			toRemove := book.Quantity - newQuantity
			removed, err := copyStore.DeleteAvailableCopies(bookID, toRemove)
			if err != nil {
				return err
			}
			if removed != toRemove {
				return wrapError(KindConflict, copies.ErrCounterOutOfSync,
					fmt.Sprintf("expected to remove %d copies, removed %d", toRemove, removed))
			}
		}

		if err := m.logs.WithTx(tx).Record(&entities.StaffLog{
			UserID:        staffID,
			BookID:        bookID,
			ActionType:    entities.StaffActionInventoryUpdate,
			ActionDetails: fmt.Sprintf("quantity %d -> %d", book.Quantity, newQuantity),
			CorrelationID: uuid.NewString(),
		}); err != nil {
			return err
		}

		updated, err = copyStore.GetBook(bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
