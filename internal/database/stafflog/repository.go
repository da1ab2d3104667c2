// Package stafflog owns the append-only StaffLog rows documenting
// privileged inventory actions.
package stafflog

import (
	"time"

	"gorm.io/gorm"

	"github.com/librarium/librarium/internal/entities"
)

// Repository handles staff log persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new staff log repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to an open transaction. The
// circulation manager uses this so the log row commits or rolls back
// with the inventory mutation it describes.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Record appends a staff log entry. Pure append; no conditional logic.
func (r *Repository) Record(entry *entities.StaffLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.Create(entry).Error
}

// List retrieves paginated log entries, most recent first, optionally
// filtered by action type and book.
func (r *Repository) List(actionType entities.StaffActionType, bookID uint, limit, offset int) ([]entities.StaffLog, int64, error) {
	var entries []entities.StaffLog
	var total int64

	query := r.db.Model(&entities.StaffLog{})
	if actionType != "" {
		query = query.Where("action_type = ?", actionType)
	}
	if bookID > 0 {
		query = query.Where("book_id = ?", bookID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

// ListForBook retrieves all log entries for one book, oldest first.
func (r *Repository) ListForBook(bookID uint) ([]entities.StaffLog, error) {
	var entries []entities.StaffLog
	err := r.db.Where("book_id = ?", bookID).Order("created_at ASC, id ASC").Find(&entries).Error
	return entries, err
}

// DeleteOlderThan removes log entries created before the given time.
// Returns the number of deleted entries. Retention applies to the
// operational log only; checkout history is kept forever elsewhere.
func (r *Repository) DeleteOlderThan(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.StaffLog{})
	return result.RowsAffected, result.Error
}
