// Package audit is the read and maintenance surface over the staff
// action log. Writes that belong to an inventory operation happen inside
// that operation's transaction in circulation; this service only covers
// standalone events and queries.
package audit

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium/internal/database/stafflog"
	"github.com/librarium/librarium/internal/entities"
)

// Service provides high-level access to the staff action log.
type Service struct {
	repo *stafflog.Repository
}

// NewService creates a new audit service.
func NewService(repo *stafflog.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a standalone staff event outside any inventory
// transaction. A missing correlation id is filled in.
func (s *Service) Log(entry *entities.StaffLog) error {
	if entry.CorrelationID == "" {
		entry.CorrelationID = uuid.NewString()
	}
	return s.repo.Record(entry)
}

// LogAsync records a staff event in the background (non-blocking).
func (s *Service) LogAsync(entry *entities.StaffLog) {
	if entry.CorrelationID == "" {
		entry.CorrelationID = uuid.NewString()
	}
	go func() {
		if err := s.repo.Record(entry); err != nil {
			log.Printf("Failed to record staff log entry: %v", err)
		}
	}()
}

// LogAuth records a staff sign-in attempt.
func (s *Service) LogAuth(userID uint, action string, success bool) {
	details := action + " succeeded"
	if !success {
		details = action + " failed"
	}

	s.LogAsync(&entities.StaffLog{
		UserID:        userID,
		ActionType:    entities.StaffActionOther,
		ActionDetails: truncate(details, 500),
	})
}

// GetEvents retrieves paginated log entries, newest first. Zero values
// disable the actionType and bookID filters.
func (s *Service) GetEvents(actionType entities.StaffActionType, bookID uint, limit, offset int) ([]entities.StaffLog, int64, error) {
	return s.repo.List(actionType, bookID, limit, offset)
}

// GetBookHistory retrieves the full trail for one book.
func (s *Service) GetBookHistory(bookID uint) ([]entities.StaffLog, error) {
	return s.repo.ListForBook(bookID)
}

// DeleteOldEvents removes entries older than the specified retention.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOlderThan(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
