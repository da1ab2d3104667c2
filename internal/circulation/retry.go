package circulation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// run executes fn as one atomic transaction and retries the whole unit a
// bounded number of times when it fails transiently (lock wait timeout,
// deadlock abort). Rollback has already happened by the time a retry
// starts, so every attempt sees a clean pre-operation state. Classified
// engine errors pass through untouched; exhausted retries surface as
// KindBusy.
func (m *Manager) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempts := m.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := m.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return wrapError(KindBusy, ctx.Err(), "operation cancelled while waiting to retry")
			case <-time.After(delay):
			}
		}

		err = m.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isTransient(err) {
			return err
		}
	}

	return wrapError(KindBusy, err, "storage busy, retries exhausted")
}

// isTransient reports whether an error is worth retrying: the storage
// layer refused or aborted the transaction for scheduling reasons rather
// than because the operation itself is invalid.
func isTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		// Already classified; business failures never retry.
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "deadlock")
}
