package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/librarium/librarium/internal/entities"
)

// OverdueLister provides the open checkouts past their due date.
type OverdueLister interface {
	ListOverdue(asOf time.Time) ([]entities.Checkout, error)
}

// OverdueSweepTask scans the ledger for open checkouts past their due
// date and reports them. The lateness verdict itself is frozen at return
// time; the sweep only surfaces what is currently out and late.
type OverdueSweepTask struct{}

// Config returns the queue configuration for overdue sweep tasks.
func (t OverdueSweepTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_sweep",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OverdueSweepProcessor creates a processor function for OverdueSweepTask.
func OverdueSweepProcessor(lister OverdueLister) backlite.QueueProcessor[OverdueSweepTask] {
	return func(ctx context.Context, task OverdueSweepTask) error {
		if lister == nil {
			return fmt.Errorf("overdue lister not configured")
		}

		overdue, err := lister.ListOverdue(time.Now())
		if err != nil {
			return fmt.Errorf("overdue sweep: %w", err)
		}

		if len(overdue) == 0 {
			log.Printf("[TASK] Overdue sweep: no overdue checkouts")
			return nil
		}

		log.Printf("[TASK] Overdue sweep: %d overdue checkouts", len(overdue))
		for _, checkout := range overdue {
			log.Printf("[TASK] Overdue: checkout %d, user %d, book %d, copy %d, due %s",
				checkout.ID, checkout.UserID, checkout.BookID, checkout.CopyID,
				checkout.DueDate.Format(time.RFC3339))
		}
		return nil
	}
}

// NewOverdueSweepQueue creates a backlite queue for overdue sweep tasks.
func NewOverdueSweepQueue(lister OverdueLister) backlite.Queue {
	return backlite.NewQueue(OverdueSweepProcessor(lister))
}
