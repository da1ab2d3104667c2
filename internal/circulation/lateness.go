package circulation

import "time"

// IsLate reports whether a return at returnedAt missed the due date.
// Both values are absolute instants; a return at exactly the due date is
// on time.
func IsLate(dueDate, returnedAt time.Time) bool {
	return returnedAt.After(dueDate)
}
