package entities

import "time"

// Checkout records one user borrowing one copy. Rows are created by a
// successful borrow and mutated exactly once, at return, to set
// ReturnDate, IsReturned and IsLate. They are never deleted; closed
// checkouts are the lending history.
type Checkout struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`
	BookID uint `gorm:"index;not null" json:"book_id"`
	CopyID uint `gorm:"index;not null" json:"copy_id"`

	CheckoutDate time.Time  `gorm:"not null" json:"checkout_date"`
	DueDate      time.Time  `gorm:"not null" json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`

	// IsReturned mirrors whether ReturnDate is set; open-checkout queries
	// filter on it. IsLate is computed once at return time and frozen.
	IsReturned bool `gorm:"not null;default:false;index" json:"is_returned"`
	IsLate     bool `gorm:"not null;default:false" json:"is_late"`

	User User `gorm:"foreignKey:UserID" json:"-"`
	Book Book `gorm:"foreignKey:BookID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// IsOverdue reports whether an open checkout is past due at the given
// instant. Closed checkouts are never overdue; their lateness is frozen
// in IsLate.
func (c *Checkout) IsOverdue(now time.Time) bool {
	return !c.IsReturned && now.After(c.DueDate)
}
