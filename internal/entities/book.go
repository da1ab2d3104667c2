package entities

import (
	"time"
)

// Book is a title in the catalogue. Quantity and AvailableCopies are
// aggregate counters over the book's copies: Quantity counts every
// non-retired copy ever provisioned, AvailableCopies the subset not
// currently checked out. Copy rows are the source of truth; the counters
// are a cached projection and only change in the same transaction as the
// copy-state change that justifies them. Invariant:
// 0 <= AvailableCopies <= Quantity.
type Book struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"index;size:512" json:"title"`
	Author      string `gorm:"index;size:256" json:"author,omitempty"`
	ISBN        string `gorm:"index;size:20" json:"isbn,omitempty"`
	Publisher   string `gorm:"size:256" json:"publisher,omitempty"`
	Genre       string `gorm:"index;size:100" json:"genre,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Quantity        int  `gorm:"not null;default:0" json:"quantity"`
	AvailableCopies int  `gorm:"not null;default:0" json:"available_copies"`
	Retired         bool `gorm:"not null;default:false" json:"retired"`

	Copies []BookCopy `gorm:"foreignKey:BookID" json:"copies,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookCopy is one physical, lendable instance of a book. A copy with
// IsBorrowed set has exactly one open checkout; a copy without it has
// none. Retired is terminal: the copy stays for history but is never
// selected for lending again and no longer counts toward the parent
// book's counters.
type BookCopy struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	BookID     uint `gorm:"index;not null" json:"book_id"`
	IsBorrowed bool `gorm:"not null;default:false" json:"is_borrowed"`
	Retired    bool `gorm:"not null;default:false" json:"retired"`

	Book Book `gorm:"foreignKey:BookID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BookCopy) TableName() string {
	return "book_copies"
}
