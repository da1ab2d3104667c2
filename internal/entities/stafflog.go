package entities

import "time"

type StaffActionType string

const (
	StaffActionCheckout        StaffActionType = "checkout"
	StaffActionReturn          StaffActionType = "return"
	StaffActionAddCopy         StaffActionType = "add_copy"
	StaffActionDeleteCopy      StaffActionType = "delete_copy"
	StaffActionRetireCopy      StaffActionType = "retire_copy"
	StaffActionRetireBook      StaffActionType = "retire_book"
	StaffActionInventoryUpdate StaffActionType = "inventory_update"
	StaffActionOther           StaffActionType = "other"
)

// StaffLog is the immutable audit record of a privileged inventory
// action. Rows are appended in the same transaction as the action they
// document and are never updated.
type StaffLog struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"index" json:"user_id"`
	BookID        uint            `gorm:"index" json:"book_id"`
	ActionType    StaffActionType `gorm:"index;size:30;not null" json:"action_type"`
	ActionDetails string          `gorm:"size:500" json:"action_details,omitempty"`

	// CorrelationID groups log rows emitted by the same request.
	CorrelationID string `gorm:"size:36" json:"correlation_id,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (StaffLog) TableName() string {
	return "staff_logs"
}
