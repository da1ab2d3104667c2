package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./librarium.db"

	// DefaultLoanPeriodDays is the loan period applied when a borrow request
	// does not carry an explicit due date
	DefaultLoanPeriodDays = 7
)
