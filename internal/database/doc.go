// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations
//	├── books/           # Book catalogue CRUD (metadata only)
//	├── copies/          # Copy rows and availability counters (CopyStore)
//	├── checkouts/       # Checkout lifecycle records (CheckoutLedger)
//	└── stafflog/        # Append-only staff action log (audit trail)
//
// Each sub-package provides a Repository type over a shared *gorm.DB:
//
//	db, err := database.NewDatabase("./librarium.db", 5*time.Second)
//	copiesRepo := copies.NewRepository(db.DB)
//	ledger := checkouts.NewRepository(db.DB)
//
// # Transactions
//
// Repositories never open transactions of their own. A repository bound
// to the root handle autocommits per call; the circulation manager, which
// is the only component allowed to touch more than one of these stores in
// a single operation, rebinds repositories to an open transaction with
// WithTx so every write inside the unit commits or rolls back together:
//
//	err := db.DB.Transaction(func(tx *gorm.DB) error {
//	    return copiesRepo.WithTx(tx).MarkBorrowed(copyID)
//	})
//
// Ownership is strict: copies owns Book/BookCopy rows, checkouts owns
// Checkout rows, stafflog owns StaffLog rows. Cross-store writes outside
// the circulation manager are a bug.
package database
