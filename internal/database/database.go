package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/librarium/librarium/internal/entities"
)

// Database is the explicitly constructed store handle. It is created once
// at startup and injected into every repository and the circulation
// manager; nothing in the codebase reaches a connection through global
// state.
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the SQLite store and runs migrations.
//
// The DSN enables WAL mode and sets a busy timeout so a transaction
// waiting on a conflicting lock blocks for a bounded interval instead of
// failing immediately or hanging forever. _txlock=immediate makes every
// transaction take the write lock at BEGIN, which serializes the
// circulation engine's units of work the same way a row-level exclusive
// lock would on a server database.
func NewDatabase(dbPath string, busyTimeout time.Duration) (*Database, error) {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	dsn := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=%d&_txlock=immediate&_foreign_keys=on",
		dbPath, busyTimeout.Milliseconds())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.BookCopy{},
		&entities.Checkout{},
		&entities.StaffLog{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
