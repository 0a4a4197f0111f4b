package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteConnection opens a local sqlite database tuned for the
// scheduler's read-heavy access pattern (WAL, relaxed sync, busy timeout
// so the writer lock never surfaces as SQLITE_BUSY to callers).
func NewSQLiteConnection(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=30000", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	// sqlite allows one writer; a single pooled connection avoids
	// lock contention between goroutines entirely
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	log.Printf("[DB] Opened sqlite database: %s", path)
	return db, nil
}
