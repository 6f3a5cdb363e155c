// Package testdb provides an in-memory database fixture running the same
// GORM code paths the service runs against Postgres.
package testdb

import (
	"testing"

	"github.com/Tauqir1234/Festio/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens an isolated in-memory SQLite database with the full schema.
// A single connection keeps the memory database alive and serializes
// writes the way SQLite's single-writer model expects under high
// goroutine contention.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.Event{},
		&models.Registration{},
		&models.Outbox{},
		&models.DLQ{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
