package db

import (
	"fmt"

	"github.com/Tauqir1234/Festio/internal/models"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Event{},
		&models.Registration{},
		&models.Outbox{},
		&models.DLQ{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
