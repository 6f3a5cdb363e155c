// Package outbox records entity mutations for the search sync worker.
// Records are written inside the same transaction as the mutation they
// describe, so the index never learns about a write that rolled back.
package outbox

import (
	"encoding/json"

	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Enqueue inserts one outbox record. tx must be the transaction carrying
// the entity mutation itself.
func Enqueue(tx *gorm.DB, entityType string, entityID uuid.UUID, op string, payload any) error {
	var data datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		data = datatypes.JSON(b)
	}

	record := models.Outbox{
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
		Payload:    data,
	}
	return tx.Create(&record).Error
}

// EnqueueBatch inserts one record per id, used for cascading reindexes.
func EnqueueBatch(tx *gorm.DB, entityType, op string, ids []uuid.UUID) error {
	for _, id := range ids {
		record := models.Outbox{
			EntityType: entityType,
			EntityID:   id,
			Op:         op,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}
