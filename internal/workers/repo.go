package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tauqir1234/Festio/internal/metrics"
	"github.com/Tauqir1234/Festio/internal/models"
	"gorm.io/gorm"
)

type OutboxBatch struct{ Records []models.Outbox }

// FetchOutboxBatch claims up to limit unprocessed outbox records. The
// FOR UPDATE SKIP LOCKED claim lets multiple worker replicas share the
// queue without double-applying.
func FetchOutboxBatch(ctx context.Context, db *gorm.DB, limit int) (OutboxBatch, error) {
	var records []models.Outbox
	tx := db.WithContext(ctx).Raw(`
		WITH cte AS (
		  SELECT * FROM outboxes
		  WHERE processed = false
		  ORDER BY id ASC
		  LIMIT ?
		  FOR UPDATE SKIP LOCKED
		)
		UPDATE outboxes SET processed = true
		FROM cte
		WHERE outboxes.id = cte.id
		RETURNING cte.*`, limit).Scan(&records)
	return OutboxBatch{Records: records}, tx.Error
}

// PutDLQ parks a failed outbox record for later retry. The record is
// already marked processed, so nothing loops on it.
func PutDLQ(db *gorm.DB, ob models.Outbox, msg string) {
	metrics.SyncDLQ.Inc()
	dlq := models.DLQ{
		OutboxID:   ob.ID,
		EntityType: ob.EntityType,
		EntityID:   ob.EntityID.String(),
		Op:         ob.Op,
		ErrorMsg:   msg,
		Payload:    ob.Payload,
		CreatedAt:  time.Now(),
		Resolved:   false,
	}
	if err := db.Create(&dlq).Error; err != nil {
		slog.Error("failed to insert into DLQ", "outbox_id", ob.ID, "error", err)
		return
	}
	slog.Warn("outbox record parked in DLQ", "outbox_id", ob.ID, "entity", ob.EntityType, "reason", msg)
}
