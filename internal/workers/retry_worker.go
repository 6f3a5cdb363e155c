package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/Tauqir1234/Festio/internal/metrics"
	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/google/uuid"
)

// RetryDLQ periodically re-applies unresolved DLQ records.
func (w *SyncWorker) RetryDLQ(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.retryOnce(ctx)
		}
	}
}

func (w *SyncWorker) retryOnce(ctx context.Context) {
	var dlqs []models.DLQ
	if err := w.DB.Where("resolved = false").Limit(50).Find(&dlqs).Error; err != nil {
		slog.Error("DLQ fetch", "error", err)
		return
	}

	for _, d := range dlqs {
		entityID, err := uuid.Parse(d.EntityID)
		if err != nil {
			slog.Error("DLQ record with bad entity id", "dlq_id", d.ID, "entity_id", d.EntityID)
			continue
		}
		record := models.Outbox{
			ID:         d.OutboxID,
			EntityType: d.EntityType,
			EntityID:   entityID,
			Op:         d.Op,
		}

		bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
			Client: w.ES, Index: "", FlushBytes: 5 << 20, NumWorkers: 2,
		})
		if err != nil {
			slog.Error("bulk indexer", "error", err)
			return
		}

		if err := w.applyRecord(ctx, bi, record); err != nil {
			_ = bi.Close(ctx)
			continue
		}
		if err := bi.Close(ctx); err != nil {
			continue
		}

		now := time.Now()
		w.DB.Model(&models.DLQ{}).Where("id = ?", d.ID).Updates(map[string]any{
			"resolved":   true,
			"retried_at": &now,
		})
		metrics.SyncProcessed.Inc()
		slog.Info("DLQ record resolved", "dlq_id", d.ID)
	}
}

// RetryOne re-applies a single DLQ record on demand, used by the admin
// endpoint. Returns the apply error so the caller can surface it.
func (w *SyncWorker) RetryOne(ctx context.Context, dlqID int64) error {
	var d models.DLQ
	if err := w.DB.First(&d, "id = ?", dlqID).Error; err != nil {
		return err
	}
	entityID, err := uuid.Parse(d.EntityID)
	if err != nil {
		return err
	}
	record := models.Outbox{
		ID:         d.OutboxID,
		EntityType: d.EntityType,
		EntityID:   entityID,
		Op:         d.Op,
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: w.ES, Index: "", FlushBytes: 5 << 20, NumWorkers: 2,
	})
	if err != nil {
		return err
	}
	if err := w.applyRecord(ctx, bi, record); err != nil {
		_ = bi.Close(ctx)
		// Keep the one row; a failed retry refreshes it rather than
		// inserting a duplicate for the same outbox record.
		now := time.Now()
		w.DB.Model(&models.DLQ{}).Where("id = ?", dlqID).Updates(map[string]any{
			"error_msg":  err.Error(),
			"retried_at": &now,
		})
		return err
	}
	if err := bi.Close(ctx); err != nil {
		return err
	}

	now := time.Now()
	return w.DB.Model(&models.DLQ{}).Where("id = ?", dlqID).Updates(map[string]any{
		"resolved":   true,
		"retried_at": &now,
	}).Error
}
