// Package workers moves outbox records into the Elasticsearch projection
// and retries the ones that failed.
package workers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/Tauqir1234/Festio/internal/metrics"
	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/Tauqir1234/Festio/internal/search"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncWorker struct {
	DB *gorm.DB
	ES *es.Client

	// Interval between outbox polls; BatchSize records per poll.
	Interval  time.Duration
	BatchSize int
}

func (w *SyncWorker) Run(ctx context.Context) {
	if err := search.EnsureIndexes(ctx, w.ES); err != nil {
		slog.Error("ensure indexes", "error", err)
		return
	}

	interval := w.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				slog.Error("sync worker", "error", err)
			}
		}
	}
}

func (w *SyncWorker) processOnce(ctx context.Context) error {
	limit := w.BatchSize
	if limit <= 0 {
		limit = 200
	}
	batch, err := FetchOutboxBatch(ctx, w.DB, limit)
	if err != nil {
		return err
	}
	if len(batch.Records) == 0 {
		return nil
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: w.ES, Index: "", FlushBytes: 5 << 20, NumWorkers: 2,
	})
	if err != nil {
		return err
	}

	for _, record := range batch.Records {
		if err := w.applyRecord(ctx, bi, record); err != nil {
			metrics.SyncFailed.Inc()
			PutDLQ(w.DB, record, err.Error())
			continue
		}
		metrics.SyncProcessed.Inc()
	}

	if err := bi.Close(ctx); err != nil {
		return err
	}
	stats := bi.Stats()
	slog.Debug("bulk index flushed", "ok", stats.NumFlushed, "failed", stats.NumFailed)
	return nil
}

// ApplyRecord re-applies one outbox record, used by the DLQ retry paths.
func (w *SyncWorker) ApplyRecord(ctx context.Context, bi esutil.BulkIndexer, record models.Outbox) error {
	return w.applyRecord(ctx, bi, record)
}

// applyRecord projects one outbox record onto the index. Registration
// changes reindex their parent event so the registered count stays fresh
// in search results.
func (w *SyncWorker) applyRecord(ctx context.Context, bi esutil.BulkIndexer, record models.Outbox) error {
	switch record.EntityType {
	case models.EntityEvent:
		if record.Op == models.OpDelete {
			return w.add(bi, search.IdxEvents, record.EntityID.String(), record.ID, "delete", nil)
		}
		return w.indexEvent(ctx, bi, record.EntityID, record.ID)

	case models.EntityRegistration:
		var reg models.Registration
		if err := w.DB.First(&reg, "id = ?", record.EntityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Registration gone; nothing to project.
				return nil
			}
			return err
		}
		return w.indexEvent(ctx, bi, reg.EventID, record.ID)
	}
	return fmt.Errorf("unknown entity_type=%s", record.EntityType)
}

func (w *SyncWorker) indexEvent(ctx context.Context, bi esutil.BulkIndexer, eventID uuid.UUID, outboxID int64) error {
	var event models.Event
	if err := w.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return w.add(bi, search.IdxEvents, eventID.String(), outboxID, "delete", nil)
		}
		return err
	}

	var confirmed int64
	err := w.DB.Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", eventID, models.RegistrationConfirmed).
		Count(&confirmed).Error
	if err != nil {
		return err
	}

	doc, err := search.BuildEventDoc(event, int(confirmed))
	if err != nil {
		return err
	}
	return w.add(bi, search.IdxEvents, eventID.String(), outboxID, "index", doc)
}

func (w *SyncWorker) add(bi esutil.BulkIndexer, index, docID string, outboxID int64, action string, body []byte) error {
	item := esutil.BulkIndexerItem{
		Action:     action,
		DocumentID: docID,
		Index:      index,
		OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
			slog.Debug("synced document", "index", index, "id", docID)
		},
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			msg := ""
			switch {
			case err != nil:
				msg = err.Error()
			case res.Error.Reason != "":
				msg = fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason)
			default:
				msg = fmt.Sprintf("status=%d failed to index", res.Status)
			}

			id, parseErr := uuid.Parse(docID)
			if parseErr != nil {
				slog.Error("bulk failure for unparseable doc id", "id", docID, "reason", msg)
				return
			}
			PutDLQ(w.DB, models.Outbox{
				ID:         outboxID,
				EntityType: models.EntityEvent,
				EntityID:   id,
				Op:         action,
			}, msg)
		},
	}

	if len(body) > 0 {
		item.Body = bytes.NewReader(body)
	}
	return bi.Add(context.Background(), item)
}
