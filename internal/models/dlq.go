package models

import "time"

// DLQ holds outbox records the search sync worker could not apply.
type DLQ struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OutboxID   int64     `gorm:"index" json:"outbox_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Op         string    `json:"op"`
	ErrorMsg   string    `json:"error_msg"`
	Payload    []byte    `gorm:"type:bytea" json:"payload,omitempty"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	RetriedAt  *time.Time `json:"retried_at,omitempty"`
	Resolved   bool      `gorm:"default:false" json:"resolved"`
}
