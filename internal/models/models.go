package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ---------------- EVENTS ----------------

type EventCategory string

const (
	CategoryAcademic EventCategory = "academic"
	CategoryCultural EventCategory = "cultural"
	CategorySports   EventCategory = "sports"
	CategoryWorkshop EventCategory = "workshop"
	CategorySeminar  EventCategory = "seminar"
	CategoryFest     EventCategory = "fest"
	CategoryOther    EventCategory = "other"
)

// Valid reports whether c is one of the known categories.
func (c EventCategory) Valid() bool {
	switch c {
	case CategoryAcademic, CategoryCultural, CategorySports,
		CategoryWorkshop, CategorySeminar, CategoryFest, CategoryOther:
		return true
	}
	return false
}

type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventUpcoming, EventOngoing, EventCompleted, EventCancelled:
		return true
	}
	return false
}

type Event struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Venue        string    `json:"venue"`
	Organizer    string    `json:"organizer"`
	ContactEmail string    `json:"contact_email"`
	ImageURL     string    `json:"image_url"`

	Date      time.Time `gorm:"not null;index" json:"date"`
	StartTime string    `json:"start_time,omitempty"` // "15:04", optional
	EndTime   string    `json:"end_time,omitempty"`

	Category EventCategory `gorm:"not null;index" json:"category"`
	Status   EventStatus   `gorm:"not null;index;default:upcoming" json:"status"`

	// nil means unbounded / no cutoff.
	MaxCapacity          *int       `json:"max_capacity,omitempty"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`

	CreatedDate time.Time `gorm:"autoCreateTime;index" json:"created_date"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ---------------- REGISTRATIONS ----------------

type RegistrationStatus string

const (
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationAttended  RegistrationStatus = "attended"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationConfirmed, RegistrationCancelled, RegistrationAttended:
		return true
	}
	return false
}

// Registration is a ledger row. EventTitle is a snapshot of the event title
// at registration time and is never re-synchronized on event edits.
//
// The partial unique index backs the one-active-registration-per-user
// invariant at the storage level; the admission controller enforces it
// first, inside its transaction.
type Registration struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	EventID          uuid.UUID          `gorm:"type:uuid;not null;index;uniqueIndex:ux_registrations_active,where:status <> 'cancelled'" json:"event_id"`
	EventTitle       string             `json:"event_title"`
	UserEmail        string             `gorm:"not null;index;uniqueIndex:ux_registrations_active" json:"user_email"`
	UserName         string             `json:"user_name"`
	RegistrationDate time.Time          `gorm:"not null;index" json:"registration_date"`
	Status           RegistrationStatus `gorm:"not null;index;default:confirmed" json:"status"`
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ---------------- OUTBOX (search sync) ----------------

const (
	EntityEvent        = "event"
	EntityRegistration = "registration"

	OpUpsert = "UPSERT"
	OpDelete = "DELETE"
)

type Outbox struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string         `gorm:"index;not null" json:"entity_type"`
	EntityID   uuid.UUID      `gorm:"type:uuid;not null" json:"entity_id"`
	Op         string         `gorm:"not null" json:"op"` // UPSERT | DELETE
	Payload    datatypes.JSON `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Processed  bool           `gorm:"default:false;index" json:"processed"`
}
