// Package catalog holds the event records administrators manage and the
// filtered queries every browsing surface reads.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Tauqir1234/Festio/internal/apperr"
	"github.com/Tauqir1234/Festio/internal/identity"
	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/Tauqir1234/Festio/internal/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Searcher answers full-text queries over the event index. A nil Searcher
// makes List fall back to a SQL substring match.
type Searcher interface {
	SearchEventIDs(ctx context.Context, text string, limit int) ([]uuid.UUID, error)
}

type Catalog struct {
	db       *gorm.DB
	searcher Searcher
}

func New(db *gorm.DB, s Searcher) *Catalog {
	return &Catalog{db: db, searcher: s}
}

// Filter narrows a listing. Empty or "all" disables a predicate.
type Filter struct {
	Search   string
	Category string
	Status   string
	Sort     string // "-date" (default), "date", "-created_date", "created_date"
	Limit    int
}

var sortColumns = map[string]string{
	"-date":         "date DESC",
	"date":          "date ASC",
	"-created_date": "created_date DESC",
	"created_date":  "created_date ASC",
}

// List returns matching events. Nothing matching is an empty slice, not an
// error.
func (c *Catalog) List(ctx context.Context, f Filter) ([]models.Event, error) {
	q := c.db.WithContext(ctx).Model(&models.Event{})

	if f.Category != "" && f.Category != "all" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Status != "" && f.Status != "all" {
		q = q.Where("status = ?", f.Status)
	}

	if text := strings.TrimSpace(f.Search); text != "" {
		if c.searcher != nil {
			ids, err := c.searcher.SearchEventIDs(ctx, text, f.Limit)
			if err != nil {
				return nil, apperr.Wrap(apperr.StoreUnavailable, "search events", err)
			}
			if len(ids) == 0 {
				return []models.Event{}, nil
			}
			q = q.Where("id IN ?", ids)
		} else {
			needle := "%" + strings.ToLower(text) + "%"
			q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", needle, needle)
		}
	}

	order, ok := sortColumns[f.Sort]
	if !ok {
		order = sortColumns["-date"]
	}
	q = q.Order(order)

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	events := []models.Event{}
	if err := q.Find(&events).Error; err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "list events", err)
	}
	return events, nil
}

func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (models.Event, error) {
	var event models.Event
	err := c.db.WithContext(ctx).First(&event, "id = ?", id).Error
	switch {
	case err == nil:
		return event, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.Event{}, apperr.Newf(apperr.NotFound, "event %s not found", id)
	default:
		return models.Event{}, apperr.Wrap(apperr.StoreUnavailable, "load event", err)
	}
}

// EventFields carries the admin form for create and update. ID, created
// date and registrations are never set through it.
type EventFields struct {
	Title                string
	Description          string
	Venue                string
	Organizer            string
	ContactEmail         string
	ImageURL             string
	Date                 time.Time
	StartTime            string
	EndTime              string
	Category             models.EventCategory
	Status               models.EventStatus
	MaxCapacity          *int
	RegistrationDeadline *time.Time
}

func (f *EventFields) validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return apperr.New(apperr.Validation, "title is required")
	}
	if f.Date.IsZero() {
		return apperr.New(apperr.Validation, "date is required")
	}
	if f.Category == "" {
		f.Category = models.CategoryOther
	}
	if !f.Category.Valid() {
		return apperr.Newf(apperr.Validation, "unknown category %q", f.Category)
	}
	if f.Status == "" {
		f.Status = models.EventUpcoming
	}
	if !f.Status.Valid() {
		return apperr.Newf(apperr.Validation, "unknown status %q", f.Status)
	}
	if f.MaxCapacity != nil && *f.MaxCapacity <= 0 {
		return apperr.New(apperr.Validation, "max_capacity must be a positive integer")
	}
	if f.RegistrationDeadline != nil &&
		models.AfterDay(*f.RegistrationDeadline, f.Date) {
		return apperr.New(apperr.Validation, "registration_deadline must not be after the event date")
	}
	return nil
}

func (f *EventFields) apply(e *models.Event) {
	e.Title = f.Title
	e.Description = f.Description
	e.Venue = f.Venue
	e.Organizer = f.Organizer
	e.ContactEmail = f.ContactEmail
	e.ImageURL = f.ImageURL
	e.Date = f.Date
	e.StartTime = f.StartTime
	e.EndTime = f.EndTime
	e.Category = f.Category
	e.Status = f.Status
	e.MaxCapacity = f.MaxCapacity
	e.RegistrationDeadline = f.RegistrationDeadline
}

// Create inserts a new event. Administrators only.
func (c *Catalog) Create(ctx context.Context, fields EventFields, actor identity.User) (models.Event, error) {
	if !actor.IsAdmin() {
		return models.Event{}, apperr.New(apperr.Authorization, "only administrators may create events")
	}
	if err := fields.validate(); err != nil {
		return models.Event{}, err
	}

	var event models.Event
	fields.apply(&event)

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, "create event", err)
		}
		return outbox.Enqueue(tx, models.EntityEvent, event.ID, models.OpUpsert, event)
	})
	if err != nil {
		return models.Event{}, err
	}
	return event, nil
}

// Update replaces the mutable fields of an event. The created date is
// immutable and registrations keep their historical title snapshot.
func (c *Catalog) Update(ctx context.Context, id uuid.UUID, fields EventFields, actor identity.User) (models.Event, error) {
	if !actor.IsAdmin() {
		return models.Event{}, apperr.New(apperr.Authorization, "only administrators may edit events")
	}
	if err := fields.validate(); err != nil {
		return models.Event{}, err
	}

	var event models.Event
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&event, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.NotFound, "event %s not found", id)
			}
			return apperr.Wrap(apperr.StoreUnavailable, "load event", err)
		}
		fields.apply(&event)
		if err := tx.Save(&event).Error; err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, "update event", err)
		}
		return outbox.Enqueue(tx, models.EntityEvent, event.ID, models.OpUpsert, event)
	})
	if err != nil {
		return models.Event{}, err
	}
	return event, nil
}

// Delete removes an event. Events that still hold a non-cancelled
// registration cannot be deleted; cancel or complete them first.
func (c *Catalog) Delete(ctx context.Context, id uuid.UUID, actor identity.User) error {
	if !actor.IsAdmin() {
		return apperr.New(apperr.Authorization, "only administrators may delete events")
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.NotFound, "event %s not found", id)
			}
			return apperr.Wrap(apperr.StoreUnavailable, "load event", err)
		}

		var active int64
		err := tx.Model(&models.Registration{}).
			Where("event_id = ? AND status <> ?", id, models.RegistrationCancelled).
			Count(&active).Error
		if err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, "count registrations", err)
		}
		if active > 0 {
			return apperr.Newf(apperr.Validation, "event has %d active registrations and cannot be deleted", active)
		}

		if err := tx.Delete(&models.Event{}, "id = ?", id).Error; err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, "delete event", err)
		}
		return outbox.Enqueue(tx, models.EntityEvent, id, models.OpDelete, nil)
	})
}
