// Package ledger is the only writer of registration status. New confirmed
// rows enter through the admission controller; every later status change
// goes through the transition table enforced here.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/Tauqir1234/Festio/internal/apperr"
	"github.com/Tauqir1234/Festio/internal/identity"
	"github.com/Tauqir1234/Festio/internal/metrics"
	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/Tauqir1234/Festio/internal/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invalidator drops cached aggregates for an event after a mutation.
type Invalidator interface {
	Invalidate(eventID uuid.UUID)
}

type Ledger struct {
	db  *gorm.DB
	agg Invalidator
}

func New(db *gorm.DB, agg Invalidator) *Ledger {
	return &Ledger{db: db, agg: agg}
}

// CreateConfirmed inserts a confirmed row inside tx, snapshotting the
// event title and the admission instant. Only the admission controller
// calls this; it owns the transaction and the capacity checks.
func (l *Ledger) CreateConfirmed(tx *gorm.DB, event models.Event, user identity.User, at time.Time) (models.Registration, error) {
	reg := models.Registration{
		EventID:          event.ID,
		EventTitle:       event.Title,
		UserEmail:        user.Email,
		UserName:         user.FullName,
		RegistrationDate: at,
		Status:           models.RegistrationConfirmed,
	}
	if err := tx.Create(&reg).Error; err != nil {
		return models.Registration{}, apperr.Wrap(apperr.StoreUnavailable, "create registration", err)
	}
	if err := outbox.Enqueue(tx, models.EntityRegistration, reg.ID, models.OpUpsert, reg); err != nil {
		return models.Registration{}, apperr.Wrap(apperr.StoreUnavailable, "enqueue outbox", err)
	}
	return reg, nil
}

// canTransition is the whole legal transition table. cancelled and
// attended are terminal.
func canTransition(from, to models.RegistrationStatus) bool {
	if from != models.RegistrationConfirmed {
		return false
	}
	return to == models.RegistrationCancelled || to == models.RegistrationAttended
}

// SetStatus applies one transition from the table:
//
//	confirmed -> cancelled   (actor owns the registration)
//	confirmed -> attended    (actor is an administrator)
//
// Legality is checked before authorization, so a cancel attempt on an
// attended row reports the illegal transition, not the actor.
func (l *Ledger) SetStatus(ctx context.Context, regID uuid.UUID, to models.RegistrationStatus, actor identity.User) (models.Registration, error) {
	if !to.Valid() {
		return models.Registration{}, apperr.Newf(apperr.Validation, "unknown status %q", to)
	}

	var reg models.Registration
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reg, "id = ?", regID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.NotFound, "registration %s not found", regID)
			}
			return apperr.Wrap(apperr.StoreUnavailable, "load registration", err)
		}

		if !canTransition(reg.Status, to) {
			return apperr.Newf(apperr.IllegalTransition, "cannot move registration from %s to %s", reg.Status, to)
		}

		switch to {
		case models.RegistrationCancelled:
			if actor.Email != reg.UserEmail {
				return apperr.New(apperr.Authorization, "only the registered user may cancel")
			}
		case models.RegistrationAttended:
			if !actor.IsAdmin() {
				return apperr.New(apperr.Authorization, "only administrators may mark attendance")
			}
		}

		// Conditional update so a concurrent transition on the same row
		// loses cleanly instead of overwriting.
		res := tx.Model(&models.Registration{}).
			Where("id = ? AND status = ?", reg.ID, reg.Status).
			Update("status", to)
		if res.Error != nil {
			return apperr.Wrap(apperr.StoreUnavailable, "update registration", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Newf(apperr.IllegalTransition, "registration %s changed concurrently", reg.ID)
		}
		reg.Status = to

		return outbox.Enqueue(tx, models.EntityRegistration, reg.ID, models.OpUpsert, reg)
	})
	if err != nil {
		return models.Registration{}, err
	}

	switch to {
	case models.RegistrationCancelled:
		metrics.RegistrationsCancelled.Inc()
	case models.RegistrationAttended:
		metrics.RegistrationsAttended.Inc()
	}
	if l.agg != nil {
		l.agg.Invalidate(reg.EventID)
	}
	return reg, nil
}

func (l *Ledger) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	regs := []models.Registration{}
	err := l.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("registration_date DESC").
		Find(&regs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "list registrations for event", err)
	}
	return regs, nil
}

func (l *Ledger) ListForUser(ctx context.Context, email string) ([]models.Registration, error) {
	regs := []models.Registration{}
	err := l.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("registration_date DESC").
		Find(&regs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "list registrations for user", err)
	}
	return regs, nil
}

// ListAll feeds the admin dashboard, most recent first.
func (l *Ledger) ListAll(ctx context.Context, limit int) ([]models.Registration, error) {
	regs := []models.Registration{}
	q := l.db.WithContext(ctx).Order("registration_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&regs).Error; err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "list registrations", err)
	}
	return regs, nil
}
