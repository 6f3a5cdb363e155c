// Package admission gates new registration attempts. The whole decision
// plus the ledger write runs in one transaction that locks the event row,
// so concurrent attempts for the same event serialize and the capacity
// invariant count(confirmed) <= max_capacity holds at every commit.
package admission

import (
	"context"
	"errors"
	"time"

	"github.com/Tauqir1234/Festio/internal/apperr"
	"github.com/Tauqir1234/Festio/internal/identity"
	"github.com/Tauqir1234/Festio/internal/ledger"
	"github.com/Tauqir1234/Festio/internal/metrics"
	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Invalidator drops cached aggregates for an event after a mutation.
type Invalidator interface {
	Invalidate(eventID uuid.UUID)
}

type Controller struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	agg    Invalidator

	// now is swapped out by deadline tests.
	now func() time.Time
}

func New(db *gorm.DB, l *ledger.Ledger, agg Invalidator) *Controller {
	return &Controller{db: db, ledger: l, agg: agg, now: time.Now}
}

// lockEvent loads the event with an exclusive row lock where the dialect
// supports one. SQLite serializes writers on its own, so the plain read
// is equivalent there; Postgres needs SELECT ... FOR UPDATE to serialize
// admission attempts per event.
func lockEvent(tx *gorm.DB, eventID uuid.UUID) (models.Event, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var event models.Event
	err := q.First(&event, "id = ?", eventID).Error
	return event, err
}

// Admit decides whether user may register for the event and, on approval,
// writes the confirmed ledger row. Rules in order, first failure wins:
// event must be upcoming, the deadline must not have passed, the user must
// not already hold a non-cancelled registration, and a capacity-limited
// event must have a seat left. Rejections are never retried here; the
// caller decides what the user does next.
func (c *Controller) Admit(ctx context.Context, eventID uuid.UUID, user identity.User) (models.Registration, error) {
	if user.Email == "" {
		return models.Registration{}, apperr.New(apperr.Validation, "user identity is required")
	}

	var reg models.Registration
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := lockEvent(tx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Newf(apperr.Validation, "event %s does not exist", eventID)
			}
			return apperr.Wrap(apperr.StoreUnavailable, "load event", err)
		}

		if event.Status != models.EventUpcoming {
			return apperr.Newf(apperr.EventNotOpen, "event is %s, registration is closed", event.Status)
		}

		if event.RegistrationDeadline != nil &&
			models.AfterDay(c.now(), *event.RegistrationDeadline) {
			return apperr.New(apperr.DeadlinePassed, "registration deadline has passed")
		}

		var existing int64
		err = tx.Model(&models.Registration{}).
			Where("event_id = ? AND user_email = ? AND status <> ?",
				eventID, user.Email, models.RegistrationCancelled).
			Count(&existing).Error
		if err != nil {
			return apperr.Wrap(apperr.StoreUnavailable, "check existing registration", err)
		}
		if existing > 0 {
			return apperr.New(apperr.AlreadyRegistered, "you are already registered for this event")
		}

		if event.MaxCapacity != nil {
			var confirmed int64
			err = tx.Model(&models.Registration{}).
				Where("event_id = ? AND status = ?", eventID, models.RegistrationConfirmed).
				Count(&confirmed).Error
			if err != nil {
				return apperr.Wrap(apperr.StoreUnavailable, "count confirmed registrations", err)
			}
			if confirmed >= int64(*event.MaxCapacity) {
				return apperr.New(apperr.EventFull, "event is at capacity")
			}
		}

		reg, err = c.ledger.CreateConfirmed(tx, event, user, c.now())
		return err
	})
	if err != nil {
		if kind := apperr.KindOf(err); kind != "" && kind != apperr.StoreUnavailable {
			metrics.AdmissionsRejected.WithLabelValues(string(kind)).Inc()
		}
		return models.Registration{}, err
	}

	metrics.AdmissionsAccepted.Inc()
	if c.agg != nil {
		c.agg.Invalidate(eventID)
	}
	return reg, nil
}
