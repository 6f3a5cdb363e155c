// Package aggregate derives per-event counts and per-user membership from
// the registration ledger. A small TTL cache fronts the count for display
// surfaces; it is never consulted for admission decisions, which recount
// inside their own transaction.
package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/Tauqir1234/Festio/internal/apperr"
	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type cachedCount struct {
	count     int
	expiresAt time.Time
}

type View struct {
	db  *gorm.DB
	ttl time.Duration

	mu     sync.RWMutex
	counts map[uuid.UUID]cachedCount
}

// New builds a view over db. A non-positive ttl disables caching so every
// read recounts.
func New(db *gorm.DB, ttl time.Duration) *View {
	return &View{
		db:     db,
		ttl:    ttl,
		counts: make(map[uuid.UUID]cachedCount),
	}
}

// RegistrationCount returns the number of confirmed registrations for an
// event. Attended rows do not count toward capacity; the seat was consumed
// while confirmed and attendance only happens after the event ran.
func (v *View) RegistrationCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	if v.ttl > 0 {
		v.mu.RLock()
		c, ok := v.counts[eventID]
		v.mu.RUnlock()
		if ok && time.Now().Before(c.expiresAt) {
			return c.count, nil
		}
	}

	var n int64
	err := v.db.WithContext(ctx).Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", eventID, models.RegistrationConfirmed).
		Count(&n).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.StoreUnavailable, "count registrations", err)
	}

	if v.ttl > 0 {
		v.mu.Lock()
		v.counts[eventID] = cachedCount{count: int(n), expiresAt: time.Now().Add(v.ttl)}
		v.mu.Unlock()
	}
	return int(n), nil
}

// IsRegistered reports whether a non-cancelled registration exists for the
// pair. Always read fresh; "am I registered" drives the register button.
func (v *View) IsRegistered(ctx context.Context, eventID uuid.UUID, email string) (bool, error) {
	var n int64
	err := v.db.WithContext(ctx).Model(&models.Registration{}).
		Where("event_id = ? AND user_email = ? AND status <> ?",
			eventID, email, models.RegistrationCancelled).
		Count(&n).Error
	if err != nil {
		return false, apperr.Wrap(apperr.StoreUnavailable, "check registration", err)
	}
	return n > 0, nil
}

// Invalidate drops the cached count for an event. Called after every
// ledger mutation that could change it, before the mutation returns to
// its caller.
func (v *View) Invalidate(eventID uuid.UUID) {
	v.mu.Lock()
	delete(v.counts, eventID)
	v.mu.Unlock()
}
