package admission

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Tauqir1234/Festio/internal/aggregate"
	"github.com/Tauqir1234/Festio/internal/apperr"
	"github.com/Tauqir1234/Festio/internal/identity"
	"github.com/Tauqir1234/Festio/internal/ledger"
	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/Tauqir1234/Festio/internal/testdb"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

func member(n int) identity.User {
	return identity.User{
		Email:    fmt.Sprintf("student%d@campus.edu", n),
		FullName: fmt.Sprintf("Student %d", n),
		Role:     identity.RoleMember,
	}
}

func newController(t *testing.T) (*Controller, *ledger.Ledger, *aggregate.View, *gorm.DB) {
	t.Helper()
	db := testdb.New(t)
	agg := aggregate.New(db, 0)
	l := ledger.New(db, agg)
	return New(db, l, agg), l, agg, db
}

func seedEvent(t *testing.T, db *gorm.DB, mutate func(*models.Event)) models.Event {
	t.Helper()
	event := models.Event{
		Title:    "Robotics Demo Day",
		Venue:    "Engineering Hall",
		Date:     time.Now().AddDate(0, 0, 14),
		Category: models.CategoryWorkshop,
		Status:   models.EventUpcoming,
	}
	if mutate != nil {
		mutate(&event)
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return event
}

func TestAdmitHappyPath(t *testing.T) {
	c, _, agg, db := newController(t)
	event := seedEvent(t, db, nil)
	ctx := context.Background()

	reg, err := c.Admit(ctx, event.ID, member(1))
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if reg.Status != models.RegistrationConfirmed {
		t.Errorf("expected confirmed, got %s", reg.Status)
	}
	if reg.EventTitle != event.Title {
		t.Errorf("expected title snapshot %q, got %q", event.Title, reg.EventTitle)
	}

	count, err := agg.RegistrationCount(ctx, event.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	registered, err := agg.IsRegistered(ctx, event.ID, member(1).Email)
	if err != nil {
		t.Fatalf("isRegistered: %v", err)
	}
	if !registered {
		t.Error("expected user to be registered")
	}
}

func TestAdmitUnknownEvent(t *testing.T) {
	c, _, _, db := newController(t)
	_ = db

	_, err := c.Admit(context.Background(), uuid.New(), member(1))
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdmitEventNotOpen(t *testing.T) {
	c, _, _, db := newController(t)
	ctx := context.Background()

	for _, status := range []models.EventStatus{models.EventOngoing, models.EventCompleted, models.EventCancelled} {
		event := seedEvent(t, db, func(e *models.Event) { e.Status = status })
		_, err := c.Admit(ctx, event.ID, member(1))
		if !apperr.IsKind(err, apperr.EventNotOpen) {
			t.Errorf("status %s: expected event_not_open, got %v", status, err)
		}
	}
}

// A passed deadline rejects even with no capacity limit.
func TestAdmitDeadlinePassed(t *testing.T) {
	c, _, _, db := newController(t)
	yesterday := time.Now().AddDate(0, 0, -1)
	event := seedEvent(t, db, func(e *models.Event) { e.RegistrationDeadline = &yesterday })

	_, err := c.Admit(context.Background(), event.ID, member(1))
	if !apperr.IsKind(err, apperr.DeadlinePassed) {
		t.Fatalf("expected deadline_passed, got %v", err)
	}
}

// The deadline day itself is still open; only strictly-after rejects.
func TestAdmitDeadlineToday(t *testing.T) {
	c, _, _, db := newController(t)
	fixed := time.Date(2026, 3, 10, 23, 50, 0, 0, time.Local)
	c.now = func() time.Time { return fixed }

	deadline := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	event := seedEvent(t, db, func(e *models.Event) {
		e.Date = deadline.AddDate(0, 0, 1)
		e.RegistrationDeadline = &deadline
	})

	if _, err := c.Admit(context.Background(), event.ID, member(1)); err != nil {
		t.Fatalf("expected admission on the deadline day, got %v", err)
	}
}

// Deadlines arrive as UTC midnights while the server clock may sit in a
// negative-offset zone. Both sides read their own calendar day, so noon
// on the deadline day still admits.
func TestAdmitDeadlineDayAcrossZones(t *testing.T) {
	c, _, _, db := newController(t)
	est := time.FixedZone("UTC-5", -5*60*60)
	c.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, est) }

	deadline := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	event := seedEvent(t, db, func(e *models.Event) {
		e.Date = deadline.AddDate(0, 0, 1)
		e.RegistrationDeadline = &deadline
	})

	if _, err := c.Admit(context.Background(), event.ID, member(1)); err != nil {
		t.Fatalf("expected admission on the deadline day, got %v", err)
	}

	c.now = func() time.Time { return time.Date(2026, 3, 11, 0, 30, 0, 0, est) }
	_, err := c.Admit(context.Background(), event.ID, member(2))
	if !apperr.IsKind(err, apperr.DeadlinePassed) {
		t.Fatalf("expected deadline_passed the day after, got %v", err)
	}
}

// A second attempt is a benign rejection, never a duplicate row.
func TestAdmitIdempotentReRegistration(t *testing.T) {
	c, _, agg, db := newController(t)
	event := seedEvent(t, db, nil)
	ctx := context.Background()

	if _, err := c.Admit(ctx, event.ID, member(1)); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	_, err := c.Admit(ctx, event.ID, member(1))
	if !apperr.IsKind(err, apperr.AlreadyRegistered) {
		t.Fatalf("expected already_registered, got %v", err)
	}

	count, _ := agg.RegistrationCount(ctx, event.ID)
	if count != 1 {
		t.Errorf("expected one confirmed row, got %d", count)
	}
}

// Capacity 2 admits two users, the third is rejected.
func TestAdmitEventFull(t *testing.T) {
	c, _, agg, db := newController(t)
	event := seedEvent(t, db, func(e *models.Event) { e.MaxCapacity = intPtr(2) })
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if _, err := c.Admit(ctx, event.ID, member(i)); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	_, err := c.Admit(ctx, event.ID, member(3))
	if !apperr.IsKind(err, apperr.EventFull) {
		t.Fatalf("expected event_full, got %v", err)
	}

	count, _ := agg.RegistrationCount(ctx, event.ID)
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

// Cancelling frees the seat and the user may register again.
func TestCancelThenReRegister(t *testing.T) {
	c, l, agg, db := newController(t)
	event := seedEvent(t, db, func(e *models.Event) { e.MaxCapacity = intPtr(1) })
	ctx := context.Background()
	user := member(1)

	reg, err := c.Admit(ctx, event.ID, user)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if _, err := l.SetStatus(ctx, reg.ID, models.RegistrationCancelled, user); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	count, _ := agg.RegistrationCount(ctx, event.ID)
	if count != 0 {
		t.Fatalf("expected count back to 0 after cancel, got %d", count)
	}

	second, err := c.Admit(ctx, event.ID, user)
	if err != nil {
		t.Fatalf("re-register after cancel: %v", err)
	}
	if second.ID == reg.ID {
		t.Error("expected a fresh registration, not a resurrected one")
	}
}

// 100 goroutines fight for 5 seats; exactly 5 win and the count
// never exceeds capacity.
func TestConcurrentAdmissionsRespectCapacity(t *testing.T) {
	c, _, agg, db := newController(t)
	capacity := 5
	event := seedEvent(t, db, func(e *models.Event) { e.MaxCapacity = intPtr(capacity) })
	ctx := context.Background()

	requests := 100
	var admitted, full, other int32
	var wg sync.WaitGroup
	wg.Add(requests)

	for i := 0; i < requests; i++ {
		go func(n int) {
			defer wg.Done()
			_, err := c.Admit(ctx, event.ID, member(n))
			switch {
			case err == nil:
				atomic.AddInt32(&admitted, 1)
			case apperr.IsKind(err, apperr.EventFull):
				atomic.AddInt32(&full, 1)
			default:
				t.Logf("unexpected error for request %d: %v", n, err)
				atomic.AddInt32(&other, 1)
			}
		}(i)
	}
	wg.Wait()

	if admitted != int32(capacity) {
		t.Errorf("expected exactly %d admissions, got %d", capacity, admitted)
	}
	if full != int32(requests-capacity) {
		t.Errorf("expected %d event_full rejections, got %d", requests-capacity, full)
	}
	if other != 0 {
		t.Errorf("expected no unexpected errors, got %d", other)
	}

	count, err := agg.RegistrationCount(ctx, event.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != capacity {
		t.Errorf("expected %d confirmed rows, got %d", capacity, count)
	}
}

// One user hammering register under contention ends with one row.
func TestConcurrentDuplicateAttempts(t *testing.T) {
	c, _, agg, db := newController(t)
	event := seedEvent(t, db, nil)
	ctx := context.Background()
	user := member(1)

	requests := 20
	var admitted, duplicate int32
	var wg sync.WaitGroup
	wg.Add(requests)

	for i := 0; i < requests; i++ {
		go func() {
			defer wg.Done()
			_, err := c.Admit(ctx, event.ID, user)
			switch {
			case err == nil:
				atomic.AddInt32(&admitted, 1)
			case apperr.IsKind(err, apperr.AlreadyRegistered):
				atomic.AddInt32(&duplicate, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Errorf("expected exactly 1 admission, got %d", admitted)
	}
	if duplicate != int32(requests-1) {
		t.Errorf("expected %d already_registered rejections, got %d", requests-1, duplicate)
	}

	count, _ := agg.RegistrationCount(ctx, event.ID)
	if count != 1 {
		t.Errorf("expected one confirmed row, got %d", count)
	}
}

func TestAdmitRequiresIdentity(t *testing.T) {
	c, _, _, db := newController(t)
	event := seedEvent(t, db, nil)

	_, err := c.Admit(context.Background(), event.ID, identity.User{})
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
