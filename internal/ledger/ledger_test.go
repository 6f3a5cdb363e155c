package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/Tauqir1234/Festio/internal/apperr"
	"github.com/Tauqir1234/Festio/internal/identity"
	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/Tauqir1234/Festio/internal/testdb"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	owner = identity.User{Email: "sam@campus.edu", FullName: "Sam Park", Role: identity.RoleMember}
	admin = identity.User{Email: "dean@campus.edu", FullName: "The Dean", Role: identity.RoleAdmin}
	other = identity.User{Email: "lee@campus.edu", FullName: "Lee Chen", Role: identity.RoleMember}
)

func seedRegistration(t *testing.T, db *gorm.DB, status models.RegistrationStatus) models.Registration {
	t.Helper()
	event := models.Event{
		Title:    "Career Fair",
		Date:     time.Now().AddDate(0, 0, 7),
		Category: models.CategoryOther,
		Status:   models.EventUpcoming,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	reg := models.Registration{
		EventID:          event.ID,
		EventTitle:       event.Title,
		UserEmail:        owner.Email,
		UserName:         owner.FullName,
		RegistrationDate: time.Now(),
		Status:           status,
	}
	if err := db.Create(&reg).Error; err != nil {
		t.Fatalf("seed registration: %v", err)
	}
	return reg
}

func TestCancelByOwner(t *testing.T) {
	db := testdb.New(t)
	l := New(db, nil)
	reg := seedRegistration(t, db, models.RegistrationConfirmed)

	updated, err := l.SetStatus(context.Background(), reg.ID, models.RegistrationCancelled, owner)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != models.RegistrationCancelled {
		t.Errorf("expected cancelled, got %s", updated.Status)
	}
}

func TestCancelByStrangerRejected(t *testing.T) {
	db := testdb.New(t)
	l := New(db, nil)
	reg := seedRegistration(t, db, models.RegistrationConfirmed)

	_, err := l.SetStatus(context.Background(), reg.ID, models.RegistrationCancelled, other)
	if !apperr.IsKind(err, apperr.Authorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestAttendByAdmin(t *testing.T) {
	db := testdb.New(t)
	l := New(db, nil)
	reg := seedRegistration(t, db, models.RegistrationConfirmed)

	updated, err := l.SetStatus(context.Background(), reg.ID, models.RegistrationAttended, admin)
	if err != nil {
		t.Fatalf("attend: %v", err)
	}
	if updated.Status != models.RegistrationAttended {
		t.Errorf("expected attended, got %s", updated.Status)
	}
}

func TestAttendByMemberRejected(t *testing.T) {
	db := testdb.New(t)
	l := New(db, nil)
	reg := seedRegistration(t, db, models.RegistrationConfirmed)

	_, err := l.SetStatus(context.Background(), reg.ID, models.RegistrationAttended, owner)
	if !apperr.IsKind(err, apperr.Authorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

// Everything outside the transition table is illegal, and the two
// terminal states stay terminal for every actor.
func TestIllegalTransitions(t *testing.T) {
	cases := []struct {
		name string
		from models.RegistrationStatus
		to   models.RegistrationStatus
	}{
		{"cancelled is terminal (resurrect)", models.RegistrationCancelled, models.RegistrationConfirmed},
		{"cancelled is terminal (attend)", models.RegistrationCancelled, models.RegistrationAttended},
		{"attended is terminal (resurrect)", models.RegistrationAttended, models.RegistrationConfirmed},
		{"attended is terminal (cancel)", models.RegistrationAttended, models.RegistrationCancelled},
		{"confirmed to confirmed", models.RegistrationConfirmed, models.RegistrationConfirmed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := testdb.New(t)
			l := New(db, nil)
			reg := seedRegistration(t, db, tc.from)

			for _, actor := range []identity.User{owner, admin} {
				_, err := l.SetStatus(context.Background(), reg.ID, tc.to, actor)
				if !apperr.IsKind(err, apperr.IllegalTransition) {
					t.Errorf("actor %s: expected illegal_transition, got %v", actor.Email, err)
				}
			}
		})
	}
}

// Attended first, then the owner tries to cancel.
func TestAttendedThenCancelRejected(t *testing.T) {
	db := testdb.New(t)
	l := New(db, nil)
	reg := seedRegistration(t, db, models.RegistrationConfirmed)
	ctx := context.Background()

	if _, err := l.SetStatus(ctx, reg.ID, models.RegistrationAttended, admin); err != nil {
		t.Fatalf("attend: %v", err)
	}
	_, err := l.SetStatus(ctx, reg.ID, models.RegistrationCancelled, owner)
	if !apperr.IsKind(err, apperr.IllegalTransition) {
		t.Fatalf("expected illegal_transition, got %v", err)
	}
}

func TestSetStatusUnknownTarget(t *testing.T) {
	db := testdb.New(t)
	l := New(db, nil)
	reg := seedRegistration(t, db, models.RegistrationConfirmed)

	_, err := l.SetStatus(context.Background(), reg.ID, models.RegistrationStatus("waitlisted"), admin)
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetStatusNotFound(t *testing.T) {
	db := testdb.New(t)
	l := New(db, nil)

	_, err := l.SetStatus(context.Background(), uuid.New(), models.RegistrationCancelled, owner)
	if !apperr.IsKind(err, apperr.NotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestProjections(t *testing.T) {
	db := testdb.New(t)
	l := New(db, nil)
	ctx := context.Background()

	event := models.Event{Title: "Chess Open", Date: time.Now().AddDate(0, 0, 3), Category: models.CategorySports, Status: models.EventUpcoming}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	base := time.Now().Add(-time.Hour)
	emails := []string{"a@campus.edu", "b@campus.edu", "c@campus.edu"}
	for i, email := range emails {
		reg := models.Registration{
			EventID:          event.ID,
			EventTitle:       event.Title,
			UserEmail:        email,
			RegistrationDate: base.Add(time.Duration(i) * time.Minute),
			Status:           models.RegistrationConfirmed,
		}
		if err := db.Create(&reg).Error; err != nil {
			t.Fatalf("seed registration: %v", err)
		}
	}

	forEvent, err := l.ListForEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("list for event: %v", err)
	}
	if len(forEvent) != 3 {
		t.Fatalf("expected 3 registrations, got %d", len(forEvent))
	}
	// Most recent first.
	if forEvent[0].UserEmail != "c@campus.edu" {
		t.Errorf("expected newest first, got %s", forEvent[0].UserEmail)
	}

	forUser, err := l.ListForUser(ctx, "b@campus.edu")
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(forUser) != 1 || forUser[0].EventID != event.ID {
		t.Fatalf("unexpected projection for user: %+v", forUser)
	}

	none, err := l.ListForUser(ctx, "nobody@campus.edu")
	if err != nil {
		t.Fatalf("list for unknown user: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty slice, got %d", len(none))
	}
}
