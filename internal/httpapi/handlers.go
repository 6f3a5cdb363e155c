// Package httpapi is the JSON surface over the registration core. It maps
// error kinds to status codes and never re-derives admission decisions.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Tauqir1234/Festio/internal/admission"
	"github.com/Tauqir1234/Festio/internal/aggregate"
	"github.com/Tauqir1234/Festio/internal/apperr"
	"github.com/Tauqir1234/Festio/internal/catalog"
	"github.com/Tauqir1234/Festio/internal/identity"
	"github.com/Tauqir1234/Festio/internal/ledger"
	"github.com/Tauqir1234/Festio/internal/models"
	"github.com/Tauqir1234/Festio/internal/workers"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Server struct {
	Catalog    *catalog.Catalog
	Ledger     *ledger.Ledger
	Admission  *admission.Controller
	Aggregates *aggregate.View
	Verifier   *identity.Verifier
	DB         *gorm.DB

	// Sync is nil when Elasticsearch is disabled; the DLQ retry endpoint
	// then reports the store as unavailable.
	Sync *workers.SyncWorker
}

// Routes wires every endpoint behind the shared middleware stack.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.Handle("POST /api/events/{id}/register", RequireUser(http.HandlerFunc(s.handleRegister)))
	mux.Handle("GET /api/me/registrations", RequireUser(http.HandlerFunc(s.handleMyRegistrations)))
	mux.Handle("POST /api/registrations/{id}/cancel", RequireUser(http.HandlerFunc(s.handleCancel)))

	admin := func(h http.HandlerFunc) http.Handler { return RequireAdmin(h) }
	mux.Handle("GET /api/admin/events", admin(s.handleAdminListEvents))
	mux.Handle("POST /api/admin/events", admin(s.handleCreateEvent))
	mux.Handle("PUT /api/admin/events/{id}", admin(s.handleUpdateEvent))
	mux.Handle("DELETE /api/admin/events/{id}", admin(s.handleDeleteEvent))
	mux.Handle("GET /api/admin/events/{id}/registrations", admin(s.handleEventRegistrations))
	mux.Handle("GET /api/admin/registrations", admin(s.handleAllRegistrations))
	mux.Handle("POST /api/admin/registrations/{id}/attend", admin(s.handleMarkAttended))
	mux.Handle("GET /api/admin/stats", admin(s.handleStats))
	mux.Handle("GET /api/admin/outbox", admin(s.handleOutbox))
	mux.Handle("GET /api/admin/dlq", admin(s.handleDLQ))
	mux.Handle("POST /api/admin/dlq/{id}/retry", admin(s.handleDLQRetry))

	var h http.Handler = mux
	h = Authenticate(s.Verifier)(h)
	h = Logging(h)
	h = Recovery(h)
	return h
}

// ---------------- responses ----------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(kind, msg string) map[string]any {
	return map[string]any{"error": map[string]string{"kind": kind, "message": msg}}
}

var kindStatus = map[apperr.Kind]int{
	apperr.Validation:        http.StatusBadRequest,
	apperr.Authorization:     http.StatusForbidden,
	apperr.NotFound:          http.StatusNotFound,
	apperr.IllegalTransition: http.StatusConflict,
	apperr.EventNotOpen:      http.StatusConflict,
	apperr.DeadlinePassed:    http.StatusConflict,
	apperr.AlreadyRegistered: http.StatusConflict,
	apperr.EventFull:         http.StatusConflict,
	apperr.StoreUnavailable:  http.StatusServiceUnavailable,
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody("internal", "internal server error"))
		return
	}
	msg := err.Error()
	var e *apperr.Error
	if errors.As(err, &e) {
		msg = e.Msg
	}
	writeJSON(w, status, errorBody(string(kind), msg))
}

// eventView decorates an event with the aggregates browsing surfaces show.
type eventView struct {
	models.Event
	RegistrationCount int   `json:"registration_count"`
	IsRegistered      *bool `json:"is_registered,omitempty"`
}

func (s *Server) decorate(r *http.Request, events []models.Event) ([]eventView, error) {
	user, authed := UserFrom(r.Context())
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		count, err := s.Aggregates.RegistrationCount(r.Context(), e.ID)
		if err != nil {
			return nil, err
		}
		v := eventView{Event: e, RegistrationCount: count}
		if authed {
			registered, err := s.Aggregates.IsRegistered(r.Context(), e.ID, user.Email)
			if err != nil {
				return nil, err
			}
			v.IsRegistered = &registered
		}
		views = append(views, v)
	}
	return views, nil
}

func pathUUID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Validation, "malformed id in path")
	}
	return id, nil
}

// ---------------- events ----------------

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Sort:     q.Get("sort"),
		Limit:    100,
	}
	events, err := s.Catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.decorate(r, events)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	event, err := s.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.decorate(r, []models.Event{event})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views[0])
}

// ---------------- registration ----------------

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, _ := UserFrom(r.Context())

	reg, err := s.Admission.Admit(r.Context(), id, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleMyRegistrations(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	regs, err := s.Ledger.ListForUser(r.Context(), user.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, _ := UserFrom(r.Context())

	reg, err := s.Ledger.SetStatus(r.Context(), id, models.RegistrationCancelled, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// ---------------- admin ----------------

// eventPayload is the admin event form. Dates arrive as "2006-01-02";
// RFC 3339 timestamps are accepted too.
type eventPayload struct {
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	Venue                string               `json:"venue"`
	Organizer            string               `json:"organizer"`
	ContactEmail         string               `json:"contact_email"`
	ImageURL             string               `json:"image_url"`
	Date                 string               `json:"date"`
	StartTime            string               `json:"start_time"`
	EndTime              string               `json:"end_time"`
	Category             models.EventCategory `json:"category"`
	Status               models.EventStatus   `json:"status"`
	MaxCapacity          *int                 `json:"max_capacity"`
	RegistrationDeadline string               `json:"registration_deadline"`
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Newf(apperr.Validation, "unparseable date %q", s)
}

func (p eventPayload) fields() (catalog.EventFields, error) {
	f := catalog.EventFields{
		Title:        p.Title,
		Description:  p.Description,
		Venue:        p.Venue,
		Organizer:    p.Organizer,
		ContactEmail: p.ContactEmail,
		ImageURL:     p.ImageURL,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		Category:     p.Category,
		Status:       p.Status,
		MaxCapacity:  p.MaxCapacity,
	}
	if p.Date == "" {
		return f, apperr.New(apperr.Validation, "date is required")
	}
	date, err := parseDate(p.Date)
	if err != nil {
		return f, err
	}
	f.Date = date

	if p.RegistrationDeadline != "" {
		deadline, err := parseDate(p.RegistrationDeadline)
		if err != nil {
			return f, err
		}
		f.RegistrationDeadline = &deadline
	}
	return f, nil
}

func decodePayload(r *http.Request) (catalog.EventFields, error) {
	var p eventPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return catalog.EventFields{}, apperr.Wrap(apperr.Validation, "malformed request body", err)
	}
	return p.fields()
}

func (s *Server) handleAdminListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sort := q.Get("sort")
	if sort == "" {
		sort = "-created_date"
	}
	events, err := s.Catalog.List(r.Context(), catalog.Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Sort:     sort,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.decorate(r, events)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	fields, err := decodePayload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, _ := UserFrom(r.Context())
	event, err := s.Catalog.Create(r.Context(), fields, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	fields, err := decodePayload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, _ := UserFrom(r.Context())
	event, err := s.Catalog.Update(r.Context(), id, fields, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, _ := UserFrom(r.Context())
	if err := s.Catalog.Delete(r.Context(), id, user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleEventRegistrations(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	regs, err := s.Ledger.ListForEvent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (s *Server) handleAllRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := s.Ledger.ListAll(r.Context(), 1000)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (s *Server) handleMarkAttended(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, _ := UserFrom(r.Context())

	reg, err := s.Ledger.SetStatus(r.Context(), id, models.RegistrationAttended, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var totalEvents, upcoming, totalRegs, attended int64
	db := s.DB.WithContext(r.Context())
	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&totalEvents, db.Model(&models.Event{})},
		{&upcoming, db.Model(&models.Event{}).Where("status = ?", models.EventUpcoming)},
		{&totalRegs, db.Model(&models.Registration{}).Where("status <> ?", models.RegistrationCancelled)},
		{&attended, db.Model(&models.Registration{}).Where("status = ?", models.RegistrationAttended)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			writeError(w, apperr.Wrap(apperr.StoreUnavailable, "count stats", err))
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"total_events":        totalEvents,
		"upcoming_events":     upcoming,
		"total_registrations": totalRegs,
		"attended":            attended,
	})
}

func (s *Server) handleOutbox(w http.ResponseWriter, r *http.Request) {
	var records []models.Outbox
	if err := s.DB.WithContext(r.Context()).Order("id desc").Limit(100).Find(&records).Error; err != nil {
		writeError(w, apperr.Wrap(apperr.StoreUnavailable, "list outbox", err))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDLQ(w http.ResponseWriter, r *http.Request) {
	var records []models.DLQ
	if err := s.DB.WithContext(r.Context()).Order("id desc").Limit(100).Find(&records).Error; err != nil {
		writeError(w, apperr.Wrap(apperr.StoreUnavailable, "list DLQ", err))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDLQRetry(w http.ResponseWriter, r *http.Request) {
	if s.Sync == nil {
		writeError(w, apperr.New(apperr.StoreUnavailable, "search sync is disabled"))
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "malformed id in path"))
		return
	}
	if err := s.Sync.RetryOne(r.Context(), id); err != nil {
		writeError(w, apperr.Wrap(apperr.StoreUnavailable, "retry failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "retried"})
}
