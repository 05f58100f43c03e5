package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/agenda/internal/apperr"
	"github.com/starford/agenda/internal/eventservice"
	"github.com/starford/agenda/internal/models"
	"github.com/starford/agenda/internal/schedule"
)

// Handler holds API route handlers.
type Handler struct {
	svc *eventservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *eventservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrParse), errors.Is(err, apperr.ErrInvalidInterval),
		errors.Is(err, apperr.ErrMissingIdentity):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrDuplicateIdentity):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a relative-date phrase into a working-hours range
//	@Tags			schedule
//	@Produce		json
//	@Param			q	query		string	true	"Phrase, e.g. \"in 2 days\" or \"next Thu\""
//	@Success		200	{object}	ResolveResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	rng, err := h.svc.ResolveRange(r.Context(), q)
	if err != nil {
		writeServiceError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Phrase: q, Range: rng, Display: rng.String()})
}

// Slots handles GET /api/slots.
//
//	@Summary		List free slots for a person inside a resolved range
//	@Tags			schedule
//	@Produce		json
//	@Param			q		query		string	true	"Phrase"
//	@Param			person	query		string	false	"Person id (empty considers everyone)"
//	@Success		200		{object}	Availability
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/slots [get]
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	av, err := h.svc.Availability(r.Context(), q, models.PersonID(r.URL.Query().Get("person")))
	if err != nil {
		writeServiceError(w, "slots", err)
		return
	}
	writeJSON(w, http.StatusOK, av)
}

// ListEvents handles GET /api/events.
//
//	@Summary		List events in insertion order
//	@Tags			events
//	@Produce		json
//	@Param			person	query		string	false	"Filter by person"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	EventListResponse
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pred := schedule.ForPerson(models.PersonID(q.Get("person")))
	if tag := q.Get("tag"); tag != "" {
		pred = schedule.And(pred, schedule.WithTag(models.Tag(tag)))
	}
	views := []EventView{}
	for ev := range h.svc.Filtered(pred) {
		views = append(views, ev.View())
	}
	writeJSON(w, http.StatusOK, EventListResponse{Events: views, Total: len(views)})
}

// GetEvent handles GET /api/events/{id}.
//
//	@Summary		Get a single event
//	@Tags			events
//	@Produce		json
//	@Param			id	path		string	true	"Event id"
//	@Success		200	{object}	EventView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/{id} [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.Get(r.Context(), models.EventID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "get event", err)
		return
	}
	writeJSON(w, http.StatusOK, ev.View())
}

// CreateEvent handles POST /api/events.
//
//	@Summary		Book an event
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BookEventRequest	true	"Booking"
//	@Success		201		{object}	EventView
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req BookEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := h.svc.Book(r.Context(), req.toService())
	if err != nil {
		writeServiceError(w, "book event", err)
		return
	}
	writeJSON(w, http.StatusCreated, ev.View())
}

// UpdateEvent handles PUT /api/events/{id}.
//
//	@Summary		Edit an event, keeping its identity
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Event id"
//	@Param			body	body		UpdateEventRequest	true	"Fields to change"
//	@Success		200		{object}	EventView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/{id} [put]
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req UpdateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := h.svc.Update(r.Context(), models.EventID(chi.URLParam(r, "id")), req.toService())
	if err != nil {
		writeServiceError(w, "update event", err)
		return
	}
	writeJSON(w, http.StatusOK, ev.View())
}

// DeleteEvent handles DELETE /api/events/{id}.
//
//	@Summary		Cancel an event
//	@Tags			events
//	@Param			id	path	string	true	"Event id"
//	@Success		204	"Event cancelled"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/{id} [delete]
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Cancel(r.Context(), models.EventID(chi.URLParam(r, "id"))); err != nil {
		writeServiceError(w, "cancel event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearEvents handles DELETE /api/events.
//
//	@Summary		Remove every event
//	@Tags			events
//	@Success		204	"Schedule cleared"
//	@Security		BearerAuth
//	@Router			/events [delete]
func (h *Handler) ClearEvents(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context()); err != nil {
		writeServiceError(w, "clear events", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across event details and tags
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ExportICS handles GET /api/export.ics.
//
//	@Summary		Export events as iCalendar
//	@Tags			export
//	@Produce		text/calendar
//	@Param			person	query	string	false	"Only this person's events"
//	@Success		200		{string}	string	"VCALENDAR document"
//	@Security		BearerAuth
//	@Router			/export.ics [get]
func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	data := h.svc.ExportICS(r.Context(), models.PersonID(r.URL.Query().Get("person")))
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
