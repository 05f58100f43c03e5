// Package eventservice owns the in-memory schedule and keeps it in step with
// the SQLite index. It is the single writer of schedule state: HTTP, MCP,
// the importer and the exporter all go through it.
package eventservice

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/starford/agenda/internal/apperr"
	"github.com/starford/agenda/internal/availability"
	"github.com/starford/agenda/internal/hours"
	"github.com/starford/agenda/internal/ics"
	"github.com/starford/agenda/internal/index"
	"github.com/starford/agenda/internal/models"
	"github.com/starford/agenda/internal/parser"
	"github.com/starford/agenda/internal/schedule"
)

// Change kinds passed to EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
	KindReset   = "reset"
)

// EventCallback is called after every committed schedule change.
// id is empty for KindReset.
type EventCallback func(kind string, id models.EventID)

// Service coordinates the event store, persistence and change notifications.
type Service struct {
	mu       sync.Mutex // serializes mutations
	store    *schedule.Store
	db       index.EventIndex
	now      func() time.Time
	loc      *time.Location
	logger   *slog.Logger
	onChange EventCallback
	modified time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used to resolve relative phrases.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the schedule's time zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCallback registers a change listener.
func WithCallback(cb EventCallback) Option {
	return func(s *Service) { s.onChange = cb }
}

// NewService creates a service over db. Call Load to pull persisted events in.
func NewService(db index.EventIndex, opts ...Option) *Service {
	store, _ := schedule.NewStore()
	s := &Service{
		store:  store,
		db:     db,
		now:    time.Now,
		loc:    time.Local,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.modified = s.Now()
	return s
}

// Now returns the current time in the schedule's location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Location returns the schedule's time zone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Load replaces the in-memory schedule with what is persisted.
func (s *Service) Load(_ context.Context) error {
	events, err := s.db.LoadAll(s.loc)
	if err != nil {
		return fmt.Errorf("eventservice: load: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.ResetData(events); err != nil {
		return fmt.Errorf("eventservice: load: %w", err)
	}
	s.touch()
	s.logger.Info("eventservice: loaded", slog.Int("events", len(events)))
	return nil
}

// ResolveRange resolves a relative-date phrase into a working-hours range.
func (s *Service) ResolveRange(_ context.Context, phrase string) (models.Interval, error) {
	return hours.ResolveRange(phrase, s.Now())
}

// Availability is the answer to "when is this person free".
type Availability struct {
	Phrase   string             `json:"phrase"`
	PersonID models.PersonID    `json:"person_id,omitempty"`
	Range    models.Interval    `json:"range"`
	Days     []models.Interval  `json:"days"`
	Booked   []models.EventView `json:"booked"`
	Free     []models.Interval  `json:"free"`
	Slots    []string           `json:"slots"`
}

// Availability resolves phrase and lists the person's free slots inside the
// working hours of every day it covers. An empty personID considers everyone's
// bookings.
func (s *Service) Availability(ctx context.Context, phrase string, personID models.PersonID) (*Availability, error) {
	rng, err := s.ResolveRange(ctx, phrase)
	if err != nil {
		return nil, err
	}
	days := hours.Days(rng)

	var (
		booked    []models.EventView
		intervals []models.Interval
	)
	for ev := range s.store.Filtered(schedule.And(schedule.ForPerson(personID), schedule.OverlappingRange(rng))) {
		booked = append(booked, ev.View())
		intervals = append(intervals, ev.Interval())
	}
	free := availability.FreeSlotsByDay(days, intervals)

	out := &Availability{
		Phrase:   phrase,
		PersonID: personID,
		Range:    rng,
		Days:     days,
		Booked:   nonNil(booked),
		Free:     nonNil(free),
		Slots:    make([]string, len(free)),
	}
	for i, f := range free {
		out.Slots[i] = f.String()
	}
	return out, nil
}

// BookRequest describes a new booking. Exactly one of Interval or Slot is
// used; Slot takes the display form "DD/MM/YYYY HH:MM - HH:MM".
type BookRequest struct {
	PersonID models.PersonID
	Details  string
	Tags     []models.Tag
	Interval *models.Interval
	Slot     string
}

// Book creates an event. It fails with apperr.ErrConflict when the slot
// overlaps another booking of the same person.
func (s *Service) Book(_ context.Context, req BookRequest) (models.ScheduleEvent, error) {
	iv, err := s.slotInterval(req.Interval, req.Slot)
	if err != nil {
		return models.ScheduleEvent{}, err
	}
	ev, err := models.NewEvent(iv, req.PersonID, req.Details, req.Tags)
	if err != nil {
		return models.ScheduleEvent{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkConflict(ev, ""); err != nil {
		return models.ScheduleEvent{}, err
	}
	if err := s.store.Add(ev); err != nil {
		return models.ScheduleEvent{}, err
	}
	if err := s.db.Upsert(ev, ""); err != nil {
		_ = s.store.Remove(ev)
		return models.ScheduleEvent{}, fmt.Errorf("eventservice: book: %w", err)
	}
	s.touch()
	s.logger.Info("eventservice: booked", slog.String("id", string(ev.ID())),
		slog.String("person", string(ev.PersonID())), slog.String("slot", iv.String()))
	s.notify(KindCreated, ev.ID())
	return ev, nil
}

// Get returns the event with id.
func (s *Service) Get(_ context.Context, id models.EventID) (models.ScheduleEvent, error) {
	ev, ok := s.store.Get(id)
	if !ok {
		return models.ScheduleEvent{}, apperr.ErrNotFound
	}
	return ev, nil
}

// List returns the person's events in insertion order; an empty personID
// lists everyone's.
func (s *Service) List(_ context.Context, personID models.PersonID) []models.ScheduleEvent {
	return slices.Collect(s.store.Filtered(schedule.ForPerson(personID)))
}

// Filtered exposes a lazy view over the current schedule.
func (s *Service) Filtered(pred schedule.Predicate) iter.Seq[models.ScheduleEvent] {
	return s.store.Filtered(pred)
}

// UpdateRequest carries the fields to change; nil fields keep their value.
type UpdateRequest struct {
	PersonID *models.PersonID
	Details  *string
	Tags     *[]models.Tag
	Interval *models.Interval
	Slot     *string
}

// Update edits an event in place, keeping its identity and position.
func (s *Service) Update(_ context.Context, id models.EventID, req UpdateRequest) (models.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.store.Get(id)
	if !ok {
		return models.ScheduleEvent{}, apperr.ErrNotFound
	}
	iv := cur.Interval()
	if req.Interval != nil || req.Slot != nil {
		slot := ""
		if req.Slot != nil {
			slot = *req.Slot
		}
		parsed, err := s.slotInterval(req.Interval, slot)
		if err != nil {
			return models.ScheduleEvent{}, err
		}
		iv = parsed
	}
	person, details, tags := cur.PersonID(), cur.Details(), cur.Tags()
	if req.PersonID != nil {
		person = *req.PersonID
	}
	if req.Details != nil {
		details = *req.Details
	}
	if req.Tags != nil {
		tags = *req.Tags
	}
	next, err := models.RestoreEvent(id, iv, person, details, tags)
	if err != nil {
		return models.ScheduleEvent{}, err
	}
	if err := s.checkConflict(next, id); err != nil {
		return models.ScheduleEvent{}, err
	}

	if err := s.store.Update(cur, next); err != nil {
		return models.ScheduleEvent{}, err
	}
	if err := s.db.Upsert(next, ""); err != nil {
		_ = s.store.Update(next, cur)
		return models.ScheduleEvent{}, fmt.Errorf("eventservice: update: %w", err)
	}
	s.touch()
	s.notify(KindUpdated, id)
	return next, nil
}

// Cancel removes an event.
func (s *Service) Cancel(_ context.Context, id models.EventID) (models.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.store.All()
	ev, err := s.store.RemoveByID(id)
	if err != nil {
		return models.ScheduleEvent{}, err
	}
	if err := s.db.Delete(id); err != nil {
		_ = s.store.ResetData(snapshot)
		return models.ScheduleEvent{}, fmt.Errorf("eventservice: cancel: %w", err)
	}
	s.touch()
	s.logger.Info("eventservice: cancelled", slog.String("id", string(id)))
	s.notify(KindDeleted, id)
	return ev, nil
}

// Clear empties the schedule.
func (s *Service) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.store.All()
	if err := s.store.ResetData(nil); err != nil {
		return err
	}
	if err := s.db.ReplaceAll(nil); err != nil {
		_ = s.store.ResetData(snapshot)
		return fmt.Errorf("eventservice: clear: %w", err)
	}
	s.touch()
	s.logger.Info("eventservice: cleared", slog.Int("events", len(snapshot)))
	s.notify(KindReset, "")
	return nil
}

// SearchHit is one full-text match.
type SearchHit struct {
	Event   models.EventView `json:"event"`
	Snippet string           `json:"snippet"`
}

// Search runs a full-text query over event details and tags.
func (s *Service) Search(_ context.Context, query string, limit int) ([]SearchHit, error) {
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		ev, ok := s.store.Get(r.ID)
		if !ok {
			continue
		}
		hits = append(hits, SearchHit{Event: ev.View(), Snippet: r.Snippet})
	}
	return hits, nil
}

// ExportICS renders the person's events (everyone's when personID is empty)
// as an iCalendar document. DTSTAMP is the time of the last schedule change,
// so unchanged schedules export byte-identical documents.
func (s *Service) ExportICS(ctx context.Context, personID models.PersonID) []byte {
	s.mu.Lock()
	stamp := s.modified
	s.mu.Unlock()
	return ics.Encode(s.List(ctx, personID), "", stamp)
}

// ImportChecksums returns the checksum recorded for each imported file.
func (s *Service) ImportChecksums(_ context.Context) (map[string]string, error) {
	return s.db.ImportChecksums()
}

// ReplaceImported swaps the events previously imported from source for events.
// Events whose ids belong to other sources or to manual bookings are rejected
// with apperr.ErrDuplicateIdentity and nothing changes.
func (s *Service) ReplaceImported(_ context.Context, source, checksum string, events []models.ScheduleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceSource(source, events, func() error {
		return s.db.ReplaceSource(source, checksum, events)
	})
}

// RemoveImported drops every event imported from source.
func (s *Service) RemoveImported(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceSource(source, nil, func() error {
		return s.db.DeleteSource(source)
	})
}

func (s *Service) replaceSource(source string, events []models.ScheduleEvent, persist func() error) error {
	oldIDs, err := s.db.SourceIDs(source)
	if err != nil {
		return fmt.Errorf("eventservice: import %s: %w", source, err)
	}
	old := make(map[models.EventID]struct{}, len(oldIDs))
	for _, id := range oldIDs {
		old[id] = struct{}{}
	}

	snapshot := s.store.All()
	next := make([]models.ScheduleEvent, 0, len(snapshot)+len(events))
	for _, ev := range snapshot {
		if _, ok := old[ev.ID()]; !ok {
			next = append(next, ev)
		}
	}
	next = append(next, events...)
	if err := s.store.ResetData(next); err != nil {
		return fmt.Errorf("eventservice: import %s: %w", source, err)
	}
	if err := persist(); err != nil {
		_ = s.store.ResetData(snapshot)
		return fmt.Errorf("eventservice: import %s: %w", source, err)
	}
	s.touch()

	kept := make(map[models.EventID]struct{}, len(events))
	for _, ev := range events {
		kept[ev.ID()] = struct{}{}
		if _, ok := old[ev.ID()]; ok {
			s.notify(KindUpdated, ev.ID())
		} else {
			s.notify(KindCreated, ev.ID())
		}
	}
	for _, id := range oldIDs {
		if _, ok := kept[id]; !ok {
			s.notify(KindDeleted, id)
		}
	}
	s.logger.Info("eventservice: imported", slog.String("source", source), slog.Int("events", len(events)))
	return nil
}

func (s *Service) slotInterval(iv *models.Interval, slot string) (models.Interval, error) {
	if iv != nil {
		return models.NewInterval(iv.Start.In(s.loc), iv.End.In(s.loc))
	}
	if slot == "" {
		return models.Interval{}, fmt.Errorf("%w: no slot given", apperr.ErrInvalidInterval)
	}
	return parser.ParseSlot(slot, s.loc)
}

// checkConflict fails if ev overlaps another event of the same person.
// The event with id skip is ignored.
func (s *Service) checkConflict(ev models.ScheduleEvent, skip models.EventID) error {
	for other := range s.store.Filtered(nil) {
		if other.ID() == skip || other.PersonID() != ev.PersonID() {
			continue
		}
		if other.Interval().Overlaps(ev.Interval()) {
			return fmt.Errorf("%w: %s overlaps %s", apperr.ErrConflict, ev.Interval(), other.ID())
		}
	}
	return nil
}

func (s *Service) touch() {
	s.modified = s.Now()
}

func (s *Service) notify(kind string, id models.EventID) {
	if s.onChange != nil {
		s.onChange(kind, id)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
