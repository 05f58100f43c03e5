// Package schedule holds the authoritative in-memory set of schedule events.
package schedule

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/starford/agenda/internal/apperr"
	"github.com/starford/agenda/internal/models"
)

// Predicate selects events for a filtered view.
type Predicate func(models.ScheduleEvent) bool

// Store keeps events keyed by identity in insertion order. Every operation
// runs under one lock, so an Update is never observed half applied.
type Store struct {
	mu     sync.RWMutex
	events []models.ScheduleEvent
	index  map[models.EventID]int
}

// NewStore returns a store seeded with events, which must have distinct ids.
func NewStore(events ...models.ScheduleEvent) (*Store, error) {
	s := &Store{index: make(map[models.EventID]int)}
	if err := s.ResetData(events); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends ev, failing with ErrDuplicateIdentity if its id is taken.
func (s *Store) Add(ev models.ScheduleEvent) error {
	if ev.IsZero() {
		return fmt.Errorf("schedule: add: %w", apperr.ErrMissingIdentity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[ev.ID()]; ok {
		return fmt.Errorf("schedule: add %s: %w", ev.ID(), apperr.ErrDuplicateIdentity)
	}
	s.index[ev.ID()] = len(s.events)
	s.events = append(s.events, ev)
	return nil
}

// Remove deletes the event with target's identity.
func (s *Store) Remove(target models.ScheduleEvent) error {
	_, err := s.RemoveByID(target.ID())
	return err
}

// RemoveByID deletes the event with id and returns it.
func (s *Store) RemoveByID(id models.EventID) (models.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return models.ScheduleEvent{}, fmt.Errorf("schedule: remove %s: %w", id, apperr.ErrNotFound)
	}
	ev := s.events[i]
	s.events = slices.Delete(s.events, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.events); j++ {
		s.index[s.events[j].ID()] = j
	}
	return ev, nil
}

// Update replaces target with replacement at target's position. The
// replacement may keep target's identity or carry a new one; a new identity
// already used by another event is rejected and the store is left unchanged.
func (s *Store) Update(target, replacement models.ScheduleEvent) error {
	if replacement.IsZero() {
		return fmt.Errorf("schedule: update: %w", apperr.ErrMissingIdentity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[target.ID()]
	if !ok {
		return fmt.Errorf("schedule: update %s: %w", target.ID(), apperr.ErrNotFound)
	}
	if replacement.ID() != target.ID() {
		if _, taken := s.index[replacement.ID()]; taken {
			return fmt.Errorf("schedule: update %s: %w", replacement.ID(), apperr.ErrDuplicateIdentity)
		}
		delete(s.index, target.ID())
		s.index[replacement.ID()] = i
	}
	s.events[i] = replacement
	return nil
}

// ResetData replaces the whole event set. Duplicate ids reject the new data
// and keep the current contents.
func (s *Store) ResetData(events []models.ScheduleEvent) error {
	index := make(map[models.EventID]int, len(events))
	for i, ev := range events {
		if ev.IsZero() {
			return fmt.Errorf("schedule: reset: event %d: %w", i, apperr.ErrMissingIdentity)
		}
		if _, dup := index[ev.ID()]; dup {
			return fmt.Errorf("schedule: reset %s: %w", ev.ID(), apperr.ErrDuplicateIdentity)
		}
		index[ev.ID()] = i
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = slices.Clone(events)
	s.index = index
	return nil
}

// Get returns the event with id.
func (s *Store) Get(id models.EventID) (models.ScheduleEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.ScheduleEvent{}, false
	}
	return s.events[i], true
}

// Has reports whether an event with ev's identity is stored.
func (s *Store) Has(ev models.ScheduleEvent) bool {
	_, ok := s.Get(ev.ID())
	return ok
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// All returns a copy of every event in insertion order.
func (s *Store) All() []models.ScheduleEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Filtered returns the events matching pred. The contents are captured when
// Filtered is called; later mutations are not reflected. The sequence can be
// ranged over any number of times and pred is applied while iterating.
func (s *Store) Filtered(pred Predicate) iter.Seq[models.ScheduleEvent] {
	snapshot := s.All()
	if pred == nil {
		pred = Everything
	}
	return func(yield func(models.ScheduleEvent) bool) {
		for _, ev := range snapshot {
			if pred(ev) && !yield(ev) {
				return
			}
		}
	}
}
