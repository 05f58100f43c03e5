package models

import (
	"errors"
	"testing"

	"github.com/starford/agenda/internal/apperr"
)

func TestNewEvent_FreshIdentity(t *testing.T) {
	iv := MustInterval(at(1, 9, 0), at(1, 10, 0))
	a, err := NewEvent(iv, "p1", "checkup", nil)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	b, err := NewEvent(iv, "p1", "checkup", nil)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("ids = %q, %q; want distinct non-empty", a.ID(), b.ID())
	}
	if a.SameEvent(b) {
		t.Error("events with different ids must not be the same event")
	}
}

func TestNewEvent_InvalidInterval(t *testing.T) {
	_, err := NewEvent(Interval{Start: at(1, 10, 0), End: at(1, 10, 0)}, "p1", "", nil)
	if !errors.Is(err, apperr.ErrInvalidInterval) {
		t.Fatalf("err = %v, want ErrInvalidInterval", err)
	}
}

func TestNewEvent_TagsCopiedAndDeduplicated(t *testing.T) {
	tags := []Tag{"urgent", "followup", "urgent", " "}
	ev, err := NewEvent(MustInterval(at(1, 9, 0), at(1, 10, 0)), "p1", "x", tags)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	tags[0] = "changed"

	got := ev.Tags()
	if len(got) != 2 || got[0] != "followup" || got[1] != "urgent" {
		t.Fatalf("tags = %v, want [followup urgent]", got)
	}
	got[0] = "mutated"
	if ev.Tags()[0] != "followup" {
		t.Error("Tags() must return a copy")
	}
	if !ev.HasTag("urgent") || ev.HasTag("changed") {
		t.Error("HasTag mismatch")
	}
}

func TestRestoreEvent_KeepsIdentity(t *testing.T) {
	iv := MustInterval(at(1, 9, 0), at(1, 10, 0))
	ev, err := RestoreEvent("fixed-id", iv, "p2", "details", []Tag{"a"})
	if err != nil {
		t.Fatalf("RestoreEvent: %v", err)
	}
	if ev.ID() != "fixed-id" || ev.PersonID() != "p2" || ev.Details() != "details" {
		t.Errorf("unexpected event %v", ev)
	}
	if _, err := RestoreEvent("", iv, "p2", "", nil); err == nil {
		t.Error("empty id should fail")
	}
}

func TestView(t *testing.T) {
	ev, _ := RestoreEvent("id-1", MustInterval(at(3, 9, 0), at(3, 10, 0)), "p", "d", nil)
	v := ev.View()
	if v.ID != "id-1" || v.Display != "03/01/2024 09:00 - 10:00" || v.Tags == nil {
		t.Errorf("view = %+v", v)
	}
}
