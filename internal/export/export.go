// Package export periodically writes the schedule as an iCalendar file.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/starford/agenda/internal/checksum"
	"github.com/starford/agenda/internal/models"
	"github.com/starford/agenda/internal/storage"
)

// FileName is the snapshot written into the export directory.
const FileName = "schedule.ics"

// Source renders the schedule. *eventservice.Service satisfies it.
type Source interface {
	ExportICS(ctx context.Context, personID models.PersonID) []byte
}

// Exporter writes snapshots of one person's events (everyone's when person
// is empty) through a storage provider.
type Exporter struct {
	src    Source
	store  storage.Provider
	person models.PersonID
	logger *slog.Logger

	mu   sync.Mutex
	last string // checksum of the last snapshot written or found on disk
}

// New creates an exporter.
func New(src Source, store storage.Provider, person models.PersonID, logger *slog.Logger) *Exporter {
	return &Exporter{src: src, store: store, person: person, logger: logger}
}

// RunOnce writes a snapshot unless the file already holds identical content.
// It reports whether a write happened.
func (e *Exporter) RunOnce(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data := e.src.ExportICS(ctx, e.person)
	sum := checksum.Sum(data)
	if e.last == "" {
		if existing, err := e.store.Read(FileName); err == nil {
			e.last = checksum.Sum(existing)
		}
	}
	if sum == e.last {
		return false, nil
	}
	if err := e.store.Write(FileName, data); err != nil {
		return false, fmt.Errorf("export: write %s: %w", FileName, err)
	}
	e.last = sum
	e.logger.Info("export: snapshot written", slog.String("file", FileName), slog.Int("bytes", len(data)))
	return true, nil
}

// Run writes a snapshot immediately and then on every tick of the cron spec
// until ctx is cancelled. In-flight runs finish before Run returns.
func (e *Exporter) Run(ctx context.Context, spec string) error {
	run := func() {
		if _, err := e.RunOnce(ctx); err != nil {
			e.logger.Warn("export: run failed", slog.String("error", err.Error()))
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, run); err != nil {
		return fmt.Errorf("export: schedule %q: %w", spec, err)
	}
	run()
	c.Start()
	e.logger.Info("export: started", slog.String("cron", spec))

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	e.logger.Info("export: stopped")
	return nil
}

// ValidateSpec reports whether spec is a valid five-field cron expression or descriptor.
func ValidateSpec(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}
