// Package importer keeps the schedule in step with a directory of .ics files.
// Each file is one source: its events replace whatever that file contributed
// before, and deleting the file drops them.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/agenda/internal/checksum"
	"github.com/starford/agenda/internal/ics"
	"github.com/starford/agenda/internal/models"
	"github.com/starford/agenda/internal/storage"
)

// Target receives imported events. *eventservice.Service satisfies it.
type Target interface {
	Location() *time.Location
	ImportChecksums(ctx context.Context) (map[string]string, error)
	ReplaceImported(ctx context.Context, source, checksum string, events []models.ScheduleEvent) error
	RemoveImported(ctx context.Context, source string) error
}

// Importer syncs one calendar directory into a Target.
type Importer struct {
	target Target
	store  storage.Provider
	root   string
	ext    string
	logger *slog.Logger
}

// New creates an importer over the directory served by fs.
func New(target Target, fs *storage.FS, logger *slog.Logger) *Importer {
	return &Importer{target: target, store: fs, root: fs.Root(), ext: fs.Ext(), logger: logger}
}

// PersonFor derives the owning person from a file path: "team/alice.ics" → "alice".
func PersonFor(path string) models.PersonID {
	base := filepath.Base(path)
	return models.PersonID(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Sync walks the directory and brings the schedule up to date:
//   - new/changed files are decoded and their events replaced
//   - files removed from disk have their events dropped
func (im *Importer) Sync(ctx context.Context) error {
	metas, err := im.store.List("")
	if err != nil {
		return err
	}
	checksums, err := im.target.ImportChecksums(ctx)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := im.store.Read(m.Path)
		if err != nil {
			im.logger.Warn("import: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := im.importFile(ctx, m.Path, data); err != nil {
			im.logger.Warn("import: file failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			im.logger.Debug("import: synced", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := im.target.RemoveImported(ctx, p); err != nil {
			im.logger.Warn("import: remove failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			im.logger.Debug("import: removed stale", slog.String("path", p))
		}
	}
	return nil
}

// ImportFile decodes data as the content of path and replaces that source's
// events. Unchanged content is skipped.
func (im *Importer) ImportFile(ctx context.Context, path string, data []byte) error {
	checksums, err := im.target.ImportChecksums(ctx)
	if err != nil {
		return err
	}
	if checksum.Matches(data, checksums[path]) {
		return nil
	}
	return im.importFile(ctx, path, data)
}

func (im *Importer) importFile(ctx context.Context, path string, data []byte) error {
	events, err := ics.Decode(data, PersonFor(path), im.target.Location(), im.logger)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return im.target.ReplaceImported(ctx, path, checksum.Sum(data), events)
}
