package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/raoulx24/dir-archiver/internal/fs"
)

// Eviction is the outcome of one size enforcement on an archive root.
type Eviction struct {
	Root        string
	Budget      int64
	TotalBefore int64
	TotalAfter  int64
	Removed     []fs.FileInfo
	FreedBytes  int64
	OverBudget  bool // still above budget after every file was considered
	DryRun      bool
}

// SelectEvictions returns the files to remove, oldest first, so that the
// remaining total is at or below budget. Files are ordered by ascending
// modification time, ties broken by path. Nothing is selected when the
// total already fits or when budget is not positive.
func SelectEvictions(files []fs.FileInfo, budget int64) []fs.FileInfo {
	if budget <= 0 {
		return nil
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}
	if total <= budget {
		return nil
	}

	ordered := append([]fs.FileInfo(nil), files...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].MTime.Equal(ordered[j].MTime) {
			return ordered[i].Path < ordered[j].Path
		}
		return ordered[i].MTime.Before(ordered[j].MTime)
	})

	var selected []fs.FileInfo
	for _, f := range ordered {
		if total <= budget {
			break
		}
		selected = append(selected, f)
		total -= f.Size
	}
	return selected
}

// Evictor enforces a byte budget over every file under an archive root.
// The root may be shared by several targets; all of its files count.
type Evictor struct {
	fs     fs.FS
	log    *slog.Logger
	dryRun bool
}

// NewEvictor creates an evictor. A nil filesystem uses the OS.
func NewEvictor(filesystem fs.FS, log *slog.Logger) *Evictor {
	if filesystem == nil {
		filesystem = fs.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Evictor{
		fs:  filesystem,
		log: log.With("component", "retention.evictor"),
	}
}

// WithDryRun returns a copy of the evictor that selects but never removes.
func (e *Evictor) WithDryRun(dryRun bool) *Evictor {
	c := *e
	c.dryRun = dryRun
	return &c
}

// Enforce removes the oldest files under root until the total size is at or
// below budget. A file that vanished before removal counts as removed. The
// first hard removal error stops the pass and is returned together with
// what was removed so far.
func (e *Evictor) Enforce(ctx context.Context, root string, budget int64) (Eviction, error) {
	ev := Eviction{Root: root, Budget: budget, DryRun: e.dryRun}

	if budget <= 0 {
		return ev, nil
	}

	files, err := e.fs.Walk(root)
	if err != nil {
		return ev, fmt.Errorf("scanning %s: %w", root, err)
	}

	for _, f := range files {
		ev.TotalBefore += f.Size
	}
	ev.TotalAfter = ev.TotalBefore

	if ev.TotalBefore <= budget {
		e.log.Debug("archive root within budget",
			"root", root,
			"total", humanize.IBytes(uint64(ev.TotalBefore)),
			"budget", humanize.IBytes(uint64(budget)),
		)
		return ev, nil
	}

	e.log.Info("archive root over budget, evicting oldest files",
		"root", root,
		"total", humanize.IBytes(uint64(ev.TotalBefore)),
		"budget", humanize.IBytes(uint64(budget)),
	)

	for _, f := range SelectEvictions(files, budget) {
		if err := ctx.Err(); err != nil {
			return ev, err
		}

		if !e.dryRun {
			err := e.fs.Remove(ctx, f.Path)
			switch {
			case err == nil:
			case errors.Is(err, fs.ErrVanished):
				e.log.Debug("file vanished before eviction", "path", f.Path)
			default:
				return ev, fmt.Errorf("evicting %s: %w", f.Path, err)
			}
		}

		ev.Removed = append(ev.Removed, f)
		ev.FreedBytes += f.Size
		ev.TotalAfter -= f.Size
	}

	ev.OverBudget = ev.TotalAfter > budget

	return ev, nil
}
