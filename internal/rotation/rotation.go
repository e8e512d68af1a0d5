// Package rotation runs rotation passes: create today's archive, expire
// archives under the calendar policy, then enforce the size budget.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/raoulx24/dir-archiver/internal/archive"
	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/fs"
	"github.com/raoulx24/dir-archiver/internal/notify"
	"github.com/raoulx24/dir-archiver/internal/retention"
)

// Producer creates the archive of a target for a date. It must be
// idempotent per (target, date): created is false when the archive already
// existed.
type Producer interface {
	Create(ctx context.Context, target config.Target, date time.Time) (a archive.Archive, created bool, err error)
}

// Observer is told about every finished pass.
type Observer interface {
	ObserveRotation(target string, d time.Duration, finished time.Time)
}

// Options configure an Orchestrator. Zero values get defaults.
type Options struct {
	Format     string
	WindowDays int
	DryRun     bool
	FS         fs.FS
	Notifier   notify.Notifier
	Observer   Observer
	Logger     *slog.Logger
}

// Orchestrator runs rotation passes for targets.
type Orchestrator struct {
	producer Producer
	evictor  *retention.Evictor
	fs       fs.FS
	notifier notify.Notifier
	observer Observer
	log      *slog.Logger
	format   string
	window   int
	dryRun   bool
}

// New creates an orchestrator around a producer.
func New(producer Producer, opts Options) *Orchestrator {
	if opts.FS == nil {
		opts.FS = fs.New()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Format == "" {
		opts.Format = config.FormatZip
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = retention.DefaultWindowDays
	}

	return &Orchestrator{
		producer: producer,
		evictor:  retention.NewEvictor(opts.FS, opts.Logger).WithDryRun(opts.DryRun),
		fs:       opts.FS,
		notifier: opts.Notifier,
		observer: opts.Observer,
		log:      opts.Logger.With("component", "rotation"),
		format:   opts.Format,
		window:   opts.WindowDays,
		dryRun:   opts.DryRun,
	}
}

// Rotate runs one pass for target. Steps run strictly in order: create,
// list, classify, delete EXPIRED, enforce the size budget. A failing step
// is recorded and later steps still run when they do not depend on it; the
// returned error joins every failure.
func (o *Orchestrator) Rotate(ctx context.Context, target config.Target, now time.Time) (Report, error) {
	r := Report{
		Target:  target.Path,
		RunID:   uuid.NewString(),
		Started: time.Now(),
		DryRun:  o.dryRun,
	}
	log := o.log.With("target", target.Path, "run_id", r.RunID)
	log.Debug("rotation started", "dry_run", o.dryRun)

	var errs []error

	// (a) today's archive
	if err := o.archive(ctx, log, target, now, &r); err != nil {
		errs = append(errs, err)
	}

	// (b) + (c)
	archives, err := archive.List(target.ArchiveDir(), target.Name(), o.format)
	if err != nil {
		errs = append(errs, fmt.Errorf("listing archives: %w", err))
	} else {
		r.Classifications = retention.Classify(archives, now, o.window)

		// (d)
		if err := o.expire(ctx, log, target, &r); err != nil {
			errs = append(errs, err)
		}
	}

	// (e)
	if target.HasDedicatedRoot() && target.BudgetBytes() > 0 {
		if err := o.evict(ctx, log, target, &r); err != nil {
			errs = append(errs, err)
		}
	}

	err = errors.Join(errs...)
	r.Finished = time.Now()
	if err != nil {
		r.Error = err.Error()
		log.Error("rotation failed", "error", err)
		o.notifier.Notify(ctx, notify.Event{Kind: notify.Failed, Target: target.Path, Err: err, RunID: r.RunID, Time: r.Finished})
	}
	if o.observer != nil && !o.dryRun {
		o.observer.ObserveRotation(target.Path, r.Finished.Sub(r.Started), r.Finished)
	}

	log.Info("rotation finished",
		"archived", r.Archived != nil,
		"expired_removed", len(r.ExpiredRemoved),
		"size_evicted", len(r.SizeEvicted),
		"freed", humanize.IBytes(uint64(r.FreedBytes)),
		"duration", r.Finished.Sub(r.Started).Round(time.Millisecond),
	)

	return r, err
}

func (o *Orchestrator) archive(ctx context.Context, log *slog.Logger, target config.Target, now time.Time, r *Report) error {
	if o.dryRun {
		existing, err := archive.List(target.ArchiveDir(), target.Name(), o.format)
		if err != nil {
			return fmt.Errorf("listing archives: %w", err)
		}
		if _, ok := archive.Find(existing, now); ok {
			r.ArchiveExisted = true
		} else {
			r.WouldArchive = true
		}
		return nil
	}

	a, created, err := o.producer.Create(ctx, target, now)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	if !created {
		r.ArchiveExisted = true
		log.Info("archive already exists", "path", a.Path)
		return nil
	}

	r.Archived = &a
	log.Info("archive created", "path", a.Path, "size", humanize.IBytes(uint64(a.Size)))
	o.notifier.Notify(ctx, notify.Event{
		Kind:   notify.Archived,
		Target: target.Path,
		Path:   a.Path,
		Size:   a.Size,
		RunID:  r.RunID,
		Time:   time.Now(),
	})
	return nil
}

func (o *Orchestrator) expire(ctx context.Context, log *slog.Logger, target config.Target, r *Report) error {
	var errs []error

	for _, a := range retention.ExpiredArchives(r.Classifications) {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !o.dryRun {
			err := o.fs.Remove(ctx, a.Path)
			if err != nil && !errors.Is(err, fs.ErrVanished) {
				errs = append(errs, fmt.Errorf("deleting expired %s: %w", a.Name, err))
				continue
			}
			if err != nil {
				log.Debug("expired archive already gone", "path", a.Path)
			}
		}

		r.ExpiredRemoved = append(r.ExpiredRemoved, a.Path)
		r.FreedBytes += a.Size
		log.Info("deleted old backup", "path", a.Path, "date", a.DateString(), "reason", notify.ReasonExpired, "dry_run", o.dryRun)
		if !o.dryRun {
			o.notifier.Notify(ctx, notify.Event{
				Kind:   notify.Deleted,
				Target: target.Path,
				Path:   a.Path,
				Size:   a.Size,
				Reason: notify.ReasonExpired,
				RunID:  r.RunID,
				Time:   time.Now(),
			})
		}
	}

	return errors.Join(errs...)
}

func (o *Orchestrator) evict(ctx context.Context, log *slog.Logger, target config.Target, r *Report) error {
	ev, err := o.evictor.Enforce(ctx, target.BackupPath, target.BudgetBytes())

	for _, f := range ev.Removed {
		r.SizeEvicted = append(r.SizeEvicted, f.Path)
		r.FreedBytes += f.Size
		log.Info("deleted backup due to size limit", "path", f.Path, "size", humanize.IBytes(uint64(f.Size)), "dry_run", o.dryRun)
		if !o.dryRun {
			o.notifier.Notify(ctx, notify.Event{
				Kind:   notify.Deleted,
				Target: target.Path,
				Path:   f.Path,
				Size:   f.Size,
				Reason: notify.ReasonSizeLimit,
				RunID:  r.RunID,
				Time:   time.Now(),
			})
		}
	}
	r.RootBytes = ev.TotalAfter

	if err != nil {
		return fmt.Errorf("enforcing size limit on %s: %w", target.BackupPath, err)
	}
	if ev.OverBudget {
		log.Warn("archive root still over budget", "root", target.BackupPath, "total", humanize.IBytes(uint64(ev.TotalAfter)))
	}
	return nil
}

// RotateAll runs Rotate for every target in order. A failing target never
// stops the others; cancellation is honoured between targets.
func (o *Orchestrator) RotateAll(ctx context.Context, targets []config.Target, now time.Time) []Report {
	reports := make([]Report, 0, len(targets))
	for _, t := range targets {
		if ctx.Err() != nil {
			o.log.Warn("rotation canceled", "remaining_targets", len(targets)-len(reports))
			break
		}
		r, _ := o.Rotate(ctx, t, now)
		reports = append(reports, r)
	}
	return reports
}
