package main

import (
	"log/slog"

	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/metrics"
	"github.com/raoulx24/dir-archiver/internal/notify"
	"github.com/raoulx24/dir-archiver/internal/producer"
	"github.com/raoulx24/dir-archiver/internal/rotation"
)

// newNotifier fans events out to the metrics collector and, when enabled,
// to the configured notification command or the log.
func newNotifier(cfg *config.Config, log *slog.Logger, collector *metrics.Collector) notify.Notifier {
	var sinks notify.Multi
	if collector != nil {
		sinks = append(sinks, collector)
	}
	if cfg.Notifications.Enabled {
		if len(cfg.Notifications.Command) > 0 {
			sinks = append(sinks, notify.NewCommandNotifier(cfg.Notifications.Command, log))
		} else {
			sinks = append(sinks, notify.NewLogNotifier(log))
		}
	}
	return sinks
}

// newOrchestrator builds the rotation pipeline for cfg.
func newOrchestrator(cfg *config.Config, log *slog.Logger, collector *metrics.Collector, dryRun bool) *rotation.Orchestrator {
	opts := rotation.Options{
		Format:     cfg.Format,
		WindowDays: cfg.RetentionDays,
		DryRun:     dryRun,
		Notifier:   newNotifier(cfg, log, collector),
		Logger:     log,
	}
	if collector != nil {
		opts.Observer = collector
	}
	return rotation.New(producer.New(cfg.Format, nil, log), opts)
}
