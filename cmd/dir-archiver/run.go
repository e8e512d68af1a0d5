package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/mailbox"
	"github.com/raoulx24/dir-archiver/internal/metrics"
	"github.com/raoulx24/dir-archiver/internal/rotation"
	"github.com/raoulx24/dir-archiver/internal/scheduler"
	"github.com/raoulx24/dir-archiver/internal/server"
	"github.com/raoulx24/dir-archiver/internal/watcher"
	"github.com/raoulx24/dir-archiver/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the archiver daemon",
	Long: `Run archives every target at startup and then on the configured schedule.

The config file is reloaded on change (see configReload) and on SIGHUP. An
invalid new config is logged and the running one is kept. SIGINT or SIGTERM
stops the daemon after the current pass.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spec, err := cfg.CronSpec()
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(nil)
	history := rotation.NewHistory()
	mb := mailbox.New[worker.Job]()

	w := worker.New(cfg, newOrchestrator(cfg, log, collector, false), log, mb, history)
	sched := scheduler.New(spec, mb, log)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.Start(ctx)
	}()

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if cfg.Metrics.Enabled {
		srv := server.New(collector.Handler(), history, sched, Version, log)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Metrics.Listen); err != nil {
				log.Error("status server failed", "error", err)
			}
		}()
	}

	reloadCh := make(chan struct{}, 1)
	requestReload := func() {
		select {
		case reloadCh <- struct{}{}:
		default:
		}
	}

	if cfg.ConfigReload.Enabled {
		cw := watcher.New(cfgFile, cfg.ConfigReload, log, requestReload)
		go func() {
			if err := cw.Start(ctx); err != nil {
				log.Error("config watcher failed", "error", err)
			}
		}()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	log.Info("dir-archiver started", "version", Version, "config", cfgFile, "targets", len(cfg.Targets), "schedule", spec)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			<-workerDone
			log.Info("exit complete")
			return nil

		case <-hup:
			log.Info("SIGHUP received, reloading config")
			requestReload()

		case <-reloadCh:
			cfg = applyReload(ctx, log, cfg, w, sched, collector)
		}
	}
}

// applyReload loads the config file again and hands targets, retention and
// schedule to the running components. It returns the config now in effect,
// which is current when the new file is rejected. Logging, metrics and
// reload settings only change on restart.
func applyReload(ctx context.Context, log *slog.Logger, current *config.Config, w *worker.Worker, sched *scheduler.Scheduler, collector *metrics.Collector) *config.Config {
	next, err := loadConfig()
	if err != nil {
		log.Error("config reload failed, keeping previous config", "error", err)
		return current
	}
	spec, err := next.CronSpec()
	if err != nil {
		log.Error("config reload failed, keeping previous config", "error", err)
		return current
	}
	if err := sched.Reschedule(spec); err != nil {
		log.Error("config reload failed, keeping previous config", "error", err)
		return current
	}

	w.UpdateConfig(next, newOrchestrator(next, log, collector, false))

	if next.Metrics != current.Metrics || next.Logging != current.Logging {
		log.Warn("logging and metrics changes take effect after restart")
	}
	log.InfoContext(ctx, "config reloaded", "targets", len(next.Targets), "schedule", spec)
	return next
}
