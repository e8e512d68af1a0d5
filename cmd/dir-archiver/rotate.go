package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/rotation"
)

var rotateFlags struct {
	target string
	dryRun bool
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Run one rotation pass now and exit",
	Long: `Rotate archives the configured targets, deletes expired archives and
enforces size budgets once, then exits. The exit status is non-zero when any
target failed.

Examples:
  # Every target
  dir-archiver rotate

  # One target, report only
  dir-archiver rotate --target /data/docs --dry-run`,
	RunE: runRotate,
}

func init() {
	rootCmd.AddCommand(rotateCmd)

	rotateCmd.Flags().StringVar(&rotateFlags.target, "target", "", "only rotate the target with this path")
	rotateCmd.Flags().BoolVar(&rotateFlags.dryRun, "dry-run", false, "report what would change without writing or deleting")
}

func runRotate(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	targets, err := selectTargets(cfg, rotateFlags.target)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := newOrchestrator(cfg, log, nil, rotateFlags.dryRun)
	reports := orch.RotateAll(ctx, targets, time.Now())

	printReports(cmd.OutOrStdout(), reports)

	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(reports))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// selectTargets returns every configured target, or only the one at path.
func selectTargets(cfg *config.Config, path string) ([]config.Target, error) {
	if path == "" {
		return cfg.Targets, nil
	}
	t, ok := cfg.Target(path)
	if !ok {
		return nil, fmt.Errorf("target %q is not configured", path)
	}
	return []config.Target{t}, nil
}

func printReports(w io.Writer, reports []rotation.Report) {
	for _, r := range reports {
		status := "ok"
		if !r.OK() {
			status = "FAILED"
		}
		prefix := ""
		if r.DryRun {
			prefix = "[dry-run] "
		}
		fmt.Fprintf(w, "%s%s: %s\n", prefix, r.Target, status)

		switch {
		case r.Archived != nil:
			fmt.Fprintf(w, "  archived        %s (%s)\n", r.Archived.Path, humanize.IBytes(uint64(r.Archived.Size)))
		case r.WouldArchive:
			fmt.Fprintf(w, "  would archive   today\n")
		case r.ArchiveExisted:
			fmt.Fprintf(w, "  archive exists  today\n")
		}
		for _, p := range r.ExpiredRemoved {
			fmt.Fprintf(w, "  expired         %s\n", p)
		}
		for _, p := range r.SizeEvicted {
			fmt.Fprintf(w, "  size limit      %s\n", p)
		}
		if r.FreedBytes > 0 {
			fmt.Fprintf(w, "  freed           %s\n", humanize.IBytes(uint64(r.FreedBytes)))
		}
		if r.Error != "" {
			fmt.Fprintf(w, "  error           %s\n", r.Error)
		}
	}
}
