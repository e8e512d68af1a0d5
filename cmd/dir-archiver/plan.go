package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/retention"
	"github.com/raoulx24/dir-archiver/internal/rotation"
)

var planFlags struct {
	target string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the retention tier of every archive",
	Long: `Plan lists each target's archives with their retention tier and the files
the size budget would evict. Nothing is written or deleted.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planFlags.target, "target", "", "only plan the target with this path")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	targets, err := selectTargets(cfg, planFlags.target)
	if err != nil {
		return err
	}

	return writePlan(cmd.Context(), cmd.OutOrStdout(), cfg, targets, time.Now(), newOrchestrator(cfg, log, nil, true))
}

// planner is the dry-run orchestrator writePlan drives.
type planner interface {
	RotateAll(ctx context.Context, targets []config.Target, now time.Time) []rotation.Report
}

func writePlan(ctx context.Context, w io.Writer, cfg *config.Config, targets []config.Target, now time.Time, p planner) error {
	cutoff := retention.Cutoff(now, cfg.RetentionDays)
	fmt.Fprintf(w, "retention: %d days (cutoff %s)\n\n", cfg.RetentionDays, cutoff.Format("2006-01-02 15:04"))

	for _, r := range p.RotateAll(ctx, targets, now) {
		fmt.Fprintf(w, "%s\n", r.Target)

		for _, c := range r.Classifications {
			a := c.Archive
			fmt.Fprintf(w, "  %-15s %-10s %10s  %s\n", c.Tier, a.DateString(), humanize.IBytes(uint64(a.Size)), a.Path)
		}

		if len(r.Classifications) == 0 {
			fmt.Fprintf(w, "  no archives\n")
		}
		if r.WouldArchive {
			fmt.Fprintf(w, "  today's archive would be created\n")
		}
		for _, path := range r.SizeEvicted {
			fmt.Fprintf(w, "  size limit would evict %s\n", path)
		}
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}
