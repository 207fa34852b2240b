package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show running and paused timers",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	userID, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	timers, err := a.svc.Timers.List(ctx, userID)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), timers, a.clock.Now())
	return nil
}

// printStatus shows active timers, or today's logged total when idle.
func printStatus(w io.Writer, timers []model.Timer, now time.Time) {
	var active int
	for _, t := range timers {
		if t.IsStopped() {
			continue
		}
		active++
		state := "Running"
		if t.IsPaused() {
			state = "Paused"
		}
		fmt.Fprintf(w, "%s: %s\n", state, t.Name)
		if t.ProjectName != "" {
			fmt.Fprintf(w, "  Project: %s\n", t.ProjectName)
		}
		fmt.Fprintf(w, "  Since: %s\n", t.StartTime.Local().Format("15:04"))
		fmt.Fprintf(w, "  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(timecalc.ElapsedSeconds(t, now)))
	}
	if active > 0 {
		return
	}

	var today int64
	dayStart := timecalc.StartOfDay(now.Local())
	for _, t := range timers {
		if !t.StartTime.Before(dayStart) {
			today += timecalc.ElapsedSeconds(t, now)
		}
	}
	fmt.Fprintln(w, "No active timer.")
	fmt.Fprintf(w, "Today: %s logged.\n", timecalc.FormatDuration(today))
}
