package cmd

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

var listPeriod string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List timers",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listPeriod, "period", "week", "Time window: week, month, year, all")
}

func runList(cmd *cobra.Command, args []string) error {
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

	now := a.clock.Now()
	printList(cmd.OutOrStdout(), timersSince(timers, timecalc.PeriodStart(model.Period(listPeriod), now)), now)
	return nil
}

// timersSince keeps timers started at or after since, oldest first.
func timersSince(timers []model.Timer, since time.Time) []model.Timer {
	var out []model.Timer
	for _, t := range timers {
		if !t.StartTime.Before(since) {
			out = append(out, t)
		}
	}
	slices.Reverse(out)
	return out
}

// printList groups timers by local date and prints them.
func printList(w io.Writer, timers []model.Timer, now time.Time) {
	if len(timers) == 0 {
		fmt.Fprintln(w, "No timers found.")
		return
	}

	var currentDay string
	for _, t := range timers {
		start := t.StartTime.Local()
		day := start.Format("2006-01-02")
		if day != currentDay {
			fmt.Fprintln(w, day)
			currentDay = day
		}

		endStr := "ongoing"
		switch {
		case t.EndTime() != nil:
			endStr = t.EndTime().Local().Format("15:04")
		case t.IsPaused():
			endStr = "paused"
		}

		project := ""
		if t.ProjectName != "" {
			project = "  [" + t.ProjectName + "]"
		}
		paid := ""
		if t.IsPaid {
			paid = " paid"
		}

		fmt.Fprintf(w, "%s–%s  %s%s (%s)%s\n", start.Format("15:04"), endStr, t.Name, project,
			timecalc.FormatDuration(timecalc.ElapsedSeconds(t, now)), paid)
	}
}
