package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

var (
	exportFormat string
	exportPeriod string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export timers to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md")
	exportCmd.Flags().StringVar(&exportPeriod, "period", "week", "Time window: week, month, year, all")
}

func runExport(cmd *cobra.Command, args []string) error {
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
	all, err := a.svc.Timers.List(ctx, userID)
	if err != nil {
		return err
	}

	now := a.clock.Now()
	timers := timersSince(all, timecalc.PeriodStart(model.Period(exportPeriod), now))
	w := cmd.OutOrStdout()

	switch exportFormat {
	case "json":
		if timers == nil {
			timers = []model.Timer{}
		}
		data, err := json.MarshalIndent(timers, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "md":
		printList(w, timers, now)
	case "csv", "":
		printCSV(w, timers, now)
	default:
		return fmt.Errorf("unknown format %q (want csv, json or md)", exportFormat)
	}
	return nil
}

func printCSV(w io.Writer, timers []model.Timer, now time.Time) {
	fmt.Fprintln(w, "date,project,timer,start,end,pause_seconds,duration_seconds,paid")
	for _, t := range timers {
		endStr := ""
		if end := t.EndTime(); end != nil {
			endStr = end.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%d,%d,%t\n",
			t.StartTime.Local().Format("2006-01-02"),
			csvEscape(t.ProjectName),
			csvEscape(t.Name),
			t.StartTime.Format(time.RFC3339),
			endStr,
			t.TotalPause,
			timecalc.ElapsedSeconds(t, now),
			t.IsPaid,
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
