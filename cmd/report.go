package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

var (
	reportPeriod string
	reportPaid   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show time statistics per project",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportPeriod, "period", "week", "Time window: week, month, year, all")
	reportCmd.Flags().StringVar(&reportPaid, "paid", "all", "Timers to list per project: all, paid, unpaid")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

func runReport(cmd *cobra.Command, args []string) error {
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
	stats, err := a.svc.Timers.Statistics(ctx, userID, model.Period(reportPeriod), reportPaid)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), stats, reportPeriod, reportFormat)
}

// writeReport renders statistics in the requested format.
func writeReport(w io.Writer, stats model.Statistics, period, format string) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "project,timer,start,paid,duration_seconds")
		for _, p := range stats.ProjectStats {
			for _, t := range p.Timers {
				fmt.Fprintf(w, "%s,%s,%s,%t,%d\n",
					csvEscape(p.Name), csvEscape(t.Name), t.StartTime.Format(time.RFC3339), t.IsPaid, t.Time)
			}
		}
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "md", "":
		fmt.Fprintf(w, "Period: %s\n", period)
		fmt.Fprintln(w, "--------------------------------")
		for _, p := range stats.ProjectStats {
			mark := ""
			if p.IsPaid {
				mark = " ✓"
			}
			fmt.Fprintf(w, "%-20s%s%s\n", p.Name, timecalc.FormatDuration(p.TotalTime), mark)
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%s\n", "Paid", timecalc.FormatDuration(stats.TotalPaidTime))
		fmt.Fprintf(w, "%-20s%s\n", "Unpaid", timecalc.FormatDuration(stats.TotalUnpaidTime))
		fmt.Fprintf(w, "%-20s%s\n", "Total", timecalc.FormatDuration(stats.TotalTime))
	default:
		return fmt.Errorf("unknown format %q (want md, csv or json)", format)
	}
	return nil
}
