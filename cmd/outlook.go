package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/msgraph"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

var (
	outlookSyncFrom    string
	outlookSyncTo      string
	outlookSyncDate    string
	outlookSyncDryRun  bool
	outlookSyncProject string
	outlookSyncTZ      string
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar integration",
}

var outlookSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import Outlook calendar events as stopped timers",
	Args:  cobra.NoArgs,
	RunE:  runOutlookSync,
}

func init() {
	outlookSyncCmd.Flags().StringVar(&outlookSyncFrom, "from", "", "Start date (YYYY-MM-DD); required when --to is specified")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTo, "to", "", "End date (YYYY-MM-DD); defaults to today")
	outlookSyncCmd.Flags().StringVar(&outlookSyncDate, "date", "", "Sync a specific date (YYYY-MM-DD)")
	outlookSyncCmd.Flags().BoolVar(&outlookSyncDryRun, "dry-run", false, "Print planned operations without writing")
	outlookSyncCmd.Flags().StringVar(&outlookSyncProject, "project", "", "Project (ID or name) for imported events; defaults to outlook.default_project")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTZ, "timezone", "", "IANA timezone for event times (e.g. Europe/Berlin)")
	outlookCmd.AddCommand(outlookSyncCmd)
}

// syncRange resolves the --date/--from/--to flags to a local day range.
func syncRange(now time.Time, date, fromFlag, toFlag string) (time.Time, time.Time, error) {
	parse := func(flag, v string) (time.Time, error) {
		d, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --%s value %q: %w", flag, v, err)
		}
		return d, nil
	}

	switch {
	case date != "":
		d, err := parse("date", date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return timecalc.StartOfDay(d), timecalc.EndOfDay(d), nil

	case fromFlag != "" || toFlag != "":
		if fromFlag == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--from is required when --to is specified")
		}
		from, err := parse("from", fromFlag)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to := now
		if toFlag != "" {
			if to, err = parse("to", toFlag); err != nil {
				return time.Time{}, time.Time{}, err
			}
		}
		if to.Before(from) {
			return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
		}
		return timecalc.StartOfDay(from), timecalc.EndOfDay(to), nil

	default:
		return timecalc.StartOfDay(now), timecalc.EndOfDay(now), nil
	}
}

func runOutlookSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	from, to, err := syncRange(time.Now(), outlookSyncDate, outlookSyncFrom, outlookSyncTo)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	userID, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	projectRef := outlookSyncProject
	if projectRef == "" {
		projectRef = a.cfg.Outlook.DefaultProject
	}
	timezone := outlookSyncTZ
	if timezone == "" {
		timezone = a.cfg.Outlook.Timezone
	}

	project, err := resolveProject(ctx, a.svc, userID, projectRef, !outlookSyncDryRun)
	switch {
	case outlookSyncDryRun && errors.Is(err, storage.ErrNotFound):
		project = model.Project{Name: projectRef}
	case err != nil:
		return err
	}

	dryTag := ""
	if outlookSyncDryRun {
		dryTag = " [dry-run]"
	}
	fmt.Fprintf(out, "Syncing Outlook events (%s → %s) into %q%s...\n\n",
		from.Format("2006-01-02"), to.Format("2006-01-02"), project.Name, dryTag)

	tokenPath, err := msgraph.DefaultTokenPath()
	if err != nil {
		return err
	}
	authn := &msgraph.Authenticator{
		TenantID:  a.cfg.Outlook.TenantID,
		ClientID:  a.cfg.Outlook.ClientID,
		TokenPath: tokenPath,
		Prompt:    out,
		Log:       a.log,
	}
	httpClient, err := authn.HTTPClient(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	events, err := msgraph.NewClient(httpClient, "").GetCalendarView(ctx, from, to, timezone)
	if err != nil {
		return fmt.Errorf("failed to fetch calendar events: %w", err)
	}

	result, err := msgraph.SyncEvents(ctx, a.store, events, msgraph.SyncOptions{
		UserID:    userID,
		ProjectID: project.ID,
		Timezone:  timezone,
		DryRun:    outlookSyncDryRun,
		Now:       a.clock.Now(),
		Out:       out,
	})
	if err != nil {
		return fmt.Errorf("sync error: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  %d imported\n", result.Imported)
	fmt.Fprintf(out, "  %d skipped\n", result.Skipped)
	fmt.Fprintf(out, "  %d updated\n", result.Updated)
	if result.Errors > 0 {
		return fmt.Errorf("%d events failed to sync", result.Errors)
	}
	return nil
}
