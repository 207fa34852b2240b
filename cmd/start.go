package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/service"
)

var startStopRunning bool

var startCmd = &cobra.Command{
	Use:   "start <project> <name>",
	Short: "Start a new timer",
	Long: `Starts a timer on the project with the given ID or name. Unknown project
names are created.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startStopRunning, "stop-running", false, "Stop timers that are still running or paused first")
}

func runStart(cmd *cobra.Command, args []string) error {
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

	if startStopRunning {
		timers, err := a.svc.Timers.List(ctx, userID)
		if err != nil {
			return err
		}
		for _, t := range timers {
			if !isActive(t) {
				continue
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: auto-stopping active timer %q\n", t.Name)
			if _, err := a.svc.Timers.Stop(ctx, userID, t.ID); err != nil {
				return err
			}
		}
	}

	project, err := resolveProject(ctx, a.svc, userID, args[0], true)
	if err != nil {
		return err
	}
	t, err := a.svc.Timers.Start(ctx, userID, service.CreateTimer{
		Name:      strings.Join(args[1:], " "),
		ProjectID: project.ID,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Started timer %q for project %q at %s (id %s)\n",
		t.Name, project.Name, t.StartTime.Local().Format("15:04:05"), t.ID)
	return nil
}
