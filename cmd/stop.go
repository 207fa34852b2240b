package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

var stopCmd = &cobra.Command{
	Use:   "stop [timer-id]",
	Short: "Stop a timer (default: the newest running or paused one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStop,
}

var pauseCmd = &cobra.Command{
	Use:   "pause [timer-id]",
	Short: "Pause a timer (default: the newest running one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume [timer-id]",
	Short: "Resume a paused timer (default: the newest paused one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResume,
}

type transitionFunc func(ctx context.Context, userID, id string) (model.Timer, error)

// runTransition picks the target timer and applies one lifecycle step.
func runTransition(cmd *cobra.Command, args []string, want func(model.Timer) bool, pick func(*app) transitionFunc, verb string) error {
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
	target, err := pickTimer(ctx, a.svc, userID, args, want)
	if errors.Is(err, errNoTimer) {
		return fmt.Errorf("no timer to %s", verb)
	}
	if err != nil {
		return err
	}

	t, err := pick(a)(ctx, userID, target.ID)
	if err != nil {
		return err
	}
	elapsed := timecalc.ElapsedSeconds(t, a.clock.Now())
	fmt.Fprintf(cmd.OutOrStdout(), "%s timer %q. Elapsed: %s\n", pastTense[verb], t.Name, timecalc.FormatElapsed(elapsed))
	return nil
}

var pastTense = map[string]string{
	"stop":   "Stopped",
	"pause":  "Paused",
	"resume": "Resumed",
}

func runStop(cmd *cobra.Command, args []string) error {
	return runTransition(cmd, args, isActive, func(a *app) transitionFunc { return a.svc.Timers.Stop }, "stop")
}

func runPause(cmd *cobra.Command, args []string) error {
	return runTransition(cmd, args, isRunning, func(a *app) transitionFunc { return a.svc.Timers.Pause }, "pause")
}

func runResume(cmd *cobra.Command, args []string) error {
	return runTransition(cmd, args, model.Timer.IsPaused, func(a *app) transitionFunc { return a.svc.Timers.Resume }, "resume")
}
