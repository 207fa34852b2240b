package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/service"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Start, pause, resume, stop and list timers",
}

func init() {
	timerCmd.AddCommand(startCmd)
	timerCmd.AddCommand(pauseCmd)
	timerCmd.AddCommand(resumeCmd)
	timerCmd.AddCommand(stopCmd)
	timerCmd.AddCommand(statusCmd)
	timerCmd.AddCommand(listCmd)
}

// resolveProject finds a project by ID or case-insensitive name. With
// create set, a missing project is created under that name.
func resolveProject(ctx context.Context, svc *service.Services, userID, ref string, create bool) (model.Project, error) {
	projects, err := svc.Projects.List(ctx, userID, "")
	if err != nil {
		return model.Project{}, err
	}
	for _, p := range projects {
		if p.ID == ref || strings.EqualFold(p.Name, ref) {
			return p.Project, nil
		}
	}
	if !create {
		return model.Project{}, fmt.Errorf("project %q: %w", ref, storage.ErrNotFound)
	}
	return svc.Projects.Create(ctx, userID, service.CreateProject{Name: ref})
}

// pickTimer returns the timer named in args, or the newest timer matching
// want when args is empty.
func pickTimer(ctx context.Context, svc *service.Services, userID string, args []string, want func(model.Timer) bool) (model.Timer, error) {
	if len(args) == 1 {
		return svc.Timers.Get(ctx, userID, args[0])
	}
	timers, err := svc.Timers.List(ctx, userID)
	if err != nil {
		return model.Timer{}, err
	}
	for _, t := range timers {
		if want(t) {
			return t, nil
		}
	}
	return model.Timer{}, errNoTimer
}

var errNoTimer = errors.New("no matching timer")

func isRunning(t model.Timer) bool {
	_, ok := t.State.(model.Running)
	return ok
}

func isActive(t model.Timer) bool {
	return !t.IsStopped()
}
