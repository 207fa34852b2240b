package service

import (
	"context"
	"strings"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
	"github.com/Tiliavir/time-tracker-server/internal/timecalc"
)

// CreateProject is the input of Projects.Create.
type CreateProject struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	CategoryID  *string `json:"categoryId"`
}

// UpdateProject is the input of Projects.Update. Nil fields are left as is.
type UpdateProject struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CategoryID  *string `json:"categoryId"`
}

// Projects manages projects.
type Projects struct {
	store storage.Store
	clock Clock
}

func (p *Projects) checkCategory(ctx context.Context, userID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	_, err := findCategory(ctx, p.store, userID, *categoryID)
	return err
}

func (p *Projects) Create(ctx context.Context, userID string, in CreateProject) (model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Project{}, invalid("name is required")
	}
	categoryID := optionalText(in.CategoryID)
	if err := p.checkCategory(ctx, userID, categoryID); err != nil {
		return model.Project{}, err
	}

	proj := model.Project{
		ID:          newID(),
		UserID:      userID,
		CategoryID:  categoryID,
		Name:        name,
		Description: optionalText(in.Description),
		CreatedAt:   p.clock.Now(),
	}
	if err := p.store.CreateProject(ctx, proj); err != nil {
		return model.Project{}, err
	}
	return proj, nil
}

// List returns the user's projects with their frozen total time and paid
// status. A non-empty categoryID restricts the listing to that category.
func (p *Projects) List(ctx context.Context, userID, categoryID string) ([]model.ProjectSummary, error) {
	now := p.clock.Now()
	projects, err := p.store.ListProjects(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	out := make([]model.ProjectSummary, 0, len(projects))
	for _, proj := range projects {
		out = append(out, timecalc.SummarizeProject(proj, now))
	}
	return out, nil
}

func (p *Projects) Get(ctx context.Context, userID, id string) (model.Project, error) {
	return p.store.GetProject(ctx, userID, id)
}

// GetWithTimers returns the project and all of its timers, newest first.
func (p *Projects) GetWithTimers(ctx context.Context, userID, id string) (model.ProjectTimers, error) {
	proj, err := p.store.GetProject(ctx, userID, id)
	if err != nil {
		return model.ProjectTimers{}, err
	}
	timers, err := p.store.ListProjectTimers(ctx, userID, id)
	if err != nil {
		return model.ProjectTimers{}, err
	}
	return model.ProjectTimers{Project: proj, Timers: timers}, nil
}

func (p *Projects) Update(ctx context.Context, userID, id string, in UpdateProject) (model.Project, error) {
	proj, err := p.store.GetProject(ctx, userID, id)
	if err != nil {
		return model.Project{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return model.Project{}, invalid("name must not be empty")
		}
		proj.Name = name
	}
	if in.Description != nil {
		proj.Description = optionalText(in.Description)
	}
	if in.CategoryID != nil {
		categoryID := optionalText(in.CategoryID)
		if err := p.checkCategory(ctx, userID, categoryID); err != nil {
			return model.Project{}, err
		}
		proj.CategoryID = categoryID
	}
	if err := p.store.UpdateProject(ctx, proj); err != nil {
		return model.Project{}, err
	}
	return proj, nil
}

// Delete removes the project together with its timers and returns it.
func (p *Projects) Delete(ctx context.Context, userID, id string) (model.Project, error) {
	proj, err := p.store.GetProject(ctx, userID, id)
	if err != nil {
		return model.Project{}, err
	}
	if err := p.store.DeleteProject(ctx, userID, id); err != nil {
		return model.Project{}, err
	}
	return proj, nil
}
