package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tiliavir/time-tracker-server/internal/model"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
)

// CreateCategory is the input of Categories.Create.
type CreateCategory struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Categories manages project categories.
type Categories struct {
	store storage.Store
	clock Clock
}

func (c *Categories) List(ctx context.Context, userID string) ([]model.CategorySummary, error) {
	return c.store.ListCategories(ctx, userID)
}

func (c *Categories) Create(ctx context.Context, userID string, in CreateCategory) (model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, invalid("name is required")
	}
	cat := model.Category{
		ID:        newID(),
		UserID:    userID,
		Name:      name,
		Color:     strings.TrimSpace(in.Color),
		CreatedAt: c.clock.Now(),
	}
	if err := c.store.CreateCategory(ctx, cat); err != nil {
		return model.Category{}, err
	}
	return cat, nil
}

// Delete removes the category and returns it. Its projects are kept
// without a category.
func (c *Categories) Delete(ctx context.Context, userID, id string) (model.Category, error) {
	cat, err := findCategory(ctx, c.store, userID, id)
	if err != nil {
		return model.Category{}, err
	}
	if err := c.store.DeleteCategory(ctx, userID, id); err != nil {
		return model.Category{}, err
	}
	return cat, nil
}

func findCategory(ctx context.Context, store storage.Store, userID, id string) (model.Category, error) {
	cats, err := store.ListCategories(ctx, userID)
	if err != nil {
		return model.Category{}, err
	}
	for _, c := range cats {
		if c.ID == id {
			return c.Category, nil
		}
	}
	return model.Category{}, fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
}
