// Package usecase orchestrates repository calls for the API and the client
// store. Everything except ToggleCompletion is a direct delegation.
package usecase

import (
	"context"

	"gin-gonic-todos/internal/todo"
)

type TodoUseCases struct {
	repo todo.Repository
}

func New(repo todo.Repository) *TodoUseCases {
	return &TodoUseCases{repo: repo}
}

func (u *TodoUseCases) List(ctx context.Context) ([]todo.Todo, error) {
	return u.repo.GetAll(ctx)
}

// Get reports a missing id as ok == false.
func (u *TodoUseCases) Get(ctx context.Context, id string) (todo.Todo, bool, error) {
	return u.repo.GetByID(ctx, id)
}

func (u *TodoUseCases) Create(ctx context.Context, title string) (todo.Todo, error) {
	if err := todo.ValidateTitle(title); err != nil {
		return todo.Todo{}, err
	}
	return u.repo.Create(ctx, title)
}

func (u *TodoUseCases) Update(ctx context.Context, id string, patch todo.Patch) (todo.Todo, error) {
	if err := todo.ValidatePatch(patch); err != nil {
		return todo.Todo{}, err
	}
	return u.repo.Update(ctx, id, patch)
}

// ToggleCompletion inverts the completed flag of the stored record, not of
// any cached copy. Concurrent toggles race and the last write wins.
func (u *TodoUseCases) ToggleCompletion(ctx context.Context, id string) (todo.Todo, error) {
	current, ok, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return todo.Todo{}, err
	}
	if !ok {
		return todo.Todo{}, todo.ErrNotFound
	}
	return u.repo.Update(ctx, id, todo.SetCompleted(!current.Completed))
}

func (u *TodoUseCases) Delete(ctx context.Context, id string) error {
	return u.repo.Delete(ctx, id)
}

// Ping checks the backend when it supports health checks.
func (u *TodoUseCases) Ping(ctx context.Context) error {
	if p, ok := u.repo.(todo.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
