package todo

import "context"

// Repository is implemented identically by every storage backend.
//
// GetByID reports a missing id as ok == false with a nil error. Update fails
// with ErrNotFound for a missing id. Delete of a missing id is a no-op.
// Every Update refreshes UpdatedAt, see Touch.
type Repository interface {
	GetAll(ctx context.Context) ([]Todo, error)
	GetByID(ctx context.Context, id string) (Todo, bool, error)
	Create(ctx context.Context, title string) (Todo, error)
	Update(ctx context.Context, id string, patch Patch) (Todo, error)
	Delete(ctx context.Context, id string) error
}

// Pinger is implemented by backends that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}
