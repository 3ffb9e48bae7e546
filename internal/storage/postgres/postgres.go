// Package postgres stores todos in a single Postgres table through a shared
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gin-gonic-todos/internal/todo"
)

const Schema = `
CREATE TABLE IF NOT EXISTS todos (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	completed  BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL
)`

const columns = "id, title, completed, created_at, updated_at"

// Connect opens a pool and waits until it answers a ping, retrying with a
// linear back-off of 500ms per attempt.
func Connect(ctx context.Context, dsn string, attempts int) (*pgxpool.Pool, error) {
	tracer := otel.Tracer("postgres")
	if attempts < 1 {
		attempts = 1
	}

	ctx, span := tracer.Start(ctx, "Connect Postgres")
	defer span.End()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid dsn")
		return nil, fmt.Errorf("create pool: %w", err)
	}

	test := func(ctx context.Context, attempt int) error {
		ctx, span := tracer.Start(ctx, "Ping Postgres")
		defer span.End()
		span.SetAttributes(attribute.Int("attempt", attempt))
		if err := pool.Ping(ctx); err != nil {
			span.RecordError(err)
			return err
		}
		return nil
	}

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(time.Millisecond * 500 * time.Duration(i)):
		}

		if err = test(ctx, i+1); err == nil {
			return pool, nil
		}
	}

	pool.Close()
	span.RecordError(err)
	span.SetStatus(codes.Error, "unreachable")
	return nil, fmt.Errorf("ping after %d attempts: %w", attempts, err)
}

// EnsureSchema creates the todos table if it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create todos table: %w", err)
	}
	return nil
}

type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ todo.Repository = (*Repository)(nil)

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: todo.Now}
}

func (r *Repository) GetAll(ctx context.Context) ([]todo.Todo, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+columns+" FROM todos ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("select todos: %w", err)
	}
	todos, err := pgx.CollectRows(rows, pgx.RowToStructByPos[todo.Todo])
	if err != nil {
		return nil, fmt.Errorf("scan todos: %w", err)
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	for i := range todos {
		todos[i] = normalize(todos[i])
	}
	return todos, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (todo.Todo, bool, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+columns+" FROM todos WHERE id = $1", id)
	if err != nil {
		return todo.Todo{}, false, fmt.Errorf("select todo: %w", err)
	}
	t, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[todo.Todo])
	if errors.Is(err, pgx.ErrNoRows) {
		return todo.Todo{}, false, nil
	}
	if err != nil {
		return todo.Todo{}, false, fmt.Errorf("scan todo: %w", err)
	}
	return normalize(t), true, nil
}

func (r *Repository) Create(ctx context.Context, title string) (todo.Todo, error) {
	fresh := todo.New(title, r.now())

	rows, err := r.pool.Query(ctx,
		"INSERT INTO todos ("+columns+") VALUES ($1, $2, false, $3, $3) RETURNING "+columns,
		fresh.ID, fresh.Title, fresh.CreatedAt)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	t, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[todo.Todo])
	if err != nil {
		return todo.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return normalize(t), nil
}

// Update applies the patch in one statement. GREATEST keeps updated_at
// strictly increasing even when two writes share a clock reading.
func (r *Repository) Update(ctx context.Context, id string, patch todo.Patch) (todo.Todo, error) {
	rows, err := r.pool.Query(ctx, `
UPDATE todos SET
	title      = COALESCE($2, title),
	completed  = COALESCE($3, completed),
	updated_at = GREATEST($4::timestamptz, updated_at + interval '1 microsecond')
WHERE id = $1
RETURNING `+columns,
		id, patch.Title, patch.Completed, r.now())
	if err != nil {
		return todo.Todo{}, fmt.Errorf("update todo: %w", err)
	}
	t, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[todo.Todo])
	if errors.Is(err, pgx.ErrNoRows) {
		return todo.Todo{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.Todo{}, fmt.Errorf("update todo: %w", err)
	}
	return normalize(t), nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM todos WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// pgx hands timestamptz back in the local zone.
func normalize(t todo.Todo) todo.Todo {
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t
}
