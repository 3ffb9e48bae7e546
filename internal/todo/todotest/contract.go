// Package todotest runs the repository contract against any backend.
package todotest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gin-gonic-todos/internal/todo"
)

// Factory returns an empty repository. It is called once per subtest.
type Factory func(t *testing.T) todo.Repository

// RunContract exercises the behaviour every todo.Repository must share.
func RunContract(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("create then get round-trips", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, "Buy milk")
		assertNoErr(t, err)

		if created.ID == "" {
			t.Fatal("Create: empty id")
		}
		if created.Title != "Buy milk" || created.Completed {
			t.Fatalf("Create: got %+v", created)
		}
		if !created.CreatedAt.Equal(created.UpdatedAt) {
			t.Fatalf("Create: createdAt %v != updatedAt %v", created.CreatedAt, created.UpdatedAt)
		}

		got, ok, err := repo.GetByID(ctx, created.ID)
		assertNoErr(t, err)
		if !ok {
			t.Fatalf("GetByID(%q): absent", created.ID)
		}
		assertSameTodo(t, got, created)
	})

	t.Run("get missing id is absent", func(t *testing.T) {
		repo := newRepo(t)

		_, ok, err := repo.GetByID(context.Background(), todo.NewID())
		assertNoErr(t, err)
		if ok {
			t.Fatal("GetByID: want absent for unknown id")
		}
	})

	t.Run("get all on empty store", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.GetAll(context.Background())
		assertNoErr(t, err)
		if got == nil || len(got) != 0 {
			t.Fatalf("GetAll: got %v, want empty non-nil slice", got)
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			created, err := repo.Create(ctx, fmt.Sprintf("item %d", i))
			assertNoErr(t, err)
			if seen[created.ID] {
				t.Fatalf("Create: duplicate id %q", created.ID)
			}
			seen[created.ID] = true
		}

		all, err := repo.GetAll(ctx)
		assertNoErr(t, err)
		if len(all) != 20 {
			t.Fatalf("GetAll: got %d todos, want 20", len(all))
		}
		for _, td := range all {
			if !seen[td.ID] {
				t.Fatalf("GetAll: unexpected id %q", td.ID)
			}
		}
	})

	t.Run("update is partial", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, "keep me")
		assertNoErr(t, err)

		updated, err := repo.Update(ctx, created.ID, todo.SetCompleted(true))
		assertNoErr(t, err)
		if updated.Title != "keep me" || !updated.Completed {
			t.Fatalf("Update: got %+v", updated)
		}
		if !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Fatalf("Update: createdAt changed from %v to %v", created.CreatedAt, updated.CreatedAt)
		}
		if !updated.UpdatedAt.After(created.UpdatedAt) {
			t.Fatalf("Update: updatedAt %v not after %v", updated.UpdatedAt, created.UpdatedAt)
		}

		renamed, err := repo.Update(ctx, created.ID, todo.SetTitle("renamed"))
		assertNoErr(t, err)
		if renamed.Title != "renamed" || !renamed.Completed {
			t.Fatalf("Update: got %+v", renamed)
		}

		got, _, err := repo.GetByID(ctx, created.ID)
		assertNoErr(t, err)
		assertSameTodo(t, got, renamed)
	})

	t.Run("update refreshes updatedAt strictly", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, "fast")
		assertNoErr(t, err)

		prev := created.UpdatedAt
		for i := 0; i < 5; i++ {
			updated, err := repo.Update(ctx, created.ID, todo.SetCompleted(i%2 == 0))
			assertNoErr(t, err)
			if !updated.UpdatedAt.After(prev) {
				t.Fatalf("Update %d: updatedAt %v not after %v", i, updated.UpdatedAt, prev)
			}
			prev = updated.UpdatedAt
		}
	})

	t.Run("update missing id is not found", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		_, err := repo.Update(ctx, todo.NewID(), todo.SetCompleted(true))
		if !errors.Is(err, todo.ErrNotFound) {
			t.Fatalf("Update: got %v, want ErrNotFound", err)
		}

		all, err := repo.GetAll(ctx)
		assertNoErr(t, err)
		if len(all) != 0 {
			t.Fatalf("Update: created a record for unknown id: %v", all)
		}
	})

	t.Run("delete is final", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		keep, err := repo.Create(ctx, "keep")
		assertNoErr(t, err)
		gone, err := repo.Create(ctx, "gone")
		assertNoErr(t, err)

		assertNoErr(t, repo.Delete(ctx, gone.ID))

		_, ok, err := repo.GetByID(ctx, gone.ID)
		assertNoErr(t, err)
		if ok {
			t.Fatal("GetByID: deleted todo still present")
		}

		all, err := repo.GetAll(ctx)
		assertNoErr(t, err)
		if len(all) != 1 || all[0].ID != keep.ID {
			t.Fatalf("GetAll: got %v, want only %q", all, keep.ID)
		}
	})

	t.Run("delete missing id is a no-op", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		assertNoErr(t, repo.Delete(ctx, todo.NewID()))

		created, err := repo.Create(ctx, "twice")
		assertNoErr(t, err)
		assertNoErr(t, repo.Delete(ctx, created.ID))
		assertNoErr(t, repo.Delete(ctx, created.ID))
	})

	t.Run("empty id is never found", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		_, err := repo.Create(ctx, "present")
		assertNoErr(t, err)

		_, ok, err := repo.GetByID(ctx, "")
		assertNoErr(t, err)
		if ok {
			t.Fatal("GetByID: want absent for empty id")
		}
		if _, err := repo.Update(ctx, "", todo.SetCompleted(true)); !errors.Is(err, todo.ErrNotFound) {
			t.Fatalf("Update: got %v, want ErrNotFound", err)
		}
		assertNoErr(t, repo.Delete(ctx, ""))
	})
}

func assertNoErr(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("didn't expect an error but got one, %v", err)
	}
}

// assertSameTodo compares timestamps with Equal so that location and
// monotonic clock readings do not matter.
func assertSameTodo(t testing.TB, got, want todo.Todo) {
	t.Helper()

	if got.ID != want.ID || got.Title != want.Title || got.Completed != want.Completed ||
		!got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("want %+v, but got %+v", want, got)
	}
}
