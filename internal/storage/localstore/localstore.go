// Package localstore keeps todos in a single JSON document on local disk, the
// process-local counterpart of browser local storage.
//
// The whole collection is rewritten on every mutation. An empty path keeps the
// collection in memory only.
package localstore

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"gin-gonic-todos/internal/todo"
)

//go:embed todos.schema.json
var schemaJSON []byte

const schemaURL = "todos.schema.json"

type document struct {
	Todos []todo.Todo `json:"todos"`
}

type Store struct {
	mu    sync.RWMutex
	path  string
	todos []todo.Todo
	now   func() time.Time
}

var _ todo.Repository = (*Store)(nil)

// Open loads the document at path, creating nothing until the first write.
// A missing file is an empty collection.
func Open(path string) (*Store, error) {
	s := &Store{path: path, todos: []todo.Todo{}, now: todo.Now}
	if path == "" {
		return s, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return s, nil
	}

	if err := validate(b); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if doc.Todos != nil {
		s.todos = doc.Todos
	}
	return s, nil
}

// Path returns the backing file, empty for a memory-only store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) GetAll(ctx context.Context) ([]todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.todos), nil
}

func (s *Store) GetByID(ctx context.Context, id string) (todo.Todo, bool, error) {
	if err := ctx.Err(); err != nil {
		return todo.Todo{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.index(id); i >= 0 {
		return s.todos[i], true, nil
	}
	return todo.Todo{}, false, nil
}

func (s *Store) Create(ctx context.Context, title string) (todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return todo.Todo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	created := todo.New(title, s.now())
	next := append(slices.Clone(s.todos), created)
	if err := s.commit(next); err != nil {
		return todo.Todo{}, err
	}
	return created, nil
}

func (s *Store) Update(ctx context.Context, id string, patch todo.Patch) (todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return todo.Todo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return todo.Todo{}, todo.ErrNotFound
	}

	updated := patch.Apply(s.todos[i])
	updated.UpdatedAt = todo.Touch(s.todos[i].UpdatedAt, s.now())

	next := slices.Clone(s.todos)
	next[i] = updated
	if err := s.commit(next); err != nil {
		return todo.Todo{}, err
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil
	}
	next := slices.Delete(slices.Clone(s.todos), i, i+1)
	return s.commit(next)
}

// Ping reports whether the backing directory is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.path == "" {
		return ctx.Err()
	}
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("stat dir: %w", err)
	}
	return ctx.Err()
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.todos, func(t todo.Todo) bool { return t.ID == id })
}

// commit persists next and only then makes it the live collection.
// Callers hold s.mu.
func (s *Store) commit(next []todo.Todo) error {
	if s.path != "" {
		if err := save(s.path, next); err != nil {
			return err
		}
	}
	s.todos = next
	return nil
}

func save(path string, todos []todo.Todo) error {
	b, err := json.MarshalIndent(document{Todos: todos}, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func validate(b []byte) error {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var obj interface{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	if err := schema.Validate(obj); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	return nil
}
