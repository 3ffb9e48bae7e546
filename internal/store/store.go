// Package store caches the todo collection for a UI layer and keeps it in
// step with a backend through the use cases.
//
// The cache is never authoritative. Mutations are applied to it only after
// the backend confirms them, so there is no rollback path. Every action is a
// single attempt.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"gin-gonic-todos/internal/todo"
)

// Messages recorded when an action fails.
const (
	MsgFetchFailed  = "failed to fetch todos"
	MsgAddFailed    = "failed to add todo"
	MsgToggleFailed = "failed to toggle todo"
	MsgRemoveFailed = "failed to delete todo"
)

// ErrClosed is returned by actions on a closed store.
var ErrClosed = errors.New("store closed")

type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Actions is the slice of the use cases the store drives.
type Actions interface {
	List(ctx context.Context) ([]todo.Todo, error)
	Create(ctx context.Context, title string) (todo.Todo, error)
	ToggleCompletion(ctx context.Context, id string) (todo.Todo, error)
	Delete(ctx context.Context, id string) error
}

// Snapshot is a consistent copy of the store contents.
type Snapshot struct {
	Todos []todo.Todo
	State State
	Err   string
}

type Store struct {
	actions Actions
	timeout time.Duration
	logger  *log.Logger

	mu          sync.RWMutex
	todos       []todo.Todo
	state       State
	err         string
	closed      bool
	subscribers map[int]func(Snapshot)
	nextSub     int
}

type Option func(*Store)

// WithTimeout bounds each backend call made by an action.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

func New(actions Actions, opts ...Option) *Store {
	s := &Store{
		actions:     actions,
		todos:       []todo.Todo{},
		state:       StateEmpty,
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default().WithPrefix("store")
	}
	return s
}

// Todos returns a copy of the cached collection.
func (s *Store) Todos() []todo.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.todos)
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the message of the most recent failure, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called after every change. The returned func
// removes it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// FetchAll replaces the cache with the backend's collection. On failure the
// previous cache is kept and the store moves to StateError.
func (s *Store) FetchAll(ctx context.Context) error {
	if !s.update(func() { s.state = StateLoading }) {
		return ErrClosed
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	todos, err := s.actions.List(ctx)
	if err != nil {
		s.logger.Error(MsgFetchFailed, "err", err)
		s.update(func() {
			s.state = StateError
			s.err = MsgFetchFailed
		})
		return err
	}

	s.update(func() {
		s.todos = slices.Clone(todos)
		s.state = StateReady
		s.err = ""
	})
	return nil
}

// Add creates a todo and appends the stored record once the backend returns it.
func (s *Store) Add(ctx context.Context, title string) (todo.Todo, error) {
	if s.isClosed() {
		return todo.Todo{}, ErrClosed
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created, err := s.actions.Create(ctx, title)
	if err != nil {
		s.fail(MsgAddFailed, err)
		return todo.Todo{}, err
	}

	s.update(func() { s.todos = append(s.todos, created) })
	return created, nil
}

// Toggle flips completion on the backend and swaps in the confirmed record.
func (s *Store) Toggle(ctx context.Context, id string) (todo.Todo, error) {
	if s.isClosed() {
		return todo.Todo{}, ErrClosed
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updated, err := s.actions.ToggleCompletion(ctx, id)
	if err != nil {
		s.fail(MsgToggleFailed, err)
		return todo.Todo{}, err
	}

	s.update(func() {
		if i := indexOf(s.todos, id); i >= 0 {
			s.todos[i] = updated
		}
	})
	return updated, nil
}

// Remove deletes on the backend, then drops the record from the cache.
func (s *Store) Remove(ctx context.Context, id string) error {
	if s.isClosed() {
		return ErrClosed
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.actions.Delete(ctx, id); err != nil {
		s.fail(MsgRemoveFailed, err)
		return err
	}

	s.update(func() {
		s.todos = slices.DeleteFunc(s.todos, func(t todo.Todo) bool { return t.ID == id })
	})
	return nil
}

// Close drops the cache and subscribers. Later actions return ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.todos = []todo.Todo{}
	s.state = StateEmpty
	s.err = ""
	clear(s.subscribers)
}

func (s *Store) fail(msg string, err error) {
	s.logger.Error(msg, "err", err)
	s.update(func() { s.err = msg })
}

// update applies fn under the lock and notifies subscribers outside it.
// It reports false when the store is closed.
func (s *Store) update(fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	fn()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
	return true
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Todos: slices.Clone(s.todos), State: s.state, Err: s.err}
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func indexOf(todos []todo.Todo, id string) int {
	return slices.IndexFunc(todos, func(t todo.Todo) bool { return t.ID == id })
}
