package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gin-gonic-todos/internal/store"
	"gin-gonic-todos/internal/todo"
)

// Run dispatches one subcommand and returns the process exit code:
// 0 on success, 1 when the backend fails, 2 on usage errors.
func Run(ctx context.Context, s *store.Store, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stderr)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		printHelp(stdout)
		return 0

	case "ls":
		return doList(ctx, s, stdout, stderr)

	case "show":
		if len(a) != 1 {
			fail(stderr, "usage: todoctl show <id|index>")
			return 2
		}
		return doShow(ctx, s, a[0], stdout, stderr)

	case "add":
		if len(a) == 0 {
			fail(stderr, "usage: todoctl add <title...>")
			return 2
		}
		return doAdd(ctx, s, strings.Join(a, " "), stdout, stderr)

	case "done":
		if len(a) != 1 {
			fail(stderr, "usage: todoctl done <id|index>")
			return 2
		}
		return doToggle(ctx, s, a[0], stdout, stderr)

	case "rm":
		if len(a) != 1 {
			fail(stderr, "usage: todoctl rm <id|index>")
			return 2
		}
		return doRemove(ctx, s, a[0], stdout, stderr)
	}

	fail(stderr, "unknown subcommand: "+cmd)
	fmt.Fprintln(stderr)
	printHelp(stderr)
	return 2
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `todoctl - manage todos on a running server

Usage:
  todoctl [-config file] [-api url] [-v] <subcommand> [args]

Subcommands:
  ls                 List todos
  show <id|index>    Show one todo
  add <title...>     Add a todo (title can be multiple words)
  done <id|index>    Toggle completion
  rm <id|index>      Delete a todo

An index is the 1-based position shown by ls.

Examples:
  todoctl add "Buy milk"
  todoctl ls
  todoctl done 2
  todoctl rm 3
`)
}

func doList(ctx context.Context, s *store.Store, stdout, stderr io.Writer) int {
	if err := s.FetchAll(ctx); err != nil {
		failStore(stderr, s, err)
		return 1
	}
	renderList(stdout, s.Todos())
	return 0
}

func doShow(ctx context.Context, s *store.Store, ref string, stdout, stderr io.Writer) int {
	t, code := resolve(ctx, s, ref, stderr)
	if code != 0 {
		return code
	}
	renderTodo(stdout, t)
	return 0
}

func doAdd(ctx context.Context, s *store.Store, title string, stdout, stderr io.Writer) int {
	created, err := s.Add(ctx, title)
	if err != nil {
		failStore(stderr, s, err)
		return 1
	}
	ok(stdout, fmt.Sprintf("added %q (%s)", created.Title, created.ID))
	return 0
}

func doToggle(ctx context.Context, s *store.Store, ref string, stdout, stderr io.Writer) int {
	t, code := resolve(ctx, s, ref, stderr)
	if code != 0 {
		return code
	}
	updated, err := s.Toggle(ctx, t.ID)
	if err != nil {
		failStore(stderr, s, err)
		return 1
	}
	if updated.Completed {
		ok(stdout, fmt.Sprintf("completed %q", updated.Title))
	} else {
		ok(stdout, fmt.Sprintf("reopened %q", updated.Title))
	}
	return 0
}

func doRemove(ctx context.Context, s *store.Store, ref string, stdout, stderr io.Writer) int {
	t, code := resolve(ctx, s, ref, stderr)
	if code != 0 {
		return code
	}
	if err := s.Remove(ctx, t.ID); err != nil {
		failStore(stderr, s, err)
		return 1
	}
	ok(stdout, fmt.Sprintf("removed %q", t.Title))
	return 0
}

// resolve fetches the collection and finds ref by id or by 1-based index.
func resolve(ctx context.Context, s *store.Store, ref string, stderr io.Writer) (todo.Todo, int) {
	if err := s.FetchAll(ctx); err != nil {
		failStore(stderr, s, err)
		return todo.Todo{}, 1
	}
	todos := s.Todos()

	for _, t := range todos {
		if t.ID == ref {
			return t, 0
		}
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(todos) {
			fail(stderr, fmt.Sprintf("index %d out of range (1-%d)", n, len(todos)))
			return todo.Todo{}, 2
		}
		return todos[n-1], 0
	}

	fail(stderr, "no todo with id "+ref)
	return todo.Todo{}, 1
}
