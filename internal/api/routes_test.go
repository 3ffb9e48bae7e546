package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"gin-gonic-todos/internal/storage/localstore"
	"gin-gonic-todos/internal/todo"
	"gin-gonic-todos/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, basePath string) http.Handler {
	t.Helper()

	repo, err := localstore.Open("")
	assertNoErr(t, err)
	return NewRouter(usecase.New(repo), log.New(io.Discard), RouterOptions{BasePath: basePath})
}

func serve(srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		buf := new(bytes.Buffer)
		json.NewEncoder(buf).Encode(b)
		reader = buf
	}

	request := httptest.NewRequest(method, path, reader)
	if reader != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	response := httptest.NewRecorder()
	srv.ServeHTTP(response, request)
	return response
}

func decode[T any](t testing.TB, response *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(response.Body).Decode(&v); err != nil {
		t.Fatalf("problem decoding response %q, %v", response.Body.String(), err)
	}
	return v
}

func createTodo(t *testing.T, srv http.Handler, title string) todo.Todo {
	t.Helper()

	response := serve(srv, http.MethodPost, "/todos", map[string]string{"title": title})
	assertStatus(t, response.Code, http.StatusCreated)
	return decode[todo.Todo](t, response)
}

func TestScenario(t *testing.T) {
	srv := newServer(t, "")

	created := createTodo(t, srv, "Buy milk")
	if created.Title != "Buy milk" || created.Completed || created.ID == "" {
		t.Fatalf("POST: got %+v", created)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("POST: createdAt %v != updatedAt %v", created.CreatedAt, created.UpdatedAt)
	}

	response := serve(srv, http.MethodPost, "/todos/"+created.ID+"/toggle", nil)
	assertStatus(t, response.Code, http.StatusOK)
	toggled := decode[todo.Todo](t, response)
	if !toggled.Completed || !toggled.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("toggle: got %+v", toggled)
	}

	response = serve(srv, http.MethodPut, "/todos/"+created.ID, map[string]bool{"completed": false})
	assertStatus(t, response.Code, http.StatusOK)
	if back := decode[todo.Todo](t, response); back.Completed || back.Title != "Buy milk" {
		t.Fatalf("PUT: got %+v", back)
	}

	response = serve(srv, http.MethodDelete, "/todos/"+created.ID, nil)
	assertStatus(t, response.Code, http.StatusNoContent)
	if response.Body.Len() != 0 {
		t.Errorf("DELETE: unexpected body %q", response.Body.String())
	}

	response = serve(srv, http.MethodGet, "/todos", nil)
	assertStatus(t, response.Code, http.StatusOK)
	if all := decode[[]todo.Todo](t, response); len(all) != 0 {
		t.Fatalf("GET: got %v, want empty", all)
	}

	response = serve(srv, http.MethodGet, "/todos/"+created.ID, nil)
	assertStatus(t, response.Code, http.StatusNotFound)
	assertErrMsg(t, response, todo.ErrNotFound.Error())
}

func TestGetTodosEmptyIsArray(t *testing.T) {
	response := serve(newServer(t, ""), http.MethodGet, "/todos", nil)

	assertStatus(t, response.Code, http.StatusOK)
	if got := strings.TrimSpace(response.Body.String()); got != "[]" {
		t.Fatalf("GET: got %s, want []", got)
	}
}

func TestPostInvalid(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"missing title", map[string]string{"titel": "typo"}, "invalid title: required"},
		{"empty title", map[string]string{"title": ""}, "invalid title: required"},
		{"blank title", map[string]string{"title": "   "}, "invalid title: must not be empty"},
		{"title of wrong type", `{"title":5}`, "invalid title: must be a string"},
		{"malformed json", `{"title":`, "invalid body: malformed JSON"},
		{"no body", nil, "invalid body: malformed JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, "")
			response := serve(srv, http.MethodPost, "/todos", tt.body)
			assertStatus(t, response.Code, http.StatusBadRequest)
			assertErrMsg(t, response, tt.want)
		})
	}
}

func TestPutMissing(t *testing.T) {
	response := serve(newServer(t, ""), http.MethodPut, "/todos/nope", map[string]bool{"completed": true})

	assertStatus(t, response.Code, http.StatusNotFound)
	assertErrMsg(t, response, todo.ErrNotFound.Error())
}

func TestPutPartial(t *testing.T) {
	srv := newServer(t, "")
	created := createTodo(t, srv, "original")

	response := serve(srv, http.MethodPut, "/todos/"+created.ID, map[string]string{"title": "renamed"})
	assertStatus(t, response.Code, http.StatusOK)
	if got := decode[todo.Todo](t, response); got.Title != "renamed" || got.Completed {
		t.Fatalf("PUT: got %+v", got)
	}

	response = serve(srv, http.MethodPut, "/todos/"+created.ID, map[string]string{"title": ""})
	assertStatus(t, response.Code, http.StatusBadRequest)

	response = serve(srv, http.MethodPut, "/todos/"+created.ID, `{"completed":"yes"}`)
	assertStatus(t, response.Code, http.StatusBadRequest)
	assertErrMsg(t, response, "invalid completed: must be a bool")
}

func TestToggleMissing(t *testing.T) {
	srv := newServer(t, "")

	response := serve(srv, http.MethodPost, "/todos/nope/toggle", nil)
	assertStatus(t, response.Code, http.StatusNotFound)

	response = serve(srv, http.MethodGet, "/todos", nil)
	if all := decode[[]todo.Todo](t, response); len(all) != 0 {
		t.Fatalf("toggle created a record: %v", all)
	}
}

func TestDeleteMissing(t *testing.T) {
	response := serve(newServer(t, ""), http.MethodDelete, "/todos/nope", nil)
	assertStatus(t, response.Code, http.StatusNoContent)
}

func TestBasePath(t *testing.T) {
	srv := newServer(t, "/api")

	response := serve(srv, http.MethodGet, "/api/todos", nil)
	assertStatus(t, response.Code, http.StatusOK)

	response = serve(srv, http.MethodGet, "/todos", nil)
	assertStatus(t, response.Code, http.StatusNotFound)
	assertErrMsg(t, response, "route not found")
}

func TestHealth(t *testing.T) {
	response := serve(newServer(t, ""), http.MethodGet, "/healthz", nil)
	assertStatus(t, response.Code, http.StatusOK)
}

// brokenUseCases fails every call with an infrastructure error.
type brokenUseCases struct{}

var errDown = errors.New("dial tcp: connection refused")

func (brokenUseCases) List(context.Context) ([]todo.Todo, error) { return nil, errDown }
func (brokenUseCases) Get(context.Context, string) (todo.Todo, bool, error) {
	return todo.Todo{}, false, errDown
}
func (brokenUseCases) Create(context.Context, string) (todo.Todo, error) { return todo.Todo{}, errDown }
func (brokenUseCases) Update(context.Context, string, todo.Patch) (todo.Todo, error) {
	return todo.Todo{}, errDown
}
func (brokenUseCases) ToggleCompletion(context.Context, string) (todo.Todo, error) {
	return todo.Todo{}, errDown
}
func (brokenUseCases) Delete(context.Context, string) error { return errDown }
func (brokenUseCases) Ping(context.Context) error             { return errDown }

func TestInfrastructureErrors(t *testing.T) {
	var logs bytes.Buffer
	srv := NewRouter(brokenUseCases{}, log.New(&logs), RouterOptions{})

	tests := []struct {
		method string
		path   string
		body   any
		want   int
	}{
		{http.MethodGet, "/todos", nil, http.StatusInternalServerError},
		{http.MethodGet, "/todos/x", nil, http.StatusInternalServerError},
		{http.MethodPost, "/todos", map[string]string{"title": "x"}, http.StatusInternalServerError},
		{http.MethodPut, "/todos/x", map[string]bool{"completed": true}, http.StatusInternalServerError},
		{http.MethodDelete, "/todos/x", nil, http.StatusInternalServerError},
		{http.MethodPost, "/todos/x/toggle", nil, http.StatusInternalServerError},
		{http.MethodGet, "/healthz", nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			response := serve(srv, tt.method, tt.path, tt.body)
			assertStatus(t, response.Code, tt.want)
			env := decode[ErrorResponse](t, response)
			if strings.Contains(env.Error.Message, "connection refused") {
				t.Errorf("internal error leaked to client: %q", env.Error.Message)
			}
		})
	}

	if !strings.Contains(logs.String(), "connection refused") {
		t.Error("infrastructure error was not logged")
	}
}

func assertStatus(t testing.TB, got, want int) {
	t.Helper()

	if got != want {
		t.Fatalf("Want %d but got %d", want, got)
	}
}

func assertErrMsg(t testing.TB, response *httptest.ResponseRecorder, want string) {
	t.Helper()

	env := decode[ErrorResponse](t, response)
	if env.Error.Message != want {
		t.Fatalf("Want %q, but got %q", want, env.Error.Message)
	}
}

func assertNoErr(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("didn't expect an error but got one, %v", err)
	}
}
