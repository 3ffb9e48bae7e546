package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"gin-gonic-todos/internal/api"
	"gin-gonic-todos/internal/storage/localstore"
	"gin-gonic-todos/internal/todo"
	"gin-gonic-todos/internal/todo/todotest"
	"gin-gonic-todos/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, basePath string) *httptest.Server {
	t.Helper()

	repo, err := localstore.Open("")
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(api.NewRouter(usecase.New(repo), log.New(io.Discard), api.RouterOptions{BasePath: basePath}))
	t.Cleanup(srv.Close)
	return srv
}

func TestContract(t *testing.T) {
	todotest.RunContract(t, func(t *testing.T) todo.Repository {
		return New(newServer(t, "/api").URL + "/api/")
	})
}

func TestStatusErrorMatching(t *testing.T) {
	ctx := context.Background()
	client := New(newServer(t, "").URL)

	_, err := client.Update(ctx, "missing", todo.SetCompleted(true))
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("Update: got %v, want 404 StatusError", err)
	}
	if !errors.Is(err, todo.ErrNotFound) {
		t.Errorf("Update: %v does not match ErrNotFound", err)
	}
	if se.Message != todo.ErrNotFound.Error() {
		t.Errorf("Message: got %q, want envelope message", se.Message)
	}

	_, err = client.Create(ctx, "   ")
	if !errors.Is(err, todo.ErrInvalid) {
		t.Errorf("Create: got %v, want ErrInvalid", err)
	}
}

func TestServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"Internal Server Error"}}`)
	}))
	defer srv.Close()

	client := New(srv.URL)
	ctx := context.Background()

	if _, err := client.GetAll(ctx); err == nil {
		t.Fatal("GetAll: want error")
	}
	_, ok, err := client.GetByID(ctx, "x")
	if err == nil || ok {
		t.Fatalf("GetByID: got ok=%v err=%v, want error", ok, err)
	}
	if err := client.Delete(ctx, "x"); err == nil {
		t.Fatal("Delete: want error")
	}

	var se *StatusError
	if !errors.As(err, &se) || se.Message != "Internal Server Error" {
		t.Fatalf("GetByID: got %v", err)
	}
	if errors.Is(err, todo.ErrNotFound) {
		t.Error("500 matched ErrNotFound")
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := New(srv.URL, WithTimeout(50*time.Millisecond))
	if _, err := client.GetAll(context.Background()); err == nil {
		t.Fatal("GetAll: want timeout error")
	}
}

func TestPing(t *testing.T) {
	if err := New(newServer(t, "").URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestPathEscaping(t *testing.T) {
	ctx := context.Background()
	client := New(newServer(t, "").URL)

	_, ok, err := client.GetByID(ctx, "a/b?c")
	if err != nil || ok {
		t.Fatalf("GetByID: got ok=%v err=%v, want absent", ok, err)
	}
}

func TestWrongBasePath(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t, "/api")
	client := New(srv.URL + "/v2")

	if err := client.Delete(ctx, "some-id"); err == nil {
		t.Error("Delete: want error for a route miss")
	}

	_, ok, err := client.GetByID(ctx, "some-id")
	if err == nil || ok {
		t.Errorf("GetByID: got ok=%v err=%v, want error", ok, err)
	}

	_, err = client.Update(ctx, "some-id", todo.SetCompleted(true))
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("Update: got %v, want 404 StatusError", err)
	}
	if errors.Is(err, todo.ErrNotFound) {
		t.Errorf("Update: route miss %v matched ErrNotFound", err)
	}
}

func TestEmptyID(t *testing.T) {
	ctx := context.Background()
	client := New(newServer(t, "").URL)

	if _, ok, err := client.GetByID(ctx, ""); err != nil || ok {
		t.Errorf("GetByID: got ok=%v err=%v, want absent", ok, err)
	}
	if _, err := client.Update(ctx, "", todo.SetCompleted(true)); !errors.Is(err, todo.ErrNotFound) {
		t.Errorf("Update: got %v, want ErrNotFound", err)
	}
	if err := client.Delete(ctx, ""); err != nil {
		t.Errorf("Delete: %v", err)
	}
}
