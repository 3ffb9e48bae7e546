// Package api serves the todo REST surface with gin.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"gin-gonic-todos/internal/todo"
)

// UseCases is what the handlers need from the use-case layer.
type UseCases interface {
	List(ctx context.Context) ([]todo.Todo, error)
	Get(ctx context.Context, id string) (todo.Todo, bool, error)
	Create(ctx context.Context, title string) (todo.Todo, error)
	Update(ctx context.Context, id string, patch todo.Patch) (todo.Todo, error)
	ToggleCompletion(ctx context.Context, id string) (todo.Todo, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type ErrorDetail struct {
	Message string `json:"message"`
}

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type CreateTodoRequest struct {
	Title string `json:"title" binding:"required"`
}

type Handler struct {
	uc     UseCases
	logger *log.Logger
}

func NewHandler(uc UseCases, logger *log.Logger) *Handler {
	return &Handler{uc: uc, logger: logger}
}

// Register mounts the todo routes on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", h.Health)
	rg.GET("/todos", h.GetTodos)
	rg.POST("/todos", h.PostTodo)
	rg.GET("/todos/:id", h.GetTodo)
	rg.PUT("/todos/:id", h.PutTodo)
	rg.DELETE("/todos/:id", h.DeleteTodo)
	rg.POST("/todos/:id/toggle", h.ToggleTodo)
}

func (h *Handler) GetTodos(c *gin.Context) {
	todos, err := h.uc.List(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (h *Handler) GetTodo(c *gin.Context) {
	t, ok, err := h.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	if !ok {
		h.abort(c, todo.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) PostTodo(c *gin.Context) {
	var input CreateTodoRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.abort(c, bindError(err))
		return
	}

	created, err := h.uc.Create(c.Request.Context(), input.Title)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) PutTodo(c *gin.Context) {
	var patch todo.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.abort(c, bindError(err))
		return
	}

	updated, err := h.uc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteTodo answers 204 whether or not the id existed.
func (h *Handler) DeleteTodo(c *gin.Context) {
	if err := h.uc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ToggleTodo(c *gin.Context) {
	updated, err := h.uc.ToggleCompletion(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.uc.Ping(c.Request.Context()); err != nil {
		h.abortStatus(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindError reports a rejected request body as a ValidationError naming the
// JSON field, so Go struct names never reach the client.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &todo.ValidationError{Field: strings.ToLower(verrs[0].Field()), Reason: verrs[0].Tag()}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &todo.ValidationError{Field: typeErr.Field, Reason: "must be a " + typeErr.Type.String()}
	}
	return &todo.ValidationError{Field: "body", Reason: "malformed JSON"}
}

// abort maps domain errors onto statuses.
func (h *Handler) abort(c *gin.Context, err error) {
	switch {
	case errors.Is(err, todo.ErrNotFound):
		h.abortStatus(c, http.StatusNotFound, err)
	case errors.Is(err, todo.ErrInvalid):
		h.abortStatus(c, http.StatusBadRequest, err)
	default:
		h.abortStatus(c, http.StatusInternalServerError, err)
	}
}

// abortStatus writes the error envelope. Server-side failures are logged
// and replaced by a generic message.
func (h *Handler) abortStatus(c *gin.Context, status int, err error) {
	c.Error(err)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorDetail{Message: msg}})
}
