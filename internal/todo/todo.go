// Package todo holds the Todo entity and the storage contract every backend
// implements.
package todo

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Precision is the timestamp resolution shared by every backend.
const Precision = time.Microsecond

// MaxTitleLength is the widest title any backend accepts.
const MaxTitleLength = 191

type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil
}

// Apply returns t with the patch fields set. Timestamps are not touched.
func (p Patch) Apply(t Todo) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// SetCompleted is shorthand for a patch that only changes the completed flag.
func SetCompleted(completed bool) Patch {
	return Patch{Completed: &completed}
}

// SetTitle is shorthand for a patch that only changes the title.
func SetTitle(title string) Patch {
	return Patch{Title: &title}
}

// NewID returns a random UUIDv4 string.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current time in UTC at storage precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}

// Touch returns the next updatedAt for a record last written at prev.
// The result is never earlier than now and always later than prev.
func Touch(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(Precision)
	if next := prev.Add(Precision); !now.After(prev) {
		return next.UTC()
	}
	return now
}

// New builds a fresh record with both timestamps set to now.
func New(title string, now time.Time) Todo {
	now = now.UTC().Truncate(Precision)
	return Todo{
		ID:        NewID(),
		Title:     title,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateTitle rejects blank and oversized titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: "must be at most 191 characters"}
	}
	return nil
}

// ValidatePatch checks the fields a patch would set.
func ValidatePatch(p Patch) error {
	if p.Title != nil {
		return ValidateTitle(*p.Title)
	}
	return nil
}
