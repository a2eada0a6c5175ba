package ai

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrEmptyResponse indicates the provider answered without any choices.
var ErrEmptyResponse = errors.New("ai returned no content")

// ErrModelShape is matched by every ShapeError via errors.Is.
var ErrModelShape = errors.New("malformed model output")

// ShapeError reports model output that does not match the requested schema.
type ShapeError struct {
	Schema   string
	Path     string
	Expected string
	Got      string
}

func (e *ShapeError) Error() string {
	path := e.Path
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("%s: %s output at %s: expected %s, got %s", ErrModelShape, e.Schema, path, e.Expected, e.Got)
}

func (e *ShapeError) Is(target error) bool { return target == ErrModelShape }
