package assessment

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss is returned by a Cache when no entry exists for a key.
	ErrCacheMiss = errors.New("cache miss")

	ErrEmptyInput       = errors.New("input is empty")
	ErrInputTooLong     = errors.New("input is too long")
	ErrMultipleEntities = errors.New("input names more than one product; assess them separately or use compare")
)

// Stage names a pipeline step.
type Stage string

const (
	StageInput    Stage = "input"
	StageResolve  Stage = "resolve"
	StageClassify Stage = "classify"
	StageSuggest  Stage = "suggest"
)

// StageError reports which pipeline stage failed. Stages after the failed one
// are not run and nothing is written to the cache.
type StageError struct {
	Stage Stage
	Input string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed for %q: %v", e.Stage, e.Input, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Timeout reports whether the stage ran out of time.
func (e *StageError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsInputError reports whether err was caused by unusable user input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInputTooLong) ||
		errors.Is(err, ErrMultipleEntities)
}
