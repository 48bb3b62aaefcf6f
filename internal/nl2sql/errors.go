package nl2sql

import (
	"errors"
	"fmt"

	"github.com/sqlscribe/sqlscribe/internal/llm"
)

var ErrEmptyResult = errors.New("model returned no sql")

type Kind string

const (
	KindBackend     Kind = "backend"
	KindEmptyResult Kind = "empty_result"
)

type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate sql (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the underlying backend failure may succeed on a
// later attempt. Empty results are never retryable.
func (e *GenerationError) Retryable() bool {
	return e.Kind == KindBackend && llm.IsRetryable(e.Err)
}
