package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// ConfigError reports a provider that cannot be initialized.
type ConfigError struct {
	Provider string
	Field    string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("llm config (%s): %s: %s", e.Provider, e.Field, e.Reason)
}

// BackendError wraps a failed completion call.
type BackendError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s completion failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries a retryable backend failure.
func IsRetryable(err error) bool {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Retryable
	}
	return false
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500
}

// retryableTransport reports whether an error without a status code came
// from the network. Anything else, such as an empty or unparsable response,
// is final.
func retryableTransport(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
