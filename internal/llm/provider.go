// Package llm turns cleaned disclosure text into short factual summaries
// using hosted language models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Request is a single completion call.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Provider is a hosted model that completes a Request. Implementations
// return *StatusError when the service answered with a non-success status.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError reports a non-success response from a provider.
type StatusError struct {
	Provider string
	Code     int
	Err      error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("llm: %s: status %d", e.Provider, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatus returns the response status.
func (e *StatusError) HTTPStatus() int { return e.Code }

// IsRateLimited reports whether err is a 429 from a provider.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}
