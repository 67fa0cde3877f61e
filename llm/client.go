// Package llm defines the contract to the external text
// generation/classification/extraction service and middleware around it.
//
// The engine owns all prompt construction and response parsing; the service
// is a single request/response call that takes a prompt and returns free-form
// text. Callers must tolerate non-parseable or partial responses.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/dialogflow/types"
)

// Client is the single-call contract to the external text service.
type Client interface {
	// Complete sends one prompt and returns the raw text answer.
	// Failures are reported as *types.Error with a code the caller can
	// branch on (TIMEOUT, RATE_LIMITED, UPSTREAM_ERROR).
	Complete(ctx context.Context, prompt string) (string, error)
}

// ClientFunc adapts a plain function to the Client interface.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Middleware wraps a Client with additional behavior.
type Middleware func(next Client) Client

// Chain applies middlewares to a client, first middleware outermost.
func Chain(c Client, middlewares ...Middleware) Client {
	for i := len(middlewares) - 1; i >= 0; i-- {
		c = middlewares[i](c)
	}
	return c
}

// WithTimeout bounds every Complete call with a deadline and maps the
// resulting context error to types.ErrTimeout.
func WithTimeout(timeout time.Duration) Middleware {
	return func(next Client) Client {
		return ClientFunc(func(ctx context.Context, prompt string) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			out, err := next.Complete(ctx, prompt)
			if err != nil && errors.Is(err, context.DeadlineExceeded) {
				return "", types.NewError(types.ErrTimeout, "completion timed out").
					WithCause(err).WithRetryable(true)
			}
			return out, err
		})
	}
}

// classify maps a transport error to a structured error when the client
// implementation returned a plain one.
func classify(err error) *types.Error {
	var e *types.Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.ErrTimeout, "completion timed out").WithCause(err).WithRetryable(true)
	}
	return types.NewError(types.ErrUpstream, "completion failed").WithCause(err).WithRetryable(true)
}
