package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/dialogflow/types"
)

// CallRecorder receives one record per external call.
type CallRecorder interface {
	RecordExternalCall(task, status string, duration time.Duration)
}

type taskContextKey struct{}

// WithTask annotates the context with the task name the call is made for
// (intent, entities, sentiment, generate). Metrics are recorded under it.
func WithTask(ctx context.Context, task string) context.Context {
	return context.WithValue(ctx, taskContextKey{}, task)
}

func taskFromContext(ctx context.Context) string {
	if task, ok := ctx.Value(taskContextKey{}).(string); ok && task != "" {
		return task
	}
	return "complete"
}

// WithMetrics records every call's task, outcome and latency. Failures are
// labeled with their lowercased error code.
func WithMetrics(recorder CallRecorder) Middleware {
	return func(next Client) Client {
		return ClientFunc(func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			out, err := next.Complete(ctx, prompt)
			status := "ok"
			if err != nil {
				status = strings.ToLower(string(types.GetErrorCode(classify(err))))
			}
			recorder.RecordExternalCall(taskFromContext(ctx), status, time.Since(start))
			return out, err
		})
	}
}

// WithRateLimit throttles Complete calls with a token bucket. When the
// limiter's wait is cut short by the context, the call fails with
// types.ErrRateLimited rather than ever reaching the upstream.
func WithRateLimit(limiter *rate.Limiter) Middleware {
	return func(next Client) Client {
		return ClientFunc(func(ctx context.Context, prompt string) (string, error) {
			if err := limiter.Wait(ctx); err != nil {
				return "", types.NewError(types.ErrRateLimited, "local rate limit exceeded").
					WithCause(err).WithRetryable(true)
			}
			return next.Complete(ctx, prompt)
		})
	}
}

// WithRetry retries retryable failures up to maxRetries times with a fixed
// delay between attempts. Non-retryable errors and context cancellation
// abort immediately.
func WithRetry(maxRetries int, delay time.Duration) Middleware {
	return func(next Client) Client {
		return ClientFunc(func(ctx context.Context, prompt string) (string, error) {
			var lastErr error
			for attempt := 0; attempt <= maxRetries; attempt++ {
				if attempt > 0 {
					select {
					case <-ctx.Done():
						return "", classify(ctx.Err())
					case <-time.After(delay):
					}
				}
				out, err := next.Complete(ctx, prompt)
				if err == nil {
					return out, nil
				}
				lastErr = err
				if !types.IsRetryable(classify(err)) {
					break
				}
			}
			return "", classify(lastErr)
		})
	}
}

// WithLogging logs each call's outcome and latency at debug/warn level.
func WithLogging(logger *zap.Logger) Middleware {
	log := logger.With(zap.String("component", "llm"))
	return func(next Client) Client {
		return ClientFunc(func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			out, err := next.Complete(ctx, prompt)
			if err != nil {
				log.Warn("completion failed",
					zap.Duration("duration", time.Since(start)),
					zap.String("code", string(types.GetErrorCode(err))),
					zap.Error(err))
				return "", err
			}
			log.Debug("completion ok",
				zap.Duration("duration", time.Since(start)),
				zap.Int("prompt_len", len(prompt)),
				zap.Int("reply_len", len(out)))
			return out, nil
		})
	}
}
