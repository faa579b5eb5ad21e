package retry

import (
	"context"
	"log"
	"time"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
)

// Policy bounds how often an operation is attempted
type Policy struct {
	Attempts int
	Backoff  time.Duration
	// Name is used in log lines
	Name string
}

// Do runs op until it succeeds, returns a permanent error, or the attempts are used up.
// Backoff is slept between attempts, never after the last one. The error of the final
// attempt is returned; a NotFound there means every attempt came back empty.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx, attempt)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if apperrors.IsPermanent(err) || ctx.Err() != nil {
			return zero, err
		}

		if attempt < attempts {
			log.Printf("[retry] %s attempt %d/%d failed: %v", p.Name, attempt, attempts, err)
			if err := sleep(ctx, p.Backoff); err != nil {
				return zero, err
			}
		}
	}

	return zero, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
