package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Do runs fn up to attempts times, doubling the delay after each failure.
// It stops early when ctx is cancelled. On exhaustion the returned error
// carries every attempt's failure.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("retry: attempts must be at least 1, got %d", attempts)
	}

	var result *multierror.Error
	delay := baseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		result = multierror.Append(result, fmt.Errorf("attempt %d: %w", attempt, err))

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			result = multierror.Append(result, ctx.Err())
			return result.ErrorOrNil()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return result.ErrorOrNil()
}
