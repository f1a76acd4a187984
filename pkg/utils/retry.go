package utils

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping delay between failures and
// doubling it each time. The last error is returned if every attempt fails.
// Context cancellation cuts the wait short.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
