package utils

import (
	"context"
	"strings"
	"time"
)

var sleep = time.Sleep

func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Backoff returns multiplier * 2^(attempt-1) clamped to [min, max].
// attempt starts at 1.
func Backoff(attempt int, multiplier, min, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := multiplier
	for i := 1; i < attempt && wait < max; i++ {
		wait *= 2
	}
	if wait < min {
		wait = min
	}
	if wait > max {
		wait = max
	}
	return wait
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// NormalizeSpace collapses runs of whitespace into single spaces.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
