package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForHonoursContext(t *testing.T) {
	originalSleep := sleep
	block := make(chan struct{})
	sleep = func(time.Duration) { <-block }
	defer func() {
		close(block)
		sleep = originalSleep
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestWaitForZeroDuration(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		expect  time.Duration
	}{
		{attempt: 0, expect: 4 * time.Second},
		{attempt: 1, expect: 4 * time.Second},
		{attempt: 2, expect: 4 * time.Second},
		{attempt: 3, expect: 8 * time.Second},
		{attempt: 4, expect: 10 * time.Second},
		{attempt: 10, expect: 10 * time.Second},
	}

	for _, tt := range tests {
		if got := Backoff(tt.attempt, 2*time.Second, 4*time.Second, 10*time.Second); got != tt.expect {
			t.Fatalf("attempt %d: expected %s, got %s", tt.attempt, tt.expect, got)
		}
	}
}

func TestNormalizeSpace(t *testing.T) {
	if got := NormalizeSpace("  a \n\t b  c "); got != "a b c" {
		t.Fatalf("unexpected %q", got)
	}
}
