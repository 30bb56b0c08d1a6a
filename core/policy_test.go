package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFailurePolicy_RetriesTransient(t *testing.T) {
	policy := NewFailurePolicy(3, time.Millisecond, 0, nil)
	calls := 0
	err := policy.Execute(context.Background(), "mirror", func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: audit endpoint down", ErrUnavailable)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestFailurePolicy_FailsFastOnValidation(t *testing.T) {
	policy := NewFailurePolicy(5, time.Millisecond, 0, nil)
	calls := 0
	err := policy.Execute(context.Background(), "rate", func() error {
		calls++
		return ErrRatingOutOfRange
	})
	if !errors.Is(err, ErrRatingOutOfRange) {
		t.Fatalf("expected rating error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("validation error retried %d times", calls)
	}
}

func TestFailurePolicy_ExhaustsBudget(t *testing.T) {
	policy := NewFailurePolicy(2, time.Millisecond, 0, nil)
	calls := 0
	err := policy.Execute(context.Background(), "balance", func() error {
		calls++
		return ErrUnavailable
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestFailurePolicy_RespectsContext(t *testing.T) {
	policy := NewFailurePolicy(10, 50*time.Millisecond, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := policy.Execute(ctx, "mirror", func() error { return ErrUnavailable })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestFailurePolicy_MessagePatternClassification(t *testing.T) {
	policy := NewFailurePolicy(1, 0, 0, nil)
	if !policy.Retryable(errors.New("dial tcp: connection refused")) {
		t.Fatal("connection refused should classify as transient")
	}
	if policy.Retryable(errors.New("malformed payload")) {
		t.Fatal("arbitrary errors should not classify as transient")
	}
}
