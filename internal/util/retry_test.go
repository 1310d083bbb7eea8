package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	result := Retry(context.Background(), nil, func() error {
		calls++
		return nil
	})

	if result.Attempts != 1 || calls != 1 {
		t.Errorf("expected a single attempt, got %d (calls %d)", result.Attempts, calls)
	}
	if result.LastError != nil {
		t.Errorf("expected no error, got %v", result.LastError)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	calls := 0
	result := Retry(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("header not found")
		}
		return nil
	})

	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if result.LastError != nil {
		t.Errorf("expected success, got %v", result.LastError)
	}
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	testErr := errors.New("persistent error")

	result := Retry(context.Background(), fastConfig(3), func() error {
		return testErr
	})

	// 1 initial + 3 retries
	if result.Attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", result.Attempts)
	}
	if !errors.Is(result.LastError, ErrMaxRetriesExceeded) {
		t.Error("expected ErrMaxRetriesExceeded in error chain")
	}
	if !errors.Is(result.LastError, testErr) {
		t.Error("expected original error in error chain")
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := &RetryConfig{MaxRetries: 100, BaseDelay: 100 * time.Millisecond}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := Retry(ctx, config, func() error {
		return errors.New("error")
	})

	if !errors.Is(result.LastError, ErrContextCanceled) {
		t.Error("expected ErrContextCanceled in error chain")
	}
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), fastConfig(5), func() error {
		calls++
		return MarkPermanent(errors.New("abi: cannot unmarshal"))
	})

	if calls != 1 {
		t.Errorf("expected 1 attempt for permanent error, got %d", calls)
	}
}

func TestRetry_ReadConfigSkipsDeterministicErrors(t *testing.T) {
	config := ReadRetryConfig()
	config.BaseDelay = time.Millisecond

	calls := 0
	_ = Retry(context.Background(), config, func() error {
		calls++
		return errors.New("execution reverted")
	})
	if calls != 1 {
		t.Errorf("reverted read must not be retried, got %d attempts", calls)
	}

	calls = 0
	_ = Retry(context.Background(), config, func() error {
		calls++
		if calls < 2 {
			return fmt.Errorf("dial: %w", syscall.ECONNREFUSED)
		}
		return nil
	})
	if calls != 2 {
		t.Errorf("expected refused connection to be retried once, got %d attempts", calls)
	}
}

func TestRetryWithValue(t *testing.T) {
	calls := 0
	value, result := RetryWithValue(context.Background(), fastConfig(3), func() (uint64, error) {
		calls++
		if calls < 2 {
			return 0, io.ErrUnexpectedEOF
		}
		return 77, nil
	})

	if value != 77 {
		t.Errorf("expected 77, got %d", value)
	}
	if result.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", result.Attempts)
	}

	value, result = RetryWithValue(context.Background(), fastConfig(1), func() (uint64, error) {
		return 5, errors.New("always fails")
	})
	if value != 0 {
		t.Errorf("expected zero value on failure, got %d", value)
	}
	if !errors.Is(result.LastError, ErrMaxRetriesExceeded) {
		t.Error("expected ErrMaxRetriesExceeded")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"refused", fmt.Errorf("post: %w", syscall.ECONNREFUSED), true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"lagging node", errors.New("header not found"), true},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"revert", errors.New("execution reverted"), false},
		{"permanent timeout", MarkPermanent(errors.New("timeout")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCalculateDelay(t *testing.T) {
	config := &RetryConfig{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   500 * time.Millisecond,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond}, // capped
	}

	for _, tt := range tests {
		if delay := calculateDelay(config, tt.attempt); delay != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, delay)
		}
	}
}

func TestCalculateDelay_WithJitter(t *testing.T) {
	config := &RetryConfig{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.5,
	}

	for i := 0; i < 100; i++ {
		delay := calculateDelay(config, 1)
		if delay < 50*time.Millisecond || delay > 150*time.Millisecond {
			t.Errorf("delay %v is outside expected jitter range", delay)
		}
	}
}

func TestMarkPermanent(t *testing.T) {
	if MarkPermanent(nil) != nil {
		t.Error("MarkPermanent(nil) should be nil")
	}

	err := errors.New("bad selector")
	permanent := MarkPermanent(err)
	if !IsPermanent(permanent) {
		t.Error("expected error to be permanent")
	}
	if !errors.Is(permanent, err) {
		t.Error("expected original error in chain")
	}
	if IsPermanent(err) {
		t.Error("unmarked error reported as permanent")
	}
}
