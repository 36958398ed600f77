package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSyncDefaults(t *testing.T) {
	config := SyncDefaults()
	if config.MaxRetries != 4 {
		t.Errorf("Expected MaxRetries=4, got %d", config.MaxRetries)
	}
	if config.Step != 30*time.Second {
		t.Errorf("Expected Step=30s, got %v", config.Step)
	}
}

func TestProbeDefaults(t *testing.T) {
	config := ProbeDefaults()
	if config.MaxRetries != 2 {
		t.Errorf("Expected MaxRetries=2, got %d", config.MaxRetries)
	}
	if config.Step != 5*time.Second {
		t.Errorf("Expected Step=5s, got %v", config.Step)
	}
}

func TestNewLinearSequence(t *testing.T) {
	backoff := NewLinear(30 * time.Second)

	expected := []time.Duration{
		30 * time.Second,
		60 * time.Second,
		90 * time.Second,
		120 * time.Second,
	}
	for i, want := range expected {
		got, stop := backoff.Next()
		if stop {
			t.Fatalf("Backoff stopped unexpectedly at step %d", i+1)
		}
		if got != want {
			t.Errorf("Step %d: expected delay %v, got %v", i+1, want, got)
		}
	}
}

func TestCreateBackoffBounded(t *testing.T) {
	config := &Config{MaxRetries: 3, Step: time.Second}
	backoff := config.CreateBackoff()

	for i := 0; i < 3; i++ {
		if _, stop := backoff.Next(); stop {
			t.Fatalf("Backoff stopped after %d steps, expected 3", i)
		}
	}
	if _, stop := backoff.Next(); !stop {
		t.Error("Backoff should stop after MaxRetries steps")
	}
}

func TestWithOperation_Success(t *testing.T) {
	config := &Config{MaxRetries: 3, Step: time.Millisecond}

	callCount := 0
	operation := func() error {
		callCount++
		return nil
	}

	err := WithOperation(context.Background(), config, operation, "test-operation")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected operation to be called once, got %d", callCount)
	}
}

func TestWithOperation_ExceedsMaxAttempts(t *testing.T) {
	config := &Config{MaxRetries: 3, Step: time.Millisecond}

	callCount := 0
	operation := func() error {
		callCount++
		return errors.New("persistent failure")
	}

	err := WithOperation(context.Background(), config, operation, "test-operation")
	if err == nil {
		t.Error("Expected error after exhausting retries")
	}
	if callCount != 4 {
		t.Errorf("Expected 4 attempts (1 + 3 retries), got %d", callCount)
	}
}

func TestWithOperation_RecoversAfterFailures(t *testing.T) {
	config := &Config{MaxRetries: 3, Step: time.Millisecond}

	callCount := 0
	operation := func() error {
		callCount++
		if callCount < 3 {
			return errors.New("transient failure")
		}
		return nil
	}

	err := WithOperation(context.Background(), config, operation, "test-operation")
	if err != nil {
		t.Errorf("Expected recovery, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 attempts, got %d", callCount)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	config := &Config{MaxRetries: 3, Step: time.Millisecond}
	terminal := errors.New("terminal failure")

	callCount := 0
	err := Do(context.Background(), config, func(ctx context.Context) error {
		callCount++
		return terminal
	})

	if !errors.Is(err, terminal) {
		t.Errorf("Expected terminal error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected a single attempt for a non-retryable error, got %d", callCount)
	}
}

func TestDo_CancelledContext(t *testing.T) {
	config := &Config{MaxRetries: 5, Step: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, config, func(ctx context.Context) error {
		callCount++
		return Retryable(errors.New("transient failure"))
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if callCount < 1 {
		t.Error("Expected at least one attempt before cancellation")
	}
}
