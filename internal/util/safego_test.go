package util

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/windingtree/wt-client/internal/logging"
)

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not finish in time")
	}
}

func TestSafeGoWithName_RunsAndSignals(t *testing.T) {
	executed := false
	done := SafeGoWithName("worker", func() {
		executed = true
	})

	waitDone(t, done)
	if !executed {
		t.Error("SafeGoWithName did not execute the function")
	}
}

func TestSafeGoWithName_RecoversPanic(t *testing.T) {
	original := logging.Logger()
	defer logging.SetLogger(original)

	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	done := SafeGoWithName("log-subscription", func() {
		panic("boom")
	})
	waitDone(t, done)

	output := buf.String()
	if !strings.Contains(output, "goroutine panic recovered") {
		t.Errorf("expected panic to be logged, got: %s", output)
	}
	if !strings.Contains(output, "log-subscription") {
		t.Errorf("expected goroutine name in log, got: %s", output)
	}
}

func TestSafeGoConcurrent(t *testing.T) {
	const numGoroutines = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	counter := 0

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		SafeGo(func() {
			defer wg.Done()
			mu.Lock()
			counter++
			mu.Unlock()
		})
	}
	wg.Wait()

	if counter != numGoroutines {
		t.Errorf("expected counter to be %d, got %d", numGoroutines, counter)
	}
}
