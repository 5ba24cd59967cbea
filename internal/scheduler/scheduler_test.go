package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// counter is a RunFunc that counts calls and tracks overlapping runs.
type counter struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
	sleep    time.Duration
	err      error
}

func (c *counter) run(ctx context.Context) error {
	c.calls.Add(1)
	if c.inFlight.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.inFlight.Add(-1)
	if c.sleep > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(c.sleep):
		}
	}
	return c.err
}

func runFor(t *testing.T, s *Scheduler, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	time.Sleep(d)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	if _, err := NewScheduler("every now and then", false, func(context.Context) error { return nil }, discardLogger()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestNext_StandardCron(t *testing.T) {
	s, err := NewScheduler("0 7 * * 1-5", false, nil, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Saturday 2026-03-07 10:00 UTC: next weekday 07:00 is Monday.
	from := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)
	if got := s.Next(from); !got.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", from, got, want)
	}
}

func TestRun_ImmediateRun(t *testing.T) {
	c := &counter{}
	s, err := NewScheduler("@every 1h", true, c.run, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runFor(t, s, 100*time.Millisecond)

	if got := c.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (immediate run only)", got)
	}
}

func TestRun_NoImmediateRun(t *testing.T) {
	c := &counter{}
	s, _ := NewScheduler("@every 1h", false, c.run, discardLogger())
	runFor(t, s, 100*time.Millisecond)

	if got := c.calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}

func TestRun_FiresRepeatedly(t *testing.T) {
	c := &counter{}
	s, _ := NewScheduler("@every 1s", false, c.run, discardLogger())
	runFor(t, s, 2500*time.Millisecond)

	if got := c.calls.Load(); got < 2 {
		t.Errorf("calls = %d, want >= 2", got)
	}
}

func TestRun_NeverOverlaps(t *testing.T) {
	c := &counter{sleep: 1500 * time.Millisecond}
	s, _ := NewScheduler("@every 1s", true, c.run, discardLogger())
	runFor(t, s, 3500*time.Millisecond)

	if c.overlap.Load() {
		t.Error("runs overlapped")
	}
	if got := c.calls.Load(); got < 2 {
		t.Errorf("calls = %d, want >= 2", got)
	}
}

func TestRun_ErrorDoesNotStopLoop(t *testing.T) {
	c := &counter{err: errors.New("storage down")}
	s, _ := NewScheduler("@every 1s", true, c.run, discardLogger())
	runFor(t, s, 1500*time.Millisecond)

	if got := c.calls.Load(); got < 2 {
		t.Errorf("calls = %d, want >= 2 despite errors", got)
	}
}
