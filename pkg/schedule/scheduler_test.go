package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"daily", "0 3 * * *", false},
		{"descriptor", "@hourly", false},
		{"every", "@every 1m", false},
		{"invalid", "invalid cron", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec, func(context.Context) error { return nil }, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	s, err := New("0 3 * * *", func(context.Context) error { return nil }, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.NextRun() != nil {
		t.Error("NextRun() before Start is not nil")
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start() succeeded")
	}

	next := s.NextRun()
	if next == nil {
		t.Fatal("NextRun() = nil")
	}
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("NextRun() = %v, want 03:00", next)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestRunOnStart(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(t.Context())

	s, err := New("0 3 * * *", func(context.Context) error {
		calls.Add(1)
		cancel()
		return errors.New("logged, not returned")
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, true) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Run returned")
	}
}

func TestScheduledTick(t *testing.T) {
	var calls atomic.Int32
	s, err := New("@every 1s", func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 1500*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx, false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := calls.Load(); got < 1 {
		t.Errorf("calls = %d, want at least 1", got)
	}
}
