package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestEvery_RunsUntilCancelled(t *testing.T) {
	s := New(nil)
	s.Start()
	defer s.Stop()

	var runs atomic.Int32
	if err := s.Every("entry-1", 20*time.Millisecond, func() { runs.Add(1) }); err != nil {
		t.Fatalf("Every: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if runs.Load() < 2 {
		t.Fatalf("job ran %d times, want at least 2", runs.Load())
	}

	if err := s.Cancel("entry-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after cancel, want 0", s.Len())
	}

	// Allow a run that was already in flight to finish.
	time.Sleep(30 * time.Millisecond)
	after := runs.Load()
	time.Sleep(100 * time.Millisecond)
	if runs.Load() != after {
		t.Errorf("job kept running after cancel: %d -> %d", after, runs.Load())
	}
}

func TestEvery_WaitsForFirstInterval(t *testing.T) {
	s := New(nil)
	s.Start()
	defer s.Stop()

	var runs atomic.Int32
	if err := s.Every("entry-1", time.Hour, func() { runs.Add(1) }); err != nil {
		t.Fatalf("Every: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("job ran %d times before its first interval", runs.Load())
	}
}

func TestEvery_RejectsDuplicateTag(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	if err := s.Every("entry-1", time.Hour, func() {}); err != nil {
		t.Fatalf("Every: %v", err)
	}
	if err := s.Every("entry-1", time.Hour, func() {}); err == nil {
		t.Error("duplicate tag accepted")
	}
}

func TestEvery_RejectsNonPositiveInterval(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	if err := s.Every("entry-1", 0, func() {}); err == nil {
		t.Error("zero interval accepted")
	}
}

func TestCancel_UnknownTag(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	if err := s.Cancel("missing"); err == nil {
		t.Error("Cancel of unknown tag succeeded")
	}
}
