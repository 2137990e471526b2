package raid

import (
	"testing"
	"time"
)

func TestState_StartResetsFight(t *testing.T) {
	var s State
	now := time.Now()

	s.Start(500, []string{"Alice", "Bob"}, now)

	if !s.Active {
		t.Fatal("Expected raid to be active after start")
	}
	if s.BossHP != 500 || s.MaxBossHP != 500 {
		t.Errorf("Expected BossHP and MaxBossHP 500, got %d/%d", s.BossHP, s.MaxBossHP)
	}
	if len(s.Participants) != 2 {
		t.Errorf("Expected 2 participants, got %d", len(s.Participants))
	}
	if !s.StartTime.Equal(now) {
		t.Errorf("Expected StartTime %v, got %v", now, s.StartTime)
	}
}

func TestState_StartDeduplicatesRoster(t *testing.T) {
	var s State
	s.Start(100, []string{"Bob", "Alice", "Bob"}, time.Now())

	if len(s.Participants) != 2 {
		t.Fatalf("Expected 2 participants, got %v", s.Participants)
	}
	if s.Participants[0] != "Bob" || s.Participants[1] != "Alice" {
		t.Errorf("Expected [Bob Alice], got %v", s.Participants)
	}
}

func TestState_RestartWhileActive(t *testing.T) {
	var s State
	s.Start(100, []string{"Alice"}, time.Now())
	s.ApplyDamage(40)

	s.Start(200, []string{"Bob"}, time.Now())

	if s.BossHP != 200 || s.MaxBossHP != 200 {
		t.Errorf("Expected fresh fight with 200 HP, got %d/%d", s.BossHP, s.MaxBossHP)
	}
	if len(s.Participants) != 1 || s.Participants[0] != "Bob" {
		t.Errorf("Expected roster [Bob], got %v", s.Participants)
	}
}

func TestState_AddParticipant(t *testing.T) {
	var s State

	if s.AddParticipant("Alice") {
		t.Error("Expected no roster change while inactive")
	}

	s.Start(100, nil, time.Now())
	if !s.AddParticipant("Alice") {
		t.Error("Expected Alice to be added")
	}
	if s.AddParticipant("Alice") {
		t.Error("Expected duplicate Alice to be rejected")
	}
	if len(s.Participants) != 1 {
		t.Errorf("Expected 1 participant, got %d", len(s.Participants))
	}
}

func TestState_RemoveParticipant(t *testing.T) {
	var s State
	s.Start(100, []string{"Alice", "Bob"}, time.Now())

	s.RemoveParticipant("Alice")
	if len(s.Participants) != 1 || s.Participants[0] != "Bob" {
		t.Errorf("Expected roster [Bob], got %v", s.Participants)
	}

	s.RemoveParticipant("Carol")
	if len(s.Participants) != 1 {
		t.Errorf("Expected removal of unknown name to be a no-op, got %v", s.Participants)
	}
}

func TestState_ApplyDamage(t *testing.T) {
	var s State
	s.Start(100, nil, time.Now())

	remaining, percentage, defeated := s.ApplyDamage(40)
	if remaining != 60 {
		t.Errorf("Expected 60 HP remaining, got %d", remaining)
	}
	if percentage != 60 {
		t.Errorf("Expected 60 percent, got %f", percentage)
	}
	if defeated {
		t.Error("Expected boss to survive")
	}

	remaining, percentage, defeated = s.ApplyDamage(70)
	if remaining != 0 {
		t.Errorf("Expected HP clamped at 0, got %d", remaining)
	}
	if percentage != 0 {
		t.Errorf("Expected 0 percent, got %f", percentage)
	}
	if !defeated {
		t.Error("Expected boss to be defeated")
	}
}

func TestState_ApplyDamageZeroMax(t *testing.T) {
	var s State
	s.Start(0, nil, time.Now())

	_, percentage, defeated := s.ApplyDamage(10)
	if percentage != 0 {
		t.Errorf("Expected 0 percent with zero max HP, got %f", percentage)
	}
	if !defeated {
		t.Error("Expected zero-HP boss to count as defeated")
	}
}

func TestState_End(t *testing.T) {
	var s State

	if d := s.End(time.Now()); d != 0 {
		t.Errorf("Expected zero duration for never-started raid, got %v", d)
	}

	start := time.Now()
	s.Start(100, nil, start)
	d := s.End(start.Add(3 * time.Second))
	if s.Active {
		t.Error("Expected raid to be inactive after end")
	}
	if d != 3*time.Second {
		t.Errorf("Expected 3s duration, got %v", d)
	}
}

func TestState_Snapshot(t *testing.T) {
	var s State

	snap := s.Snapshot()
	if snap.Active {
		t.Error("Expected inactive snapshot")
	}
	if snap.StartTime != 0 {
		t.Errorf("Expected zero start time before first raid, got %d", snap.StartTime)
	}
	if snap.Participants == nil {
		t.Error("Expected non-nil participants slice")
	}

	now := time.Now()
	s.Start(250, []string{"Alice"}, now)
	snap = s.Snapshot()
	if !snap.Active {
		t.Error("Expected active snapshot")
	}
	if snap.StartTime != now.UnixMilli() {
		t.Errorf("Expected start time %d, got %d", now.UnixMilli(), snap.StartTime)
	}
	if snap.BossHP != 250 || snap.MaxBossHP != 250 {
		t.Errorf("Expected 250/250 HP, got %d/%d", snap.BossHP, snap.MaxBossHP)
	}

	// The snapshot roster is a copy.
	snap.Participants[0] = "Mallory"
	if s.Participants[0] != "Alice" {
		t.Error("Expected snapshot mutation to leave state untouched")
	}
}
