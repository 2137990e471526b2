package raid

import "time"

// State is the authoritative record of one boss fight. It holds no locking
// of its own; the owning Room serializes all access.
type State struct {
	Active       bool
	StartTime    time.Time
	Participants []string
	BossHP       int
	MaxBossHP    int
}

// Snapshot is the wire form of State. StartTime is epoch milliseconds,
// omitted while the raid has never started.
type Snapshot struct {
	Active       bool     `json:"active"`
	StartTime    int64    `json:"startTime,omitempty"`
	Participants []string `json:"participants"`
	BossHP       int      `json:"bossHP"`
	MaxBossHP    int      `json:"maxBossHP"`
}

// Snapshot returns the wire form of the current state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Active:       s.Active,
		Participants: append([]string{}, s.Participants...),
		BossHP:       s.BossHP,
		MaxBossHP:    s.MaxBossHP,
	}
	if !s.StartTime.IsZero() {
		snap.StartTime = s.StartTime.UnixMilli()
	}
	return snap
}

// Start resets the fight. Calling Start while already active restarts it;
// there is deliberately no guard, a restart is the product behavior.
// connected becomes the participant roster, first occurrence wins when the
// same display name is connected twice.
func (s *State) Start(bossHP int, connected []string, now time.Time) {
	participants := make([]string, 0, len(connected))
	seen := make(map[string]struct{}, len(connected))
	for _, name := range connected {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		participants = append(participants, name)
	}

	s.Active = true
	s.StartTime = now
	s.Participants = participants
	s.BossHP = bossHP
	s.MaxBossHP = bossHP
}

// AddParticipant appends a display name to the roster, only while active
// and only if not already listed. Reports whether the roster changed.
func (s *State) AddParticipant(name string) bool {
	if !s.Active {
		return false
	}
	for _, p := range s.Participants {
		if p == name {
			return false
		}
	}
	s.Participants = append(s.Participants, name)
	return true
}

// RemoveParticipant drops a display name from the roster if present.
func (s *State) RemoveParticipant(name string) {
	for i, p := range s.Participants {
		if p == name {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			return
		}
	}
}

// ApplyDamage subtracts amount from the boss HP, clamped at zero. The
// caller must have checked Active. defeated reports that HP reached zero
// on this application.
func (s *State) ApplyDamage(amount int) (remaining int, percentage float64, defeated bool) {
	s.BossHP -= amount
	if s.BossHP < 0 {
		s.BossHP = 0
	}
	if s.MaxBossHP > 0 {
		percentage = float64(s.BossHP) / float64(s.MaxBossHP) * 100
	}
	return s.BossHP, percentage, s.BossHP == 0
}

// End deactivates the fight and returns its elapsed duration, zero if the
// raid never started. Safe to call in any state.
func (s *State) End(now time.Time) time.Duration {
	s.Active = false
	if s.StartTime.IsZero() {
		return 0
	}
	return now.Sub(s.StartTime)
}
