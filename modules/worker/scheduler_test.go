package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
)

// fakePublisher records published triggers.
type fakePublisher struct {
	mu       sync.Mutex
	triggers []Trigger
}

func (f *fakePublisher) Publish(_ context.Context, trigger Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return nil
}

func (f *fakePublisher) byType(kind string) []Trigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Trigger
	for _, tr := range f.triggers {
		if tr.Type == kind {
			out = append(out, tr)
		}
	}
	return out
}

func setupTestScheduler(t *testing.T) (*Scheduler, *fakePublisher, *clan.Repository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&player.User{}, &clan.Clan{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	clans := clan.NewRepository(db)

	pub := &fakePublisher{}
	s := NewScheduler(DefaultSchedulerConfig(), pub)
	s.SetClanRepository(clans)
	return s, pub, clans
}

// sundayMidnight is a Sunday at 00:10 local time.
var sundayMidnight = time.Date(2026, time.September, 6, 0, 10, 0, 0, time.UTC)

func TestWeeklyRaidFiresPerClan(t *testing.T) {
	s, pub, clans := setupTestScheduler(t)
	ctx := context.Background()

	for _, name := range []string{"Tigers", "Lions"} {
		if err := clans.Create(ctx, &clan.Clan{Name: name, InviteCode: "INV-" + name, SanityMeter: 100}); err != nil {
			t.Fatalf("create clan: %v", err)
		}
	}

	s.now = func() time.Time { return sundayMidnight }
	s.tick(ctx)

	raids := pub.byType(TriggerWeeklyRaid)
	if len(raids) != 2 {
		t.Fatalf("got %d raid triggers, want 2", len(raids))
	}
	seen := map[string]bool{}
	for _, tr := range raids {
		seen[tr.ClanID] = true
		if tr.BossHP != s.config.RaidBossHP {
			t.Errorf("boss HP = %d, want %d", tr.BossHP, s.config.RaidBossHP)
		}
	}
	if !seen["1"] || !seen["2"] {
		t.Errorf("raid triggers cover clans %v, want 1 and 2", seen)
	}
}

func TestWeeklyRaidFiresOncePerDay(t *testing.T) {
	s, pub, clans := setupTestScheduler(t)
	ctx := context.Background()
	if err := clans.Create(ctx, &clan.Clan{Name: "Tigers", SanityMeter: 100}); err != nil {
		t.Fatalf("create clan: %v", err)
	}

	s.now = func() time.Time { return sundayMidnight }
	s.tick(ctx)
	s.tick(ctx)

	if raids := pub.byType(TriggerWeeklyRaid); len(raids) != 1 {
		t.Errorf("got %d raid triggers after two ticks, want 1", len(raids))
	}
}

func TestWeeklyRaidSkippedOnWeekdays(t *testing.T) {
	s, pub, clans := setupTestScheduler(t)
	ctx := context.Background()
	if err := clans.Create(ctx, &clan.Clan{Name: "Tigers", SanityMeter: 100}); err != nil {
		t.Fatalf("create clan: %v", err)
	}

	// A Tuesday at midnight: daily reset fires, weekly raid does not.
	s.now = func() time.Time {
		return time.Date(2026, time.September, 1, 0, 5, 0, 0, time.UTC)
	}
	s.tick(ctx)

	if raids := pub.byType(TriggerWeeklyRaid); len(raids) != 0 {
		t.Errorf("got %d raid triggers on a Tuesday, want 0", len(raids))
	}
	if resets := pub.byType(TriggerDailyReset); len(resets) != 1 {
		t.Errorf("got %d daily reset triggers, want 1", len(resets))
	}
}

func TestDailyResetFiresOncePerDay(t *testing.T) {
	s, pub, _ := setupTestScheduler(t)
	ctx := context.Background()

	now := time.Date(2026, time.September, 1, 0, 0, 30, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.tick(ctx)
	s.tick(ctx)

	if resets := pub.byType(TriggerDailyReset); len(resets) != 1 {
		t.Errorf("got %d daily reset triggers, want 1", len(resets))
	}

	// Next midnight fires again.
	now = now.Add(24 * time.Hour)
	s.tick(ctx)
	if resets := pub.byType(TriggerDailyReset); len(resets) != 2 {
		t.Errorf("got %d daily reset triggers after next midnight, want 2", len(resets))
	}
}

func TestSanityCheckInterval(t *testing.T) {
	s, pub, _ := setupTestScheduler(t)
	ctx := context.Background()

	base := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	s.tick(ctx)
	if checks := pub.byType(TriggerSanityCheck); len(checks) != 1 {
		t.Fatalf("got %d sanity checks, want 1", len(checks))
	}

	// Within the interval nothing fires.
	now = base.Add(time.Minute)
	s.tick(ctx)
	if checks := pub.byType(TriggerSanityCheck); len(checks) != 1 {
		t.Errorf("got %d sanity checks inside the interval, want 1", len(checks))
	}

	now = base.Add(s.config.SanityInterval)
	s.tick(ctx)
	if checks := pub.byType(TriggerSanityCheck); len(checks) != 2 {
		t.Errorf("got %d sanity checks after the interval, want 2", len(checks))
	}
}

func TestWeeklyRaidWithoutRepository(t *testing.T) {
	pub := &fakePublisher{}
	s := NewScheduler(DefaultSchedulerConfig(), pub)
	s.now = func() time.Time { return sundayMidnight }

	s.tick(context.Background())

	if raids := pub.byType(TriggerWeeklyRaid); len(raids) != 0 {
		t.Errorf("got %d raid triggers without a repository, want 0", len(raids))
	}
}
