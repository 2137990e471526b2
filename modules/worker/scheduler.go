package worker

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
)

// SchedulerConfig controls when recurring triggers fire.
type SchedulerConfig struct {
	TickInterval   time.Duration
	SanityInterval time.Duration
	RaidBossHP     int
}

// DefaultSchedulerConfig returns the default schedule: weekly raids on
// Sunday midnight, daily battle reset at midnight, sanity checks every
// five minutes.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TickInterval:   30 * time.Second,
		SanityInterval: 5 * time.Minute,
		RaidBossHP:     1000,
	}
}

// Publisher puts triggers on the queue.
type Publisher interface {
	Publish(ctx context.Context, trigger Trigger) error
}

// Scheduler turns wall-clock time into queue triggers. Dates of the last
// weekly and daily firings are tracked so a trigger fires at most once
// per calendar day.
type Scheduler struct {
	config SchedulerConfig
	queue  Publisher
	now    func() time.Time

	mu    sync.RWMutex
	clans *clan.Repository

	lastWeekly string
	lastReset  string
	lastSanity time.Time
}

// NewScheduler creates a scheduler publishing to the given queue. The
// clan repository is wired later via SetClanRepository; weekly raids are
// skipped until it arrives.
func NewScheduler(cfg SchedulerConfig, queue Publisher) *Scheduler {
	return &Scheduler{
		config: cfg,
		queue:  queue,
		now:    time.Now,
	}
}

// SetClanRepository provides clan lookup for per-clan raid triggers.
func (s *Scheduler) SetClanRepository(clans *clan.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clans = clans
}

func (s *Scheduler) clanRepo() *clan.Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clans
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	log.Printf("[worker] scheduler started, tick every %v", s.config.TickInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[worker] scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	date := now.Format("2006-01-02")

	if now.Weekday() == time.Sunday && now.Hour() == 0 && s.lastWeekly != date {
		s.lastWeekly = date
		s.fireWeeklyRaids(ctx)
	}

	if now.Hour() == 0 && s.lastReset != date {
		s.lastReset = date
		s.fire(ctx, NewTrigger(TriggerDailyReset))
	}

	if now.Sub(s.lastSanity) >= s.config.SanityInterval {
		s.lastSanity = now
		s.fire(ctx, NewTrigger(TriggerSanityCheck))
	}
}

// fireWeeklyRaids publishes one raid trigger per clan so rooms start
// independently and one failed publish never blocks the rest.
func (s *Scheduler) fireWeeklyRaids(ctx context.Context) {
	clans := s.clanRepo()
	if clans == nil {
		log.Println("[worker] skipping weekly raids, clan repository not wired yet")
		return
	}

	ids, err := clans.IDs(ctx)
	if err != nil {
		log.Printf("[worker] clan lookup for weekly raids: %v", err)
		return
	}

	log.Printf("[worker] weekly raid trigger for %d clans", len(ids))
	for _, id := range ids {
		trigger := NewTrigger(TriggerWeeklyRaid)
		trigger.ClanID = strconv.FormatUint(uint64(id), 10)
		trigger.BossHP = s.config.RaidBossHP
		s.fire(ctx, trigger)
	}
}

func (s *Scheduler) fire(ctx context.Context, trigger Trigger) {
	if err := s.queue.Publish(ctx, trigger); err != nil {
		log.Printf("[worker] publish %s trigger: %v", trigger.Type, err)
	}
}
