package worker

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-monolith/mono"

	"github.com/aziyat1977/Synapse-IELTS-RPG/events"
)

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	NumWorkers     int
	MaxRetries     int
	BaseRetryDelay time.Duration
	MaxRetryDelay  time.Duration
	ProcessTimeout time.Duration

	SanityDecayAmount  float64
	LowSanityThreshold float64
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:         2,
		MaxRetries:         5,
		BaseRetryDelay:     time.Second,
		MaxRetryDelay:      time.Minute,
		ProcessTimeout:     time.Minute,
		SanityDecayAmount:  2.0,
		LowSanityThreshold: 30.0,
	}
}

// GameService is the slice of the clan service the workers need.
type GameService interface {
	ResetDailyBattles(ctx context.Context) (int64, error)
	DecaySanity(ctx context.Context, amount float64) (int64, error)
}

// LowSanityNotifier warns clans whose sanity dropped below a threshold.
type LowSanityNotifier interface {
	NotifyLowSanity(ctx context.Context, threshold float64)
}

// Pool manages a pool of workers consuming triggers from the queue.
type Pool struct {
	config   PoolConfig
	queue    *Queue
	eventBus mono.EventBus
	game     GameService
	notifier LowSanityNotifier

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.RWMutex
	running bool
}

// NewPool creates a worker pool over the queue.
func NewPool(cfg PoolConfig, queue *Queue) *Pool {
	return &Pool{config: cfg, queue: queue}
}

// SetEventBus provides the bus triggers are re-emitted on. Safe to call
// while the pool is running; collaborators are wired after startup.
func (p *Pool) SetEventBus(bus mono.EventBus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eventBus = bus
}

// SetGameService provides the daily reset and sanity decay operations.
func (p *Pool) SetGameService(game GameService) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.game = game
}

// SetNotifier provides the low-sanity announcer.
func (p *Pool) SetNotifier(notifier LowSanityNotifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifier = notifier
}

func (p *Pool) deps() (mono.EventBus, GameService, LowSanityNotifier) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.eventBus, p.game, p.notifier
}

// Start subscribes to the queue and launches the workers.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pool is already running")
	}
	p.running = true
	p.mu.Unlock()

	msgChan, err := p.queue.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to triggers: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.NumWorkers; i++ {
		workerID := fmt.Sprintf("worker-%d", i+1)
		p.wg.Add(1)
		go func(id string) {
			defer p.wg.Done()
			p.run(workerCtx, id, msgChan)
		}(workerID)
	}

	log.Printf("[worker] pool started with %d workers", p.config.NumWorkers)
	return nil
}

// Stop stops the pool gracefully.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[worker] all workers stopped")
	case <-ctx.Done():
		log.Println("[worker] timeout waiting for workers to stop")
		return ctx.Err()
	}
	return nil
}

// IsRunning returns true if the pool is running.
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *Pool) run(ctx context.Context, id string, msgChan <-chan *ConsumeMessage) {
	log.Printf("[%s] started", id)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] stopping", id)
			return
		case msg, ok := <-msgChan:
			if !ok {
				log.Printf("[%s] message channel closed", id)
				return
			}
			p.processMessage(ctx, id, msg)
		}
	}
}

func (p *Pool) processMessage(ctx context.Context, id string, msg *ConsumeMessage) {
	trigger := msg.Trigger
	log.Printf("[%s] processing %s trigger %s (delivery=%d)", id, trigger.Type, trigger.ID, msg.DeliveryCount)

	processCtx, cancel := context.WithTimeout(ctx, p.config.ProcessTimeout)
	defer cancel()

	if err := p.Process(processCtx, trigger); err != nil {
		p.handleFailure(id, msg, err)
		return
	}

	if err := msg.Ack(); err != nil {
		log.Printf("[%s] error acknowledging message: %v", id, err)
	}
}

// Process executes one trigger.
func (p *Pool) Process(ctx context.Context, trigger Trigger) error {
	switch trigger.Type {
	case TriggerWeeklyRaid:
		return p.processWeeklyRaid(ctx, trigger)
	case TriggerDailyReset:
		return p.processDailyReset(ctx)
	case TriggerSanityCheck:
		return p.processSanityCheck(ctx)
	default:
		return fmt.Errorf("unknown trigger type %q", trigger.Type)
	}
}

// processWeeklyRaid announces the raid on the event bus. The raid module
// consumes the event and opens the clan's room, the telegram module
// notifies the members.
func (p *Pool) processWeeklyRaid(_ context.Context, trigger Trigger) error {
	bus, _, _ := p.deps()
	if bus == nil {
		return fmt.Errorf("event bus not wired")
	}
	event := events.RaidScheduledEvent{
		ClanID:      trigger.ClanID,
		BossHP:      trigger.BossHP,
		TriggeredAt: trigger.ScheduledAt,
	}
	if err := events.RaidScheduledV1.Publish(bus, event, nil); err != nil {
		return fmt.Errorf("failed to publish raid scheduled event: %w", err)
	}
	return nil
}

func (p *Pool) processDailyReset(ctx context.Context) error {
	_, game, _ := p.deps()
	if game == nil {
		return fmt.Errorf("game service not wired")
	}
	count, err := game.ResetDailyBattles(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset daily battles: %w", err)
	}
	log.Printf("[worker] reset daily battle flag for %d players", count)
	return nil
}

func (p *Pool) processSanityCheck(ctx context.Context) error {
	_, game, notifier := p.deps()
	if game == nil {
		return fmt.Errorf("game service not wired")
	}
	if _, err := game.DecaySanity(ctx, p.config.SanityDecayAmount); err != nil {
		return fmt.Errorf("failed to decay sanity: %w", err)
	}
	if notifier != nil {
		notifier.NotifyLowSanity(ctx, p.config.LowSanityThreshold)
	}
	return nil
}

func (p *Pool) handleFailure(id string, msg *ConsumeMessage, procErr error) {
	if msg.DeliveryCount >= p.config.MaxRetries {
		log.Printf("[%s] trigger %s dropped after %d deliveries: %v", id, msg.Trigger.ID, msg.DeliveryCount, procErr)
		if err := msg.Term(); err != nil {
			log.Printf("[%s] error terminating message: %v", id, err)
		}
		return
	}

	delay := p.retryDelay(msg.DeliveryCount)
	log.Printf("[%s] trigger %s failed (delivery %d/%d), retry in %v: %v",
		id, msg.Trigger.ID, msg.DeliveryCount, p.config.MaxRetries, delay, procErr)
	if err := msg.NakWithDelay(delay); err != nil {
		log.Printf("[%s] error NAK with delay: %v", id, err)
	}
}

// retryDelay grows exponentially with the delivery count, capped at the
// configured maximum.
func (p *Pool) retryDelay(deliveryCount int) time.Duration {
	delay := float64(p.config.BaseRetryDelay) * math.Pow(2, float64(deliveryCount-1))
	if time.Duration(delay) > p.config.MaxRetryDelay {
		return p.config.MaxRetryDelay
	}
	return time.Duration(delay)
}
