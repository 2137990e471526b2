package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/events"
)

// Module runs the trigger queue, the scheduler and the worker pool.
type Module struct {
	queueConfig     QueueConfig
	schedulerConfig SchedulerConfig
	poolConfig      PoolConfig

	queue     *Queue
	scheduler *Scheduler
	pool      *Pool
	cancel    context.CancelFunc
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the worker module against the given NATS URL.
func NewModule(natsURL string) *Module {
	queueCfg := DefaultQueueConfig()
	if natsURL != "" {
		queueCfg.URL = natsURL
	}

	m := &Module{
		queueConfig:     queueCfg,
		schedulerConfig: DefaultSchedulerConfig(),
		poolConfig:      DefaultPoolConfig(),
	}
	m.queue = NewQueue(queueCfg)
	m.scheduler = NewScheduler(m.schedulerConfig, m.queue)
	m.pool = NewPool(m.poolConfig, m.queue)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "worker"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.pool.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RaidScheduledV1.ToBase(),
	}
}

// Start connects to NATS and launches the scheduler and the pool.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	if err := m.queue.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to connect queue: %w", err)
	}
	if err := m.queue.CreateConsumer(ctx, m.queueConfig); err != nil {
		cancel()
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	if err := m.pool.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to start pool: %w", err)
	}
	go m.scheduler.Run(ctx)

	log.Println("[worker] module started")
	return nil
}

// Stop shuts down the scheduler, the pool and the NATS connection.
func (m *Module) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	if err := m.pool.Stop(ctx); err != nil {
		log.Printf("[worker] pool stop: %v", err)
	}
	if err := m.queue.Close(); err != nil {
		log.Printf("[worker] queue close: %v", err)
	}
	log.Println("[worker] module stopped")
	return nil
}

// Health reports queue connectivity and pool state.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if !m.queue.IsConnected() {
		return mono.HealthStatus{
			Healthy: false,
			Message: "NATS connection lost",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "worker module operational",
		Details: map[string]any{
			"pool_running": m.pool.IsRunning(),
		},
	}
}

// SetClanRepository provides clan lookup for the weekly raid schedule.
func (m *Module) SetClanRepository(clans *clan.Repository) {
	m.scheduler.SetClanRepository(clans)
}

// SetGameService provides the daily reset and sanity decay operations.
func (m *Module) SetGameService(game GameService) {
	m.pool.SetGameService(game)
}

// SetNotifier provides the low-sanity announcer.
func (m *Module) SetNotifier(notifier LowSanityNotifier) {
	m.pool.SetNotifier(notifier)
}

// GetQueue returns the trigger queue.
func (m *Module) GetQueue() *Queue {
	return m.queue
}

// GetPool returns the worker pool.
func (m *Module) GetPool() *Pool {
	return m.pool
}
