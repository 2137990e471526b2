package raid

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/aziyat1977/Synapse-IELTS-RPG/events"
)

// Module owns the raid room registry and bridges room lifecycle into the
// application event bus.
type Module struct {
	registry *Registry
	eventBus mono.EventBus
	cancel   context.CancelFunc
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ Events                     = (*Module)(nil)
)

// NewModule creates the raid module.
func NewModule() *Module {
	m := &Module{}
	m.registry = NewRegistry(m)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "raid"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RaidStartedV1.ToBase(),
		events.RaidEndedV1.ToBase(),
	}
}

// RegisterEventConsumers subscribes to scheduled raid triggers so that the
// weekly scheduler can start fights without a direct module dependency.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.RaidScheduledV1, m.handleRaidScheduled, m); err != nil {
		return fmt.Errorf("failed to register RaidScheduled consumer: %w", err)
	}
	return nil
}

func (m *Module) handleRaidScheduled(_ context.Context, event events.RaidScheduledEvent, _ *mono.Msg) error {
	log.Printf("[raid] scheduled raid trigger for clan %s, boss HP %d", event.ClanID, event.BossHP)
	m.registry.Resolve(event.ClanID).StartRaid(event.BossHP)
	return nil
}

// Start launches the background janitor that evicts idle rooms.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.registry.runJanitor(ctx)

	log.Println("[raid] module started")
	return nil
}

// Stop disconnects every live session and stops the janitor.
func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.registry.CloseAll()

	log.Println("[raid] module stopped")
	return nil
}

// Health reports the number of live rooms.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "raid registry operational",
		Details: map[string]any{
			"rooms": m.registry.RoomCount(),
		},
	}
}

// Registry returns the room registry for transport-layer wiring.
func (m *Module) Registry() *Registry {
	return m.registry
}

// RaidStarted publishes the raid start to the event bus.
func (m *Module) RaidStarted(clanID string, bossHP int, participants []string, startedAt time.Time) {
	if m.eventBus == nil {
		return
	}
	event := events.RaidStartedEvent{
		ClanID:       clanID,
		BossHP:       bossHP,
		Participants: participants,
		StartedAt:    startedAt,
	}
	if err := events.RaidStartedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[raid] failed to publish RaidStarted event: %v", err)
	}
}

// RaidEnded publishes the raid outcome to the event bus.
func (m *Module) RaidEnded(clanID string, victory bool, participants []string, duration time.Duration) {
	if m.eventBus == nil {
		return
	}
	event := events.RaidEndedEvent{
		ClanID:       clanID,
		Victory:      victory,
		Participants: participants,
		Duration:     duration,
		EndedAt:      time.Now(),
	}
	if err := events.RaidEndedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[raid] failed to publish RaidEnded event: %v", err)
	}
}
