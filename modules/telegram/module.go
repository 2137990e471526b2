package telegram

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
	"github.com/aziyat1977/Synapse-IELTS-RPG/events"
)

// Module runs the bot command dispatcher and the raid announcer.
type Module struct {
	botToken      string
	webhookSecret string
	frontendURL   string

	client   *BotClient
	bot      *Bot
	notifier *Notifier
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the telegram module.
func NewModule(botToken, webhookSecret, frontendURL string) *Module {
	m := &Module{
		botToken:      botToken,
		webhookSecret: webhookSecret,
		frontendURL:   frontendURL,
	}
	m.client = NewBotClient(botToken)
	m.bot = NewBot(m.client, webhookSecret, frontendURL)
	m.notifier = NewNotifier(m.client)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "telegram"
}

// RegisterEventConsumers subscribes to raid lifecycle events for member
// notifications.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.RaidScheduledV1, m.handleRaidScheduled, m); err != nil {
		return fmt.Errorf("failed to register RaidScheduled consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.RaidEndedV1, m.handleRaidEnded, m); err != nil {
		return fmt.Errorf("failed to register RaidEnded consumer: %w", err)
	}
	return nil
}

func (m *Module) handleRaidScheduled(ctx context.Context, event events.RaidScheduledEvent, _ *mono.Msg) error {
	m.notifier.NotifyRaidScheduled(ctx, event.ClanID, event.BossHP)
	return nil
}

func (m *Module) handleRaidEnded(ctx context.Context, event events.RaidEndedEvent, _ *mono.Msg) error {
	m.notifier.NotifyRaidEnded(ctx, event.ClanID, event.Victory, event.Participants)
	return nil
}

// Start logs readiness; outbound calls need no warm-up.
func (m *Module) Start(_ context.Context) error {
	if m.botToken == "" {
		log.Printf("[telegram] warning: no bot token configured, outbound messages will fail")
	}
	log.Printf("[telegram] module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	log.Printf("[telegram] module stopped")
	return nil
}

// Health reports whether the module has credentials for the Bot API.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.botToken == "" {
		return mono.HealthStatus{
			Healthy: false,
			Message: "no bot token configured",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "telegram module operational",
	}
}

// SetRepositories provides user and clan lookup for commands and
// notifications.
func (m *Module) SetRepositories(users *player.Repository, clans *clan.Repository) {
	m.bot.SetUserRepository(users)
	m.notifier.SetRepositories(users, clans)
}

// GetBot returns the webhook dispatcher.
func (m *Module) GetBot() *Bot {
	return m.bot
}

// GetNotifier returns the raid and sanity announcer.
func (m *Module) GetNotifier() *Notifier {
	return m.notifier
}

// GetClient returns the raw Bot API client.
func (m *Module) GetClient() *BotClient {
	return m.client
}
