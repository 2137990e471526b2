package clan

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
	"github.com/aziyat1977/Synapse-IELTS-RPG/events"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/cache"
)

// Module owns the SQLite database and the clan/progression service.
type Module struct {
	db      *gorm.DB
	users   *player.Repository
	clans   *domain.Repository
	service *Service
	dbPath  string
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the clan module storing data at dbPath.
func NewModule(dbPath string) *Module {
	return &Module{dbPath: dbPath}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "clan"
}

// Start opens the database, runs migrations, and builds the service.
func (m *Module) Start(_ context.Context) error {
	log.Printf("[clan] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&player.User{}, &domain.Clan{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.users = player.NewRepository(m.db)
	m.clans = domain.NewRepository(m.db)
	m.service, err = NewService(m.users, m.clans)
	if err != nil {
		return err
	}

	log.Println("[clan] Module started")
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	log.Println("[clan] Database connection closed")
	return nil
}

// RegisterServices exposes summon and status over request-reply so other
// modules can reach them without a direct dependency.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "summon", json.Unmarshal, json.Marshal, m.summonService,
	); err != nil {
		return fmt.Errorf("failed to register summon service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "status", json.Unmarshal, json.Marshal, m.statusService,
	); err != nil {
		return fmt.Errorf("failed to register status service: %w", err)
	}

	log.Printf("[clan] Registered services: services.clan.{summon,status}")
	return nil
}

func (m *Module) summonService(ctx context.Context, req SummonRequest, _ *mono.Msg) (SummonResult, error) {
	result, err := m.service.Summon(ctx, req)
	if err != nil {
		return SummonResult{}, err
	}
	return *result, nil
}

func (m *Module) statusService(ctx context.Context, req StatusRequest, _ *mono.Msg) (StatusResult, error) {
	result, err := m.service.Status(ctx, req.Username)
	if err != nil {
		return StatusResult{}, err
	}
	return *result, nil
}

// RegisterEventConsumers subscribes to raid outcomes for XP payouts.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.RaidEndedV1, m.handleRaidEnded, m); err != nil {
		return fmt.Errorf("failed to register RaidEnded consumer: %w", err)
	}
	return nil
}

func (m *Module) handleRaidEnded(ctx context.Context, event events.RaidEndedEvent, _ *mono.Msg) error {
	clanID, err := strconv.ParseUint(event.ClanID, 10, 32)
	if err != nil {
		log.Printf("[clan] ignoring raid outcome for non-numeric clan id %q", event.ClanID)
		return nil
	}

	if err := m.service.AwardRaidOutcome(ctx, uint(clanID), event.Participants, event.Victory); err != nil {
		log.Printf("[clan] failed to award raid outcome for clan %s: %v", event.ClanID, err)
		return err
	}

	log.Printf("[clan] awarded raid outcome for clan %s (victory=%t, %d participants)",
		event.ClanID, event.Victory, len(event.Participants))
	return nil
}

// Health checks the database connection.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get sql.DB: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// SetCache wires the shared Redis cache into the service.
func (m *Module) SetCache(c *cache.Cache) {
	m.service.SetCache(c)
}

// GetService returns the clan service.
func (m *Module) GetService() *Service {
	return m.service
}

// GetUserRepository returns the user repository, shared with the auth and
// speech modules.
func (m *Module) GetUserRepository() *player.Repository {
	return m.users
}

// GetClanRepository returns the clan repository.
func (m *Module) GetClanRepository() *domain.Repository {
	return m.clans
}

// GetDB returns the shared database handle, used by the leaderboard's
// read-model queries.
func (m *Module) GetDB() *gorm.DB {
	return m.db
}
