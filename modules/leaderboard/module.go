package leaderboard

import (
	"context"
	"log"

	"github.com/go-monolith/mono"
	"gorm.io/gorm"

	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/cache"
)

// Module serves clan rankings over the clan module's database.
type Module struct {
	repo    *Repository
	service *Service
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the leaderboard module. The database and cache are
// wired in after startup.
func NewModule() *Module {
	return &Module{}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "leaderboard"
}

// Start is a no-op; the module waits for its database wiring.
func (m *Module) Start(_ context.Context) error {
	log.Println("[leaderboard] Module started")
	return nil
}

// Stop is a no-op; the clan module owns the database connection.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[leaderboard] Module stopped")
	return nil
}

// Health reports whether the read model has been wired.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not wired"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// SetDB wires the shared database handle and builds the service.
func (m *Module) SetDB(db *gorm.DB) {
	m.repo = NewRepository(db)
	m.service = NewService(m.repo)
}

// SetCache wires the shared Redis cache.
func (m *Module) SetCache(c *cache.Cache) {
	if m.service != nil {
		m.service.SetCache(c)
	}
}

// GetService returns the leaderboard service.
func (m *Module) GetService() *Service {
	return m.service
}
