package auth

import (
	"context"
	"log"
	"time"

	"github.com/go-monolith/mono"

	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
)

// initDataMaxAge bounds how old a Mini App login payload may be.
const initDataMaxAge = 24 * time.Hour

// Module provides Telegram Mini App authentication.
type Module struct {
	jwt       *JWTManager
	validator *InitDataValidator
	service   *Service

	botToken  string
	jwtSecret string
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the auth module.
func NewModule(botToken, jwtSecret string) *Module {
	return &Module{
		botToken:  botToken,
		jwtSecret: jwtSecret,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Start builds the token manager and init data validator. The user
// repository is wired in afterwards.
func (m *Module) Start(_ context.Context) error {
	m.jwt = NewJWTManager(DefaultJWTConfig(m.jwtSecret))
	m.validator = NewInitDataValidator(m.botToken, initDataMaxAge)

	log.Println("[auth] Module started")
	return nil
}

// Stop is a no-op.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}

// Health reports whether the service has been wired.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "user repository not wired"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// SetUserRepository wires the shared user repository and builds the service.
func (m *Module) SetUserRepository(users *player.Repository) {
	m.service = NewService(users, m.jwt, m.validator)
}

// GetService returns the auth service.
func (m *Module) GetService() *Service {
	return m.service
}
