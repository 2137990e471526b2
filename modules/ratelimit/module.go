package ratelimit

import (
	"context"
	"log"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

// Module exposes the rate limiting middleware. It shares the cache
// module's Redis client rather than opening its own.
type Module struct {
	middleware *Middleware
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the rate limit module.
func NewModule() *Module {
	return &Module{}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ratelimit"
}

// Start is a no-op; the Redis client is wired in afterwards.
func (m *Module) Start(_ context.Context) error {
	log.Println("[ratelimit] Module started")
	return nil
}

// Stop is a no-op; the cache module owns the Redis client.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[ratelimit] Module stopped")
	return nil
}

// Health reports whether the middleware has been wired.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.middleware == nil {
		return mono.HealthStatus{Healthy: false, Message: "redis client not wired"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// SetRedisClient wires the shared Redis client and builds the middleware.
func (m *Module) SetRedisClient(client *redis.Client) {
	m.middleware = NewMiddleware(client, "synapse:ratelimit:")
}

// GetMiddleware returns the Fiber middleware.
func (m *Module) GetMiddleware() *Middleware {
	return m.middleware
}
