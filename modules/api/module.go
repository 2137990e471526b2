// Package api exposes the HTTP and WebSocket surface of the game.
package api

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/auth"
	clanmod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/leaderboard"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/raid"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/ratelimit"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/speech"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/telegram"
)

// Module is the HTTP API module with WebSocket raid support. Service
// collaborators are wired from main after startup; handlers answer 503
// until their dependency arrives.
type Module struct {
	app  *fiber.App
	port string

	mu          sync.RWMutex
	registry    *raid.Registry
	authService *auth.Service
	clanService *clanmod.Service
	boards      *leaderboard.Service
	limiter     *ratelimit.Middleware
	transcriber *speech.Client
	analyzer    *speech.Analyzer
	bot         *telegram.Bot
	checkers    map[string]mono.HealthCheckableModule
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the api module; the port comes from PORT (default 3000).
func NewModule() *Module {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return &Module{port: port}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// initApp builds the Fiber app and its routes.
func (m *Module) initApp() {
	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
		BodyLimit:             25 * 1024 * 1024, // voice clips
	})

	m.app.Use(recover.New())
	m.app.Use(cors.New())
	m.app.Use(loggerMiddleware())

	m.setupRoutes()
}

// Start initializes the Fiber HTTP server.
func (m *Module) Start(_ context.Context) error {
	m.initApp()

	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on :%s", m.port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] shutting down HTTP server")
	return m.app.Shutdown()
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.port,
		},
	}
}

// SetRaidRegistry wires the raid room router.
func (m *Module) SetRaidRegistry(registry *raid.Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = registry
}

// SetAuthService wires login, refresh and token validation.
func (m *Module) SetAuthService(service *auth.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authService = service
}

// SetClanService wires summon, join and status operations.
func (m *Module) SetClanService(service *clanmod.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clanService = service
}

// SetLeaderboardService wires the cached rankings.
func (m *Module) SetLeaderboardService(service *leaderboard.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards = service
}

// SetRateLimiter wires the sliding-window middleware.
func (m *Module) SetRateLimiter(limiter *ratelimit.Middleware) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiter = limiter
}

// SetSpeech wires the transcription client and the analyzer.
func (m *Module) SetSpeech(client *speech.Client, analyzer *speech.Analyzer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcriber = client
	m.analyzer = analyzer
}

// SetBot wires the Telegram webhook dispatcher.
func (m *Module) SetBot(bot *telegram.Bot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bot = bot
}

// SetHealthCheckers registers the modules aggregated under GET /health.
func (m *Module) SetHealthCheckers(checkers map[string]mono.HealthCheckableModule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = checkers
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		err := c.Next()
		log.Printf("[api] %s %s %d", c.Method(), c.Path(), c.Response().StatusCode())
		return err
	}
}
