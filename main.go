package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	apimod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/api"
	authmod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/auth"
	cachemod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/cache"
	clanmod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/clan"
	leaderboardmod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/leaderboard"
	raidmod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/raid"
	ratelimitmod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/ratelimit"
	speechmod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/speech"
	telegrammod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/telegram"
	workermod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	natsURL := getEnv("NATS_URL", "nats://localhost:4222")
	dbPath := getEnv("DB_PATH", "./synapse.db")
	jwtSecret := getEnv("JWT_SECRET", "dev-secret-change-me")
	botToken := getEnv("TELEGRAM_BOT_TOKEN", "")
	webhookSecret := getEnv("TELEGRAM_WEBHOOK_SECRET", "")
	frontendURL := getEnv("FRONTEND_URL", "https://synapse-ielts-rpg.pages.dev")
	openAIKey := getEnv("OPENAI_API_KEY", "")
	httpPort := getEnv("PORT", "3000")

	log.Println("=== Synapse IELTS RPG ===")
	log.Printf("Redis: %s", redisAddr)
	log.Printf("NATS: %s", natsURL)
	log.Printf("Database: %s", dbPath)
	log.Printf("HTTP Port: %s", httpPort)

	// Create modules
	cacheModule := cachemod.NewModule(redisAddr)
	clanModule := clanmod.NewModule(dbPath)
	raidModule := raidmod.NewModule()
	authModule := authmod.NewModule(botToken, jwtSecret)
	leaderboardModule := leaderboardmod.NewModule()
	ratelimitModule := ratelimitmod.NewModule()
	speechModule := speechmod.NewModule(openAIKey)
	telegramModule := telegrammod.NewModule(botToken, webhookSecret, frontendURL)
	workerModule := workermod.NewModule(natsURL)
	apiModule := apimod.NewModule()

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Register modules
	app.Register(cacheModule)
	app.Register(clanModule)
	app.Register(raidModule)
	app.Register(authModule)
	app.Register(leaderboardModule)
	app.Register(ratelimitModule)
	app.Register(speechModule)
	app.Register(telegramModule)
	app.Register(workerModule)
	app.Register(apiModule)

	// Start modules (this handles Init and Start)
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	// Wire up dependencies after start
	clanModule.SetCache(cacheModule.GetCache())

	leaderboardModule.SetDB(clanModule.GetDB())
	leaderboardModule.SetCache(cacheModule.GetCache())

	authModule.SetUserRepository(clanModule.GetUserRepository())

	ratelimitModule.SetRedisClient(cacheModule.GetCache().GetClient())

	telegramModule.SetRepositories(clanModule.GetUserRepository(), clanModule.GetClanRepository())

	workerModule.SetClanRepository(clanModule.GetClanRepository())
	workerModule.SetGameService(clanModule.GetService())
	workerModule.SetNotifier(telegramModule.GetNotifier())

	apiModule.SetRaidRegistry(raidModule.Registry())
	apiModule.SetAuthService(authModule.GetService())
	apiModule.SetClanService(clanModule.GetService())
	apiModule.SetLeaderboardService(leaderboardModule.GetService())
	apiModule.SetRateLimiter(ratelimitModule.GetMiddleware())
	apiModule.SetSpeech(speechModule.GetClient(), speechModule.GetAnalyzer())
	apiModule.SetBot(telegramModule.GetBot())
	apiModule.SetHealthCheckers(map[string]mono.HealthCheckableModule{
		"cache":     cacheModule,
		"clan":      clanModule,
		"raid":      raidModule,
		"auth":      authModule,
		"speech":    speechModule,
		"telegram":  telegramModule,
		"worker":    workerModule,
		"ratelimit": ratelimitModule,
	})

	log.Println("=== Application Started ===")
	log.Printf("API available at http://localhost:%s", httpPort)
	log.Println("Endpoints:")
	log.Println("  GET    /health                        - Aggregated health")
	log.Println("  GET    /ws/raid/:clan_id/:username    - Raid WebSocket")
	log.Println("  POST   /api/v1/raid/:clan_id/start    - Start a raid (JWT)")
	log.Println("  GET    /api/v1/raid/:clan_id/state    - Raid snapshot")
	log.Println("  POST   /api/v1/telegram/validate      - Mini App login")
	log.Println("  POST   /api/v1/auth/refresh           - Refresh tokens")
	log.Println("  POST   /api/v1/clan/summon            - Summon a player")
	log.Println("  POST   /api/v1/clan/join              - Join by invite code")
	log.Println("  GET    /api/v1/clan/status/:username  - Clan status")
	log.Println("  POST   /api/v1/daily-battle/complete  - Daily battle rewards (JWT)")
	log.Println("  GET    /api/v1/leaderboard            - Rankings (?by=national|regional)")
	log.Println("  POST   /api/v1/analyze-speech         - Speech analysis")
	log.Println("  POST   /api/v1/combat-voice           - Voice combat scoring")
	log.Println("  POST   /telegram                      - Bot webhook")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	// Setup graceful shutdown using gelmium/graceful-shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	// Wait for shutdown signal and exit with appropriate code
	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
