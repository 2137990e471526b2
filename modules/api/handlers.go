package api

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	domainclan "github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/auth"
	clanmod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/leaderboard"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/telegram"
)

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	m.app.Get("/health", m.healthHandler)

	// Bot webhook sits outside the versioned API, matching the URL
	// registered with Telegram.
	m.app.Post("/telegram", m.telegramWebhook)

	api := m.app.Group("/api/v1")

	api.Post("/telegram/validate", m.rateLimitLogin, m.validateInitData)
	api.Post("/auth/refresh", m.refreshTokens)

	api.Post("/clan/summon", m.summonClan)
	api.Post("/clan/join", m.joinClan)
	api.Get("/clan/status/:username", m.clanStatus)

	api.Post("/daily-battle/complete", m.requireAuth, m.completeDailyBattle)

	api.Get("/leaderboard", m.leaderboardHandler)

	api.Post("/raid/:clan_id/start", m.requireAuth, m.startRaid)
	api.Get("/raid/:clan_id/state", m.raidState)

	api.Post("/analyze-speech", m.rateLimitSpeech, m.analyzeSpeech)
	api.Post("/combat-voice", m.rateLimitSpeech, m.combatVoice)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws/raid/:clan_id/:username", websocket.New(m.handleRaidSocket))
}

// Middleware

// requireAuth validates the Bearer token and stores the username in
// request locals.
func (m *Module) requireAuth(c *fiber.Ctx) error {
	m.mu.RLock()
	service := m.authService
	m.mu.RUnlock()
	if service == nil {
		return serviceUnavailable(c)
	}

	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Missing bearer token",
		})
	}

	claims, err := service.ValidateAccess(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	}

	c.Locals("username", claims.Username)
	return c.Next()
}

// rateLimitSpeech applies the speech limiter when it is wired.
func (m *Module) rateLimitSpeech(c *fiber.Ctx) error {
	m.mu.RLock()
	limiter := m.limiter
	m.mu.RUnlock()
	if limiter == nil {
		return c.Next()
	}
	return limiter.SpeechRateLimit()(c)
}

// rateLimitLogin applies the login limiter when it is wired.
func (m *Module) rateLimitLogin(c *fiber.Ctx) error {
	m.mu.RLock()
	limiter := m.limiter
	m.mu.RUnlock()
	if limiter == nil {
		return c.Next()
	}
	return limiter.LoginRateLimit()(c)
}

// Handlers

// healthHandler aggregates the health of every registered module.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	m.mu.RLock()
	checkers := m.checkers
	m.mu.RUnlock()

	status := "healthy"
	modules := make(map[string]any, len(checkers))
	for name, checker := range checkers {
		health := checker.Health(c.UserContext())
		modules[name] = fiber.Map{
			"healthy": health.Healthy,
			"message": health.Message,
			"details": health.Details,
		}
		if !health.Healthy {
			status = "degraded"
		}
	}

	return c.JSON(HealthResponse{Status: status, Modules: modules})
}

// telegramWebhook handles bot updates pushed by Telegram.
func (m *Module) telegramWebhook(c *fiber.Ctx) error {
	m.mu.RLock()
	bot := m.bot
	m.mu.RUnlock()
	if bot == nil {
		return serviceUnavailable(c)
	}

	if !bot.ValidateWebhookSecret(c.Get("X-Telegram-Bot-Api-Secret-Token")) {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid webhook secret",
		})
	}

	var update telegram.Update
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "Invalid update payload")
	}

	if err := bot.HandleUpdate(c.UserContext(), update); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "webhook_failed",
			Message: "Failed to process update",
		})
	}
	return c.JSON(SuccessResponse{Success: true})
}

// validateInitData handles POST /api/v1/telegram/validate.
func (m *Module) validateInitData(c *fiber.Ctx) error {
	m.mu.RLock()
	service := m.authService
	m.mu.RUnlock()
	if service == nil {
		return serviceUnavailable(c)
	}

	var req ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.InitData == "" {
		return badRequest(c, "initData is required")
	}

	resp, err := service.Login(c.UserContext(), req.InitData)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidInitData) || errors.Is(err, auth.ErrStaleInitData) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "invalid_init_data",
				Message: "Telegram initData validation failed",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "login_failed",
			Message: "Failed to complete login",
		})
	}
	return c.JSON(resp)
}

// refreshTokens handles POST /api/v1/auth/refresh.
func (m *Module) refreshTokens(c *fiber.Ctx) error {
	m.mu.RLock()
	service := m.authService
	m.mu.RUnlock()
	if service == nil {
		return serviceUnavailable(c)
	}

	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	pair, err := service.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "invalid_refresh_token",
			Message: "Refresh token rejected",
		})
	}
	return c.JSON(pair)
}

// summonClan handles POST /api/v1/clan/summon.
func (m *Module) summonClan(c *fiber.Ctx) error {
	m.mu.RLock()
	service := m.clanService
	m.mu.RUnlock()
	if service == nil {
		return serviceUnavailable(c)
	}

	var req clanmod.SummonRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.InviterUsername == "" || req.InviteeUsername == "" {
		return badRequest(c, "inviter_username and invitee_username are required")
	}

	result, err := service.Summon(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, player.ErrUserNotFound) {
			return notFound(c, "Inviter not found")
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "summon_failed",
			Message: "Failed to summon player",
		})
	}
	return c.JSON(result)
}

// joinClan handles POST /api/v1/clan/join.
func (m *Module) joinClan(c *fiber.Ctx) error {
	m.mu.RLock()
	service := m.clanService
	m.mu.RUnlock()
	if service == nil {
		return serviceUnavailable(c)
	}

	var req clanmod.JoinRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.InviteCode == "" {
		return badRequest(c, "username and invite_code are required")
	}

	result, err := service.JoinByInviteCode(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, domainclan.ErrClanNotFound) {
			return notFound(c, "Invalid invite code")
		}
		if errors.Is(err, player.ErrUserNotFound) {
			return notFound(c, "Player not found")
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "join_failed",
			Message: "Failed to join clan",
		})
	}
	return c.JSON(result)
}

// clanStatus handles GET /api/v1/clan/status/:username.
func (m *Module) clanStatus(c *fiber.Ctx) error {
	m.mu.RLock()
	service := m.clanService
	m.mu.RUnlock()
	if service == nil {
		return serviceUnavailable(c)
	}

	result, err := service.Status(c.UserContext(), c.Params("username"))
	if err != nil {
		if errors.Is(err, player.ErrUserNotFound) || errors.Is(err, domainclan.ErrClanNotFound) {
			return notFound(c, "Player or clan not found")
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "status_failed",
			Message: "Failed to fetch clan status",
		})
	}
	return c.JSON(result)
}

// completeDailyBattle handles POST /api/v1/daily-battle/complete. The
// player comes from the bearer token; the flag resets with the nightly
// scheduler run.
func (m *Module) completeDailyBattle(c *fiber.Ctx) error {
	m.mu.RLock()
	service := m.clanService
	m.mu.RUnlock()
	if service == nil {
		return serviceUnavailable(c)
	}

	username, _ := c.Locals("username").(string)
	result, err := service.CompleteDailyBattle(c.UserContext(), username)
	if err != nil {
		if errors.Is(err, clanmod.ErrDailyBattleDone) {
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
				Error:   "daily_battle_done",
				Message: "Daily battle already completed today",
			})
		}
		if errors.Is(err, player.ErrUserNotFound) {
			return notFound(c, "Player not found")
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "daily_battle_failed",
			Message: "Failed to complete daily battle",
		})
	}
	return c.JSON(result)
}

// leaderboardHandler handles GET /api/v1/leaderboard?by=national|regional.
func (m *Module) leaderboardHandler(c *fiber.Ctx) error {
	m.mu.RLock()
	boards := m.boards
	m.mu.RUnlock()
	if boards == nil {
		return serviceUnavailable(c)
	}

	switch c.Query("by", "national") {
	case "national":
		limit := leaderboard.DefaultTopLimit
		if l := c.Query("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		entries, err := boards.TopClans(c.UserContext(), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error:   "leaderboard_failed",
				Message: "Failed to build leaderboard",
			})
		}
		return c.JSON(fiber.Map{"type": "national", "entries": entries})
	case "regional":
		entries, err := boards.Regional(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error:   "leaderboard_failed",
				Message: "Failed to build leaderboard",
			})
		}
		return c.JSON(fiber.Map{"type": "regional", "entries": entries})
	default:
		return badRequest(c, "by must be national or regional")
	}
}

// startRaid handles POST /api/v1/raid/:clan_id/start.
func (m *Module) startRaid(c *fiber.Ctx) error {
	m.mu.RLock()
	registry := m.registry
	m.mu.RUnlock()
	if registry == nil {
		return serviceUnavailable(c)
	}

	var req StartRaidRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.BossHP <= 0 {
		return badRequest(c, "bossHP must be positive")
	}

	registry.Resolve(c.Params("clan_id")).StartRaid(req.BossHP)
	return c.JSON(SuccessResponse{Success: true})
}

// raidState handles GET /api/v1/raid/:clan_id/state. A clan without a
// live room reports an inactive raid rather than an error.
func (m *Module) raidState(c *fiber.Ctx) error {
	m.mu.RLock()
	registry := m.registry
	m.mu.RUnlock()
	if registry == nil {
		return serviceUnavailable(c)
	}

	clanID := c.Params("clan_id")
	resp := RaidStateResponse{ClanID: clanID, Participants: []string{}}
	if room, ok := registry.Lookup(clanID); ok {
		snapshot := room.Snapshot()
		resp.Active = snapshot.Active
		resp.Participants = snapshot.Participants
		resp.BossHP = snapshot.BossHP
		resp.MaxBossHP = snapshot.MaxBossHP
		resp.Connected = room.SessionCount()
	}
	return c.JSON(resp)
}

// analyzeSpeech handles POST /api/v1/analyze-speech.
func (m *Module) analyzeSpeech(c *fiber.Ctx) error {
	m.mu.RLock()
	transcriber, analyzer := m.transcriber, m.analyzer
	m.mu.RUnlock()
	if transcriber == nil || analyzer == nil {
		return serviceUnavailable(c)
	}

	audio, err := readAudioFile(c)
	if err != nil {
		return badRequest(c, "No audio file provided")
	}

	transcript, err := transcriber.Transcribe(c.UserContext(), audio, "")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "transcription_failed",
			Message: "Failed to transcribe audio",
		})
	}

	analysis, err := analyzer.AnalyzeTranscript(c.UserContext(), transcript)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "analysis_failed",
			Message: "Speech analysis failed",
		})
	}
	return c.JSON(analysis)
}

// combatVoice handles POST /api/v1/combat-voice.
func (m *Module) combatVoice(c *fiber.Ctx) error {
	m.mu.RLock()
	transcriber, analyzer := m.transcriber, m.analyzer
	m.mu.RUnlock()
	if transcriber == nil || analyzer == nil {
		return serviceUnavailable(c)
	}

	audio, err := readAudioFile(c)
	if err != nil {
		return badRequest(c, "No audio file provided")
	}

	weakness := c.FormValue("prompt")
	if weakness == "" {
		weakness = "grammar"
	}

	transcript, err := transcriber.Transcribe(c.UserContext(), audio, combatTranscriptionPrompt)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "transcription_failed",
			Message: "Failed to transcribe audio",
		})
	}

	result := analyzer.AnalyzeVoiceCombat(c.UserContext(), transcript, weakness)
	return c.JSON(CombatVoiceResponse{
		Transcript: transcript,
		Damage:     result.Damage,
		IsCritical: result.IsCritical,
		Feedback:   result.Feedback,
		RecoilType: result.RecoilType,
	})
}

// readAudioFile extracts the uploaded "audio" multipart field.
func readAudioFile(c *fiber.Ctx) ([]byte, error) {
	header, err := c.FormFile("audio")
	if err != nil {
		return nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "validation_error",
		Message: message,
	})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Error:   "not_found",
		Message: message,
	})
}

func serviceUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Error:   "service_unavailable",
		Message: "Service is still starting",
	})
}
