package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domainclan "github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/auth"
	clanmod "github.com/aziyat1977/Synapse-IELTS-RPG/modules/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/leaderboard"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/raid"
)

const testBotToken = "12345:test-bot-token"

// nopRaidEvents drops raid lifecycle callbacks.
type nopRaidEvents struct{}

func (nopRaidEvents) RaidStarted(string, int, []string, time.Time)    {}
func (nopRaidEvents) RaidEnded(string, bool, []string, time.Duration) {}

type testEnv struct {
	module    *Module
	users     *player.Repository
	clans     *domainclan.Repository
	jwt       *auth.JWTManager
	validator *auth.InitDataValidator
}

func setupTestAPI(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&player.User{}, &domainclan.Clan{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	users := player.NewRepository(db)
	clans := domainclan.NewRepository(db)

	jwtManager := auth.NewJWTManager(auth.DefaultJWTConfig("test-secret"))
	validator := auth.NewInitDataValidator(testBotToken, 24*time.Hour)
	authService := auth.NewService(users, jwtManager, validator)

	clanService, err := clanmod.NewService(users, clans)
	if err != nil {
		t.Fatalf("failed to create clan service: %v", err)
	}

	boardService := leaderboard.NewService(leaderboard.NewRepository(db))

	m := NewModule()
	m.initApp()
	m.SetRaidRegistry(raid.NewRegistry(nopRaidEvents{}))
	m.SetAuthService(authService)
	m.SetClanService(clanService)
	m.SetLeaderboardService(boardService)

	return &testEnv{
		module:    m,
		users:     users,
		clans:     clans,
		jwt:       jwtManager,
		validator: validator,
	}
}

func (e *testEnv) request(t *testing.T, method, target string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.module.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (e *testEnv) accessToken(t *testing.T) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken("aziz", "42")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestAPI(t)

	resp := env.request(t, "GET", "/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var health HealthResponse
	decodeBody(t, resp, &health)
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
}

func TestStartRaidRequiresToken(t *testing.T) {
	env := setupTestAPI(t)

	resp := env.request(t, "POST", "/api/v1/raid/1/start", StartRaidRequest{BossHP: 500}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without a token", resp.StatusCode)
	}

	resp = env.request(t, "POST", "/api/v1/raid/1/start", StartRaidRequest{BossHP: 500}, map[string]string{
		"Authorization": "Bearer garbage",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 with a bad token", resp.StatusCode)
	}
}

func TestStartRaidAndState(t *testing.T) {
	env := setupTestAPI(t)
	headers := map[string]string{"Authorization": "Bearer " + env.accessToken(t)}

	resp := env.request(t, "POST", "/api/v1/raid/1/start", StartRaidRequest{BossHP: 750}, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, want 200", resp.StatusCode)
	}
	var ok SuccessResponse
	decodeBody(t, resp, &ok)
	if !ok.Success {
		t.Error("expected success true")
	}

	resp = env.request(t, "GET", "/api/v1/raid/1/state", nil, nil)
	var state RaidStateResponse
	decodeBody(t, resp, &state)
	if !state.Active {
		t.Error("raid should be active after start")
	}
	if state.BossHP != 750 || state.MaxBossHP != 750 {
		t.Errorf("boss HP = %d/%d, want 750/750", state.BossHP, state.MaxBossHP)
	}
}

func TestStartRaidValidatesBossHP(t *testing.T) {
	env := setupTestAPI(t)
	headers := map[string]string{"Authorization": "Bearer " + env.accessToken(t)}

	resp := env.request(t, "POST", "/api/v1/raid/1/start", StartRaidRequest{BossHP: 0}, headers)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for zero bossHP", resp.StatusCode)
	}
}

func TestRaidStateUnknownClan(t *testing.T) {
	env := setupTestAPI(t)

	resp := env.request(t, "GET", "/api/v1/raid/nowhere/state", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var state RaidStateResponse
	decodeBody(t, resp, &state)
	if state.Active {
		t.Error("unknown clan should report an inactive raid")
	}
	if state.Participants == nil || len(state.Participants) != 0 {
		t.Errorf("participants = %v, want empty list", state.Participants)
	}
}

func TestSummonEndpoint(t *testing.T) {
	env := setupTestAPI(t)
	ctx := context.Background()
	if err := env.users.Create(ctx, &player.User{Username: "aziz", Region: "Tashkent"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	resp := env.request(t, "POST", "/api/v1/clan/summon", clanmod.SummonRequest{
		InviterUsername: "aziz",
		InviteeUsername: "bek",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result clanmod.SummonResult
	decodeBody(t, resp, &result)
	if !result.Success {
		t.Error("expected summon success")
	}
	if result.InviteCode == "" {
		t.Error("expected an invite code")
	}
}

func TestSummonUnknownInviter(t *testing.T) {
	env := setupTestAPI(t)

	resp := env.request(t, "POST", "/api/v1/clan/summon", clanmod.SummonRequest{
		InviterUsername: "ghost",
		InviteeUsername: "bek",
	}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSummonValidation(t *testing.T) {
	env := setupTestAPI(t)

	resp := env.request(t, "POST", "/api/v1/clan/summon", clanmod.SummonRequest{}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing usernames", resp.StatusCode)
	}
}

func TestCompleteDailyBattle(t *testing.T) {
	env := setupTestAPI(t)
	ctx := context.Background()
	if err := env.users.Create(ctx, &player.User{Username: "aziz", Region: "Tashkent"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	headers := map[string]string{"Authorization": "Bearer " + env.accessToken(t)}

	resp := env.request(t, "POST", "/api/v1/daily-battle/complete", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result clanmod.DailyBattleResult
	decodeBody(t, resp, &result)
	if result.XPAwarded != clanmod.DailyBattleXP || result.CreditsAwarded != clanmod.DailyBattleCredits {
		t.Errorf("rewards = %+v, want %d XP and %d credits", result, clanmod.DailyBattleXP, clanmod.DailyBattleCredits)
	}

	user, err := env.users.FindByUsername(ctx, "aziz")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if !user.DailyBattleCompleted {
		t.Error("expected daily battle flag to be set")
	}
	if user.XP != clanmod.DailyBattleXP {
		t.Errorf("XP = %d, want %d", user.XP, clanmod.DailyBattleXP)
	}

	// A second completion the same day is refused.
	resp = env.request(t, "POST", "/api/v1/daily-battle/complete", nil, headers)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestCompleteDailyBattleRequiresToken(t *testing.T) {
	env := setupTestAPI(t)

	resp := env.request(t, "POST", "/api/v1/daily-battle/complete", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestClanStatusNotFound(t *testing.T) {
	env := setupTestAPI(t)

	resp := env.request(t, "GET", "/api/v1/clan/status/ghost", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	env := setupTestAPI(t)
	ctx := context.Background()

	c := &domainclan.Clan{Name: "Tigers", SanityMeter: 100, Region: "Tashkent"}
	if err := env.clans.Create(ctx, c); err != nil {
		t.Fatalf("create clan: %v", err)
	}
	if err := env.users.Create(ctx, &player.User{Username: "aziz", ClanID: &c.ID, XP: 300}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	for _, by := range []string{"national", "regional"} {
		resp := env.request(t, "GET", "/api/v1/leaderboard?by="+by, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("by=%s status = %d, want 200", by, resp.StatusCode)
			continue
		}
		var body struct {
			Type    string          `json:"type"`
			Entries json.RawMessage `json:"entries"`
		}
		decodeBody(t, resp, &body)
		if body.Type != by {
			t.Errorf("type = %q, want %q", body.Type, by)
		}
		if !strings.Contains(string(body.Entries), "Tigers") && by == "national" {
			t.Errorf("national entries %s should include Tigers", body.Entries)
		}
	}

	resp := env.request(t, "GET", "/api/v1/leaderboard?by=galactic", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown board", resp.StatusCode)
	}
}

func TestValidateInitDataEndpoint(t *testing.T) {
	env := setupTestAPI(t)

	params := url.Values{}
	params.Set("user", `{"id": 42, "first_name": "Aziz", "username": "aziz"}`)
	params.Set("auth_date", fmt.Sprintf("%d", time.Now().Unix()))
	params.Set("hash", env.validator.Sign(params))
	initData := params.Encode()

	resp := env.request(t, "POST", "/api/v1/telegram/validate", ValidateRequest{InitData: initData}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var login auth.LoginResponse
	decodeBody(t, resp, &login)
	if login.Tokens.AccessToken == "" || login.Tokens.RefreshToken == "" {
		t.Error("expected a token pair")
	}
	if login.Player.Username != "aziz" {
		t.Errorf("player = %q, want aziz", login.Player.Username)
	}

	// Refresh with the issued token.
	resp = env.request(t, "POST", "/api/v1/auth/refresh", RefreshRequest{RefreshToken: login.Tokens.RefreshToken}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200", resp.StatusCode)
	}
	var pair auth.TokenPair
	decodeBody(t, resp, &pair)
	if pair.AccessToken == "" {
		t.Error("expected a fresh access token")
	}
}

func TestValidateInitDataRejected(t *testing.T) {
	env := setupTestAPI(t)

	resp := env.request(t, "POST", "/api/v1/telegram/validate", ValidateRequest{InitData: "hash=junk&user=x"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for forged initData", resp.StatusCode)
	}

	resp = env.request(t, "POST", "/api/v1/telegram/validate", ValidateRequest{}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for empty initData", resp.StatusCode)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	env := setupTestAPI(t)

	resp := env.request(t, "POST", "/api/v1/auth/refresh", RefreshRequest{RefreshToken: "garbage"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestUnwiredServicesReturn503(t *testing.T) {
	m := NewModule()
	m.initApp()

	targets := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/analyze-speech"},
		{"POST", "/api/v1/combat-voice"},
		{"POST", "/telegram"},
		{"POST", "/api/v1/telegram/validate"},
		{"POST", "/api/v1/clan/summon"},
		{"GET", "/api/v1/leaderboard"},
	}
	for _, target := range targets {
		req := httptest.NewRequest(target.method, target.path, strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		resp, err := m.app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test %s: %v", target.path, err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s %s status = %d, want 503", target.method, target.path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}
