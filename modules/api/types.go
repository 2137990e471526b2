package api

// ErrorResponse is the uniform error body for HTTP failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse aggregates module health for GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Modules map[string]any `json:"modules"`
}

// StartRaidRequest is the control payload for starting a raid.
type StartRaidRequest struct {
	BossHP int `json:"bossHP"`
}

// SuccessResponse acknowledges a control operation.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ValidateRequest carries Telegram Mini App initData.
type ValidateRequest struct {
	InitData string `json:"initData"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// CombatVoiceResponse is the voice attack scoring plus the transcript
// it was computed from.
type CombatVoiceResponse struct {
	Transcript string `json:"transcript"`
	Damage     int    `json:"damage"`
	IsCritical bool   `json:"isCritical"`
	Feedback   string `json:"feedback"`
	RecoilType string `json:"recoilType"`
}

// RaidStateResponse exposes a room snapshot for polling clients.
type RaidStateResponse struct {
	ClanID       string   `json:"clanId"`
	Active       bool     `json:"active"`
	Participants []string `json:"participants"`
	BossHP       int      `json:"bossHP"`
	MaxBossHP    int      `json:"maxBossHP"`
	Connected    int      `json:"connected"`
}

// combatTranscriptionPrompt steers Whisper for combat audio.
const combatTranscriptionPrompt = "English speech with Uzbek accent. Focus on comprehensibility. Common issues: W/V sounds, TH pronunciation."
