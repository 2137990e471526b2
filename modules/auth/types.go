package auth

// LoginRequest authenticates a Telegram Mini App session.
type LoginRequest struct {
	InitData string `json:"init_data"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPair is the issued token set.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// PlayerInfo is the account summary returned on login.
type PlayerInfo struct {
	Username       string  `json:"username"`
	TelegramID     string  `json:"telegram_id"`
	ClanID         *uint   `json:"clan_id,omitempty"`
	XP             int     `json:"xp"`
	DigitalCredits float64 `json:"digital_credits"`
	Region         string  `json:"region"`
}

// LoginResponse carries the tokens plus the resolved account.
type LoginResponse struct {
	Tokens TokenPair  `json:"tokens"`
	Player PlayerInfo `json:"player"`
}
