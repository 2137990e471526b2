package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// tokenKind distinguishes access from refresh tokens. The kind is embedded
// in the claims so one token can never stand in for the other.
type tokenKind string

const (
	kindAccess  tokenKind = "access"
	kindRefresh tokenKind = "refresh"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

// DefaultJWTConfig returns the default JWT configuration. The secret key
// must come from the environment in production.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		SecretKey:            secret,
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "synapse-rpg",
	}
}

func (c JWTConfig) durationFor(kind tokenKind) time.Duration {
	if kind == kindRefresh {
		return c.RefreshTokenDuration
	}
	return c.AccessTokenDuration
}

// JWTClaims carries the player identity inside tokens.
type JWTClaims struct {
	Username   string `json:"username"`
	TelegramID string `json:"telegram_id,omitempty"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies the player tokens.
type JWTManager struct {
	config JWTConfig
	secret []byte
	parser *jwt.Parser
}

// NewJWTManager creates a new JWTManager with the given configuration.
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{
		config: config,
		secret: []byte(config.SecretKey),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(config.Issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// GenerateAccessToken generates a new access token for the given player.
func (m *JWTManager) GenerateAccessToken(username, telegramID string) (string, error) {
	return m.sign(kindAccess, username, telegramID)
}

// GenerateRefreshToken generates a new refresh token for the given player.
func (m *JWTManager) GenerateRefreshToken(username, telegramID string) (string, error) {
	return m.sign(kindRefresh, username, telegramID)
}

func (m *JWTManager) sign(kind tokenKind, username, telegramID string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Username:   username,
		TelegramID: telegramID,
		TokenType:  string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.durationFor(kind))),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateAccessToken validates an access token.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	return m.validate(tokenString, kindAccess)
}

// ValidateRefreshToken validates a refresh token.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	return m.validate(tokenString, kindRefresh)
}

// ValidateToken validates a token of either kind and returns its claims.
func (m *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	return m.validate(tokenString, "")
}

// validate parses the token and, when kind is set, insists the claims carry
// that kind.
func (m *JWTManager) validate(tokenString string, kind tokenKind) (*JWTClaims, error) {
	var claims JWTClaims
	token, err := m.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if kind != "" && claims.TokenType != string(kind) {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// AccessTokenDuration returns the access token duration in seconds.
func (m *JWTManager) AccessTokenDuration() int64 {
	return int64(m.config.AccessTokenDuration.Seconds())
}
