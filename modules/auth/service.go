package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
)

// Service authenticates Mini App sessions and issues tokens.
type Service struct {
	users     *player.Repository
	jwt       *JWTManager
	validator *InitDataValidator
}

// NewService creates the auth service.
func NewService(users *player.Repository, jwt *JWTManager, validator *InitDataValidator) *Service {
	return &Service{
		users:     users,
		jwt:       jwt,
		validator: validator,
	}
}

// Login validates Mini App init data, upserts the player account, and
// issues a token pair. Accounts are keyed by Telegram id; an existing
// account with a matching display name but no Telegram id gets attached.
func (s *Service) Login(ctx context.Context, initData string) (*LoginResponse, error) {
	tgUser, err := s.validator.Validate(initData, time.Now())
	if err != nil {
		return nil, err
	}

	telegramID := strconv.FormatInt(tgUser.ID, 10)
	username := tgUser.Username
	if username == "" {
		username = tgUser.FirstName
	}
	if username == "" {
		return nil, fmt.Errorf("%w: user has no name", ErrInvalidInitData)
	}

	account, err := s.users.FindByTelegramID(ctx, telegramID)
	if errors.Is(err, player.ErrUserNotFound) {
		account, err = s.attachOrCreate(ctx, username, telegramID)
	}
	if err != nil {
		return nil, err
	}

	access, err := s.jwt.GenerateAccessToken(account.Username, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(account.Username, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &LoginResponse{
		Tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    s.jwt.AccessTokenDuration(),
			TokenType:    "Bearer",
		},
		Player: PlayerInfo{
			Username:       account.Username,
			TelegramID:     telegramID,
			ClanID:         account.ClanID,
			XP:             account.XP,
			DigitalCredits: account.DigitalCredits,
			Region:         account.Region,
		},
	}, nil
}

func (s *Service) attachOrCreate(ctx context.Context, username, telegramID string) (*player.User, error) {
	account, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		account.TelegramID = &telegramID
		if err := s.users.Update(ctx, account); err != nil {
			return nil, err
		}
		return account, nil
	}
	if !errors.Is(err, player.ErrUserNotFound) {
		return nil, err
	}

	account = &player.User{
		Username:   username,
		TelegramID: &telegramID,
	}
	if err := s.users.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	// The account must still exist.
	if _, err := s.users.FindByUsername(ctx, claims.Username); err != nil {
		return nil, ErrInvalidToken
	}

	access, err := s.jwt.GenerateAccessToken(claims.Username, claims.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(claims.Username, claims.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}

// ValidateAccess checks an access token and returns its claims.
func (s *Service) ValidateAccess(tokenString string) (*JWTClaims, error) {
	return s.jwt.ValidateAccessToken(tokenString)
}
