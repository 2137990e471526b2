package player

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrUserNotFound is returned when no user matches the query.
var ErrUserNotFound = errors.New("user not found")

// Repository provides database operations for users.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByUsername retrieves a user by display name.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindByTelegramID retrieves a user by Telegram account id.
func (r *Repository) FindByTelegramID(ctx context.Context, telegramID string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, "telegram_id = ?", telegramID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// Update persists all fields of an existing user.
func (r *Repository) Update(ctx context.Context, user *User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// AssignClan moves a user into a clan.
func (r *Repository) AssignClan(ctx context.Context, username string, clanID uint) error {
	result := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Update("clan_id", clanID)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to assign clan: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AwardXP atomically adds experience and credits to a user.
func (r *Repository) AwardXP(ctx context.Context, username string, xp, credits int) error {
	result := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Updates(map[string]any{
		"xp":              gorm.Expr("xp + ?", xp),
		"digital_credits": gorm.Expr("digital_credits + ?", credits),
	})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to award xp: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateStats replaces a user's skill stats.
func (r *Repository) UpdateStats(ctx context.Context, username string, stats Stats) error {
	result := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Update("stats", stats)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetDailyBattleCompleted flips the daily battle flag for one user.
func (r *Repository) SetDailyBattleCompleted(ctx context.Context, username string, done bool) error {
	result := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Update("daily_battle_completed", done)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to set daily battle flag: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ResetAllDailyBattles clears the daily battle flag for every user.
// Returns the number of rows touched.
func (r *Repository) ResetAllDailyBattles(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&User{}).Where("daily_battle_completed = ?", true).Update("daily_battle_completed", false)
	if err := result.Error; err != nil {
		return 0, fmt.Errorf("failed to reset daily battles: %w", err)
	}
	return result.RowsAffected, nil
}

// MembersOf lists all users in a clan.
func (r *Repository) MembersOf(ctx context.Context, clanID uint) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Where("clan_id = ?", clanID).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list clan members: %w", err)
	}
	return users, nil
}
