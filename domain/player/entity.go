// Package player defines the user entity persisted for each player.
package player

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Stats holds a player's per-skill progress, stored as a JSON column.
type Stats struct {
	Vocabulary int `json:"vocabulary"`
	Syntax     int `json:"syntax"`
	Fluency    int `json:"fluency"`
}

// Value implements driver.Valuer so GORM stores Stats as JSON text.
func (s Stats) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *Stats) Scan(value any) error {
	if value == nil {
		*s = Stats{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported stats column type %T", value)
	}
}

// User represents a player account.
type User struct {
	ID                   uint    `gorm:"primaryKey" json:"id"`
	Username             string  `gorm:"uniqueIndex;not null;type:text" json:"username"`
	TelegramID           *string `gorm:"uniqueIndex;type:text" json:"telegram_id,omitempty"`
	ClanID               *uint   `gorm:"index" json:"clan_id,omitempty"`
	XP                   int     `gorm:"default:0" json:"xp"`
	DigitalCredits       float64 `gorm:"default:0" json:"digital_credits"`
	DailyBattleCompleted bool    `gorm:"default:false" json:"daily_battle_completed"`
	Region               string  `gorm:"type:text;default:Tashkent" json:"region"`
	Stats                Stats   `gorm:"type:text" json:"stats"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}
