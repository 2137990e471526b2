// Package clan defines the clan entity and its sync-level aggregate.
package clan

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SyncLevel is the clan-wide skill aggregate, stored as a JSON column.
type SyncLevel struct {
	Vocabulary int `json:"vocabulary"`
	Syntax     int `json:"syntax"`
	Fluency    int `json:"fluency"`
}

// Value implements driver.Valuer so GORM stores SyncLevel as JSON text.
func (s SyncLevel) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *SyncLevel) Scan(value any) error {
	if value == nil {
		*s = SyncLevel{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported sync_level column type %T", value)
	}
}

// Clan represents a group of players raiding together.
type Clan struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;type:text" json:"name"`
	SanityMeter float64   `gorm:"default:100" json:"sanity_meter"`
	SyncLevel   SyncLevel `gorm:"type:text" json:"sync_level"`
	Region      string    `gorm:"type:text;default:Tashkent" json:"region"`
	InviteCode  string    `gorm:"uniqueIndex;type:text" json:"invite_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}

// TableName returns the table name for the Clan entity.
func (Clan) TableName() string {
	return "clans"
}
