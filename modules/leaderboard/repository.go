// Package leaderboard serves the national and regional clan rankings as a
// cached read model over the clan database.
package leaderboard

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
)

// TopClanEntry is one row of the national ranking.
type TopClanEntry struct {
	Rank        int              `json:"rank"`
	ClanID      uint             `json:"clan_id"`
	Name        string           `json:"name"`
	Region      string           `json:"region"`
	Score       int64            `json:"score"`
	Members     int64            `json:"members"`
	SyncLevel   domain.SyncLevel `json:"sync_level"`
	SanityMeter float64          `json:"sanity_meter"`
}

// RegionalEntry is one row of the per-region ranking.
type RegionalEntry struct {
	Rank      int    `json:"rank"`
	Region    string `json:"region"`
	ClanCount int64  `json:"clan_count"`
	TotalXP   int64  `json:"total_xp"`
}

// Repository runs the ranking queries.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a leaderboard repository over the clan database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type topClanRow struct {
	ID          uint             `gorm:"column:id"`
	Name        string           `gorm:"column:name"`
	Region      string           `gorm:"column:region"`
	SanityMeter float64          `gorm:"column:sanity_meter"`
	SyncLevel   domain.SyncLevel `gorm:"column:sync_level"`
	MemberCount int64            `gorm:"column:member_count"`
	TotalXP     int64            `gorm:"column:total_xp"`
}

// TopClans ranks clans by the summed XP of their members.
func (r *Repository) TopClans(ctx context.Context, limit int) ([]TopClanEntry, error) {
	var rows []topClanRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			c.id,
			c.name,
			c.region,
			c.sanity_meter,
			c.sync_level,
			COUNT(u.id) AS member_count,
			COALESCE(SUM(u.xp), 0) AS total_xp
		FROM clans c
		LEFT JOIN users u ON u.clan_id = c.id
		GROUP BY c.id
		ORDER BY total_xp DESC
		LIMIT ?`, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top clans: %w", err)
	}

	entries := make([]TopClanEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, TopClanEntry{
			Rank:        i + 1,
			ClanID:      row.ID,
			Name:        row.Name,
			Region:      row.Region,
			Score:       row.TotalXP,
			Members:     row.MemberCount,
			SyncLevel:   row.SyncLevel,
			SanityMeter: row.SanityMeter,
		})
	}
	return entries, nil
}

type regionalRow struct {
	Region    string `gorm:"column:region"`
	ClanCount int64  `gorm:"column:clan_count"`
	TotalXP   int64  `gorm:"column:total_xp"`
}

// Regional ranks regions by the summed XP of their clans' members.
func (r *Repository) Regional(ctx context.Context) ([]RegionalEntry, error) {
	var rows []regionalRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			c.region,
			COUNT(DISTINCT c.id) AS clan_count,
			COALESCE(SUM(u.xp), 0) AS total_xp
		FROM clans c
		LEFT JOIN users u ON u.clan_id = c.id
		GROUP BY c.region
		ORDER BY total_xp DESC`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query regional leaderboard: %w", err)
	}

	entries := make([]RegionalEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, RegionalEntry{
			Rank:      i + 1,
			Region:    row.Region,
			ClanCount: row.ClanCount,
			TotalXP:   row.TotalXP,
		})
	}
	return entries, nil
}
