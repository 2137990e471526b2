package clan

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrClanNotFound is returned when no clan matches the query.
var ErrClanNotFound = errors.New("clan not found")

// Repository provides database operations for clans.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new clan repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new clan.
func (r *Repository) Create(ctx context.Context, c *Clan) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create clan: %w", err)
	}
	return nil
}

// FindByID retrieves a clan by id.
func (r *Repository) FindByID(ctx context.Context, id uint) (*Clan, error) {
	var c Clan
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClanNotFound
		}
		return nil, fmt.Errorf("failed to find clan: %w", err)
	}
	return &c, nil
}

// FindByName retrieves a clan by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (*Clan, error) {
	var c Clan
	if err := r.db.WithContext(ctx).First(&c, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClanNotFound
		}
		return nil, fmt.Errorf("failed to find clan: %w", err)
	}
	return &c, nil
}

// FindByInviteCode retrieves a clan by invite code.
func (r *Repository) FindByInviteCode(ctx context.Context, code string) (*Clan, error) {
	var c Clan
	if err := r.db.WithContext(ctx).First(&c, "invite_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClanNotFound
		}
		return nil, fmt.Errorf("failed to find clan by invite code: %w", err)
	}
	return &c, nil
}

// SetSanity writes a clan's sanity meter.
func (r *Repository) SetSanity(ctx context.Context, id uint, sanity float64) error {
	result := r.db.WithContext(ctx).Model(&Clan{}).Where("id = ?", id).Update("sanity_meter", sanity)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to set sanity: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrClanNotFound
	}
	return nil
}

// AdjustSanityAll shifts every clan's sanity meter by delta, clamped to
// the 0..100 range.
func (r *Repository) AdjustSanityAll(ctx context.Context, delta float64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&Clan{}).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Update("sanity_meter", gorm.Expr("MIN(100.0, MAX(0.0, sanity_meter + ?))", delta))
	if err := result.Error; err != nil {
		return 0, fmt.Errorf("failed to adjust sanity: %w", err)
	}
	return result.RowsAffected, nil
}

// UpdateSyncLevel replaces a clan's sync level breakdown.
func (r *Repository) UpdateSyncLevel(ctx context.Context, id uint, sync SyncLevel) error {
	result := r.db.WithContext(ctx).Model(&Clan{}).Where("id = ?", id).Update("sync_level", sync)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update sync level: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrClanNotFound
	}
	return nil
}

// IDs returns every clan id, used by the raid scheduler.
func (r *Repository) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&Clan{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list clan ids: %w", err)
	}
	return ids, nil
}

// BelowSanity returns clans whose sanity meter dropped under the threshold.
func (r *Repository) BelowSanity(ctx context.Context, threshold float64) ([]Clan, error) {
	var clans []Clan
	if err := r.db.WithContext(ctx).Where("sanity_meter < ?", threshold).Find(&clans).Error; err != nil {
		return nil, fmt.Errorf("failed to list low-sanity clans: %w", err)
	}
	return clans, nil
}
