package loginsecurity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"teknigo_backend/internal/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists login attempts and rate limit counters.
type Repository interface {
	FindAttempt(ctx context.Context, kind IdentifierKind, identifier string) (*LoginAttempt, error)
	SaveAttempt(ctx context.Context, attempt *LoginAttempt) error
	DeleteAttempt(ctx context.Context, kind IdentifierKind, identifier string) error
	// UpdateAttempt runs fn on the identifier's row while holding its lock and stores the row
	// when fn returns true. A missing row reaches fn with zero counters.
	UpdateAttempt(ctx context.Context, kind IdentifierKind, identifier string, fn func(*LoginAttempt) bool) error
	FindRateLimit(ctx context.Context, key string) (*RateLimit, error)
	// UpdateRateLimit is UpdateAttempt for rate limit counters.
	UpdateRateLimit(ctx context.Context, key string, category Category, fn func(*RateLimit) bool) error
	Purge(ctx context.Context, cutoff, now time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates the repository and migrates its tables.
func NewGORMRepository(db *gorm.DB) (Repository, error) {
	if err := db.AutoMigrate(&LoginAttempt{}, &RateLimit{}); err != nil {
		return nil, fmt.Errorf("failed to migrate login security tables: %w", err)
	}
	return &gormRepository{db: db}, nil
}

func (r *gormRepository) FindAttempt(ctx context.Context, kind IdentifierKind, identifier string) (*LoginAttempt, error) {
	var attempt LoginAttempt
	err := r.db.WithContext(ctx).
		Where("identifier = ? AND kind = ?", identifier, kind).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// SaveAttempt upserts the full row.
func (r *gormRepository) SaveAttempt(ctx context.Context, attempt *LoginAttempt) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(attempt).Error
}

func (r *gormRepository) UpdateAttempt(ctx context.Context, kind IdentifierKind, identifier string, fn func(*LoginAttempt) bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Concurrent first failures must contend on an existing row, so insert a placeholder.
		seed := LoginAttempt{Identifier: identifier, Kind: kind}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		var attempt LoginAttempt
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("identifier = ? AND kind = ?", identifier, kind).
			First(&attempt).Error; err != nil {
			return err
		}
		if !fn(&attempt) {
			return nil
		}
		return tx.Save(&attempt).Error
	})
}

func (r *gormRepository) DeleteAttempt(ctx context.Context, kind IdentifierKind, identifier string) error {
	return r.db.WithContext(ctx).
		Where("identifier = ? AND kind = ?", identifier, kind).
		Delete(&LoginAttempt{}).Error
}

func (r *gormRepository) FindRateLimit(ctx context.Context, key string) (*RateLimit, error) {
	var rl RateLimit
	if err := r.db.WithContext(ctx).Where("limit_key = ?", key).First(&rl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &rl, nil
}

func (r *gormRepository) UpdateRateLimit(ctx context.Context, key string, category Category, fn func(*RateLimit) bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := RateLimit{Key: key, Category: category}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		var rl RateLimit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("limit_key = ?", key).
			First(&rl).Error; err != nil {
			return err
		}
		if !fn(&rl) {
			return nil
		}
		return tx.Save(&rl).Error
	})
}

// Purge deletes rows untouched since cutoff. Login attempts that are still blocked at now are kept.
func (r *gormRepository) Purge(ctx context.Context, cutoff, now time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("last_attempt_at < ? AND (block_until IS NULL OR block_until < ?)", cutoff, now).
			Delete(&LoginAttempt{})
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected

		res = tx.Where("last_attempt_at < ?", cutoff).Delete(&RateLimit{})
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		return nil
	})
	return total, err
}
