package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"teknigo_backend/internal/common"
	"teknigo_backend/internal/config"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const cacheKey = "app"

// Service serves the settings document through a short-lived in-process cache.
type Service struct {
	repo   Repository
	cache  *cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a settings service. A non-positive SettingsCacheTTL disables caching.
func NewService(repo Repository, cfg *config.Config, logger *zap.Logger) *Service {
	s := &Service{
		repo:   repo,
		logger: logger.Named("settings"),
		now:    time.Now,
	}
	if cfg.SettingsCacheTTL > 0 {
		// Single key, so no janitor: expired entries are ignored on read and replaced on write.
		s.cache = cache.New(cfg.SettingsCacheTTL, 0)
	}
	return s
}

// Initialize creates the settings document with defaults if it does not exist.
func (s *Service) Initialize(ctx context.Context) (bool, error) {
	err := s.repo.Create(ctx, Defaults(s.now()))
	if errors.Is(err, common.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("initialize settings: %w", err)
	}
	s.invalidate()
	s.logger.Info("Created default settings document")
	return true, nil
}

// Get returns the current settings. A missing document reads as Defaults.
func (s *Service) Get(ctx context.Context) (*Settings, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(cacheKey); found {
			out := *cached.(*Settings)
			return &out, nil
		}
	}

	current, err := s.repo.Get(ctx)
	if errors.Is(err, common.ErrNotFound) {
		current = Defaults(s.now())
	} else if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, current, cache.DefaultExpiration)
	}

	out := *current
	return &out, nil
}

// Update merges the non-nil fields of req into the document.
func (s *Service) Update(ctx context.Context, req UpdateSettingsRequest, updatedBy string) (*Settings, error) {
	fields := req.fields()
	if len(fields) == 0 {
		return nil, common.ErrBadRequest.WithDetails("No settings to update.")
	}
	fields["updatedAt"] = s.now()
	fields["updatedBy"] = updatedBy

	if err := s.repo.Merge(ctx, fields); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	s.invalidate()
	s.logger.Info("Settings updated", zap.String("by", updatedBy), zap.Any("fields", fields))
	return s.Get(ctx)
}

// DisableMaintenance turns maintenance mode off.
func (s *Service) DisableMaintenance(ctx context.Context, updatedBy string) (*Settings, error) {
	off := false
	return s.Update(ctx, UpdateSettingsRequest{MaintenanceMode: &off}, updatedBy)
}

// MaintenanceEnabled reports the current flag, failing open to false when settings are unreadable.
func (s *Service) MaintenanceEnabled(ctx context.Context) bool {
	cur, err := s.Get(ctx)
	if err != nil {
		s.logger.Error("Failed to read settings for maintenance check", zap.Error(err))
		return false
	}
	return cur.MaintenanceMode
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Delete(cacheKey)
	}
}
