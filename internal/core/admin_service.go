package core

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"codequest-backend-go/internal/db"
	"codequest-backend-go/internal/models"
	"codequest-backend-go/pkg/cache"
)

const (
	// adminStatsSampleSize bounds the profile scan for the admin view.
	adminStatsSampleSize = 10

	adminStatsCacheKey = "admin:stats"
	adminStatsCacheTTL = 60 * time.Second
)

// adminService implements the AdminService interface.
type adminService struct {
	repo         db.ProfileRepository
	normalizer   *ProfileNormalizer
	statsCache   cache.Cache // nil when Redis is not configured
	logger       *zap.Logger
	storeTimeout time.Duration
}

// NewAdminService creates a new AdminService instance. statsCache may
// be nil; stats are then computed on every request.
func NewAdminService(
	repo db.ProfileRepository,
	normalizer *ProfileNormalizer,
	statsCache cache.Cache,
	logger *zap.Logger,
	storeTimeout time.Duration,
) AdminService {
	return &adminService{
		repo:         repo,
		normalizer:   normalizer,
		statsCache:   statsCache,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// Stats aggregates user count and total stored coins over a bounded
// sample of profiles. Admin profiles contribute their raw stored coin
// value to the total, matching what is actually persisted, not the
// display sentinel. Results are cached briefly; a cache failure only
// costs a recomputation.
func (s *adminService) Stats(ctx context.Context) (*AdminStats, error) {
	if s.statsCache != nil {
		if cached, err := s.statsCache.Get(ctx, adminStatsCacheKey); err == nil && cached != "" {
			var stats AdminStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return &stats, nil
			}
			s.logger.Warn("Discarding undecodable cached admin stats")
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	raws, err := s.repo.ListProfiles(opCtx, adminStatsSampleSize)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	stats := &AdminStats{Users: make([]*models.UserProfile, 0, len(raws))}
	for _, raw := range raws {
		profile := s.normalizer.Normalize(raw, models.Identity{UID: raw.UID})
		stats.TotalUsers++
		if raw.Coins != nil {
			stats.TotalCoins += *raw.Coins
		}
		stats.Users = append(stats.Users, profile)
	}

	if s.statsCache != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			if err := s.statsCache.Set(ctx, adminStatsCacheKey, string(encoded), adminStatsCacheTTL); err != nil {
				s.logger.Warn("Failed to cache admin stats", zap.Error(err))
			}
		}
	}
	return stats, nil
}
