package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"codequest-backend-go/internal/catalog"
	"codequest-backend-go/internal/db"
	"codequest-backend-go/internal/models"
	"codequest-backend-go/pkg/messagequeue"
)

// Queue names for progress events. Consumers are out-of-band analytics
// tooling; publishing is fire-and-forget and never blocks a user flow.
const (
	QueueLevelCompleted = "progress.level_completed"
	QueueDailyGrant     = "progress.daily_grant"
)

// profileService implements the ProfileService interface.
type profileService struct {
	repo         db.ProfileRepository
	normalizer   *ProfileNormalizer
	attempts     *AttemptStore
	queue        messagequeue.MessageQueue // nil when RabbitMQ is not configured
	logger       *zap.Logger
	storeTimeout time.Duration
}

// NewProfileService creates a new ProfileService instance. queue may be
// nil; progress events are then skipped.
func NewProfileService(
	repo db.ProfileRepository,
	normalizer *ProfileNormalizer,
	attempts *AttemptStore,
	queue messagequeue.MessageQueue,
	logger *zap.Logger,
	storeTimeout time.Duration,
) ProfileService {
	return &profileService{
		repo:         repo,
		normalizer:   normalizer,
		attempts:     attempts,
		queue:        queue,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// GetOrCreate retrieves the identity's profile or synthesizes and
// persists a default one on first sign-in, then applies the daily grant.
func (s *profileService) GetOrCreate(ctx context.Context, identity models.Identity) (*models.UserProfile, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	raw, err := s.repo.GetByID(opCtx, identity.UID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return nil, false, classifyStoreError(err)
		}

		// First sign-in with no stored document: synthesize the full
		// default profile and persist it before exposing it downstream.
		profile := s.normalizer.NewDefaultProfile(identity)
		if createErr := s.repo.Create(opCtx, profile); createErr != nil {
			return nil, false, fmt.Errorf("failed to create profile for '%s': %w", identity.UID, classifyStoreError(createErr))
		}
		s.logger.Info("Profile created", zap.String("uid", identity.UID), zap.Bool("isAdmin", profile.IsAdmin))
		return profile, true, nil
	}

	profile := s.normalizer.Normalize(raw, identity)
	if err := s.ApplyDailyGrant(ctx, profile); err != nil {
		return nil, false, err
	}
	return profile, false, nil
}

// GetProfile retrieves and normalizes an existing profile, applying the
// daily grant.
func (s *profileService) GetProfile(ctx context.Context, identity models.Identity) (*models.UserProfile, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	raw, err := s.repo.GetByID(opCtx, identity.UID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, classifyStoreError(err)
	}

	profile := s.normalizer.Normalize(raw, identity)
	if err := s.ApplyDailyGrant(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ApplyDailyGrant performs the flat coin reset at most once per
// calendar day: coins back to the default and lastClaimed to today, in
// one atomic partial update. Re-checking on the same day is a no-op
// write-wise; admins are never granted.
func (s *profileService) ApplyDailyGrant(ctx context.Context, profile *models.UserProfile) error {
	if !s.normalizer.NeedsDailyGrant(profile) {
		return nil
	}

	today := s.normalizer.Today()
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.repo.Update(opCtx, profile.UID, []db.ProfileUpdate{
		{Path: "coins", Op: db.OpSet, Value: DefaultStartingCoins},
		{Path: "lastClaimed", Op: db.OpSet, Value: today},
	})
	if err != nil {
		return fmt.Errorf("daily grant write failed for '%s': %w", profile.UID, classifyStoreError(err))
	}

	profile.Coins = DefaultStartingCoins
	profile.LastClaimed = today
	profile.Balance = models.FiniteBalance(DefaultStartingCoins)
	s.logger.Info("Daily grant applied", zap.String("uid", profile.UID), zap.String("day", today))
	s.publishEvent(QueueDailyGrant, map[string]interface{}{
		"uid": profile.UID,
		"day": today,
	})
	return nil
}

// SelectLanguage sets the language the user is progressing through.
func (s *profileService) SelectLanguage(ctx context.Context, uid, language string) error {
	if !catalog.IsSupported(language) {
		return ErrUnknownLanguage
	}

	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.repo.Update(opCtx, uid, []db.ProfileUpdate{
		{Path: "selectedLanguage", Op: db.OpSet, Value: language},
	})
	if err != nil {
		return fmt.Errorf("language select write failed for '%s': %w", uid, classifyStoreError(err))
	}
	return nil
}

// StartAttempt gates entry to a level and registers a fresh attempt.
// Entry requires the level to be unlockable (or completed, for replay)
// and, for first completions by non-admins, a balance of at least one
// coin. Nothing is debited here; the charge lands on completion.
func (s *profileService) StartAttempt(ctx context.Context, identity models.Identity, levelID string) (*Attempt, *models.UserProfile, error) {
	profile, err := s.GetProfile(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	language := profile.SelectedLanguage
	if language == "" {
		language = defaultMigrationLanguage
	}

	level, index, ok := catalog.LevelByID(language, levelID)
	if !ok {
		return nil, nil, ErrUnknownLevel
	}

	state := StateOf(profile, language, index)
	if state == LevelLocked {
		return nil, nil, ErrLevelLocked
	}
	replay := state == LevelCompleted
	if !replay && !profile.Balance.CanSpend(1) {
		return nil, nil, ErrInsufficientCoins
	}

	attempt := NewAttempt(identity.UID, language, level, replay)
	s.attempts.Put(attempt)
	return attempt, profile, nil
}

// CompleteLevel performs the completion write for a finished attempt.
// The progress-set union and (for non-admin first completions) the
// 1-coin debit go out as a single partial update; its effect becomes
// visible through the next snapshot, never assumed locally.
func (s *profileService) CompleteLevel(ctx context.Context, identity models.Identity, attempt *Attempt) error {
	if attempt.Phase() != PhaseDone {
		return ErrWrongPhase
	}

	profile, err := s.GetProfile(ctx, identity)
	if err != nil {
		return err
	}

	debit := !attempt.Replay && !profile.IsAdmin
	if debit && !profile.Balance.CanSpend(1) {
		return ErrInsufficientCoins
	}

	updates := []db.ProfileUpdate{
		{Path: "languageProgress." + attempt.Language, Op: db.OpArrayUnion, Value: attempt.LevelID},
	}
	if debit {
		updates = append(updates, db.ProfileUpdate{Path: "coins", Op: db.OpIncrement, Value: -1})
	}

	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.Update(opCtx, attempt.UID, updates); err != nil {
		// Not retried automatically; the user re-triggers completion.
		return fmt.Errorf("level completion write failed for '%s': %w", attempt.UID, classifyStoreError(err))
	}

	s.attempts.Remove(attempt.ID)
	s.logger.Info("Level completed",
		zap.String("uid", attempt.UID),
		zap.String("language", attempt.Language),
		zap.String("levelId", attempt.LevelID),
		zap.Int("stars", attempt.Stars()),
		zap.Bool("debited", debit),
	)
	s.publishEvent(QueueLevelCompleted, map[string]interface{}{
		"uid":        attempt.UID,
		"language":   attempt.Language,
		"levelId":    attempt.LevelID,
		"stars":      attempt.Stars(),
		"totalWrong": attempt.TotalWrong(),
		"replay":     attempt.Replay,
	})
	return nil
}

// publishEvent sends a progress event to the message queue when one is
// configured. Failures are logged, never propagated into user flows.
func (s *profileService) publishEvent(queue string, payload map[string]interface{}) {
	if s.queue == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("Failed to encode progress event", zap.String("queue", queue), zap.Error(err))
		return
	}
	if err := s.queue.Publish(queue, body); err != nil {
		s.logger.Warn("Failed to publish progress event", zap.String("queue", queue), zap.Error(err))
	}
}
