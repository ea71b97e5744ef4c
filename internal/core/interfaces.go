package core

import (
	"context"

	"codequest-backend-go/internal/models"
)

// ProfileService defines the profile lifecycle and progression-write
// operations.
type ProfileService interface {
	// GetOrCreate retrieves the identity's profile, synthesizing and
	// persisting a default one on first sign-in, and applies the daily
	// grant. Returns the normalized profile and whether it was created.
	GetOrCreate(ctx context.Context, identity models.Identity) (*models.UserProfile, bool, error)

	// GetProfile retrieves and normalizes an existing profile, applying
	// the daily grant.
	GetProfile(ctx context.Context, identity models.Identity) (*models.UserProfile, error)

	// ApplyDailyGrant performs the flat daily coin reset if it is due
	// for the profile, mutating it in place. Idempotent within a
	// calendar day; admins are never granted.
	ApplyDailyGrant(ctx context.Context, profile *models.UserProfile) error

	// SelectLanguage sets the language the user is progressing through.
	SelectLanguage(ctx context.Context, uid, language string) error

	// StartAttempt gates entry to a level (sequence position and
	// balance) and registers a fresh attempt for the user.
	StartAttempt(ctx context.Context, identity models.Identity, levelID string) (*Attempt, *models.UserProfile, error)

	// CompleteLevel performs the completion write for a finished
	// attempt: progress-set union plus a 1-coin debit for non-admin
	// first completions, in a single partial update.
	CompleteLevel(ctx context.Context, identity models.Identity, attempt *Attempt) error
}

// AdminService defines aggregate reporting over all profiles.
type AdminService interface {
	// Stats returns user count and total stored coins across a bounded
	// sample of profiles.
	Stats(ctx context.Context) (*AdminStats, error)
}

// AdminStats is the aggregate usage snapshot shown on the admin screen.
type AdminStats struct {
	TotalUsers int                   `json:"totalUsers"`
	TotalCoins int                   `json:"totalCoins"`
	Users      []*models.UserProfile `json:"users"`
}
