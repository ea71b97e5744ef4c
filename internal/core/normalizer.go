package core

import (
	"strings"
	"time"

	"codequest-backend-go/internal/catalog"
	"codequest-backend-go/internal/models"
)

// DefaultStartingCoins is granted on profile creation and by the daily
// flat reset.
const DefaultStartingCoins = 5

// defaultMigrationLanguage receives a legacy flat unlocked-levels list
// when the document has no selected language to attribute it to.
const defaultMigrationLanguage = "JavaScript"

// ProfileNormalizer upgrades raw stored documents (partial, possibly
// legacy-shaped) into complete UserProfiles. It is pure: no I/O, no
// clock access beyond the injected now func.
type ProfileNormalizer struct {
	adminAllowList map[string]bool
	now            func() time.Time
}

// NewProfileNormalizer creates a normalizer with the given admin email
// allow-list. Emails are matched case-insensitively.
func NewProfileNormalizer(adminEmails []string) *ProfileNormalizer {
	allow := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		allow[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &ProfileNormalizer{adminAllowList: allow, now: time.Now}
}

// Today returns the current calendar day as YYYY-MM-DD (UTC). Daily
// grants compare against this; time-of-day never matters.
func (n *ProfileNormalizer) Today() string {
	return n.now().UTC().Format("2006-01-02")
}

// IsAllowListed reports whether email is on the admin allow-list.
func (n *ProfileNormalizer) IsAllowListed(email string) bool {
	return email != "" && n.adminAllowList[strings.ToLower(email)]
}

// Normalize applies the upgrade rules in order: admin detection,
// balance substitution, legacy-shape migration, completeness fill.
// The stored coin value for admins is NOT rewritten; only the in-memory
// Balance becomes Unlimited.
func (n *ProfileNormalizer) Normalize(raw *models.RawProfileDocument, identity models.Identity) *models.UserProfile {
	isAdmin := n.IsAllowListed(firstNonEmpty(raw.Email, identity.Email)) || raw.IsAdmin

	profile := &models.UserProfile{
		UID:              firstNonEmpty(raw.UID, identity.UID),
		Email:            firstNonEmpty(raw.Email, identity.Email),
		DisplayName:      firstNonEmpty(raw.DisplayName, identity.DisplayName),
		LastClaimed:      raw.LastClaimed,
		IsAdmin:          isAdmin,
		SelectedLanguage: raw.SelectedLanguage,
		LanguageProgress: migrateProgress(raw),
	}

	if raw.Coins != nil && *raw.Coins > 0 {
		profile.Coins = *raw.Coins
	}
	if isAdmin {
		profile.Balance = models.UnlimitedBalance()
	} else {
		profile.Balance = models.FiniteBalance(profile.Coins)
	}
	return profile
}

// NewDefaultProfile synthesizes the profile persisted on the very first
// sign-in of an identity with no stored document.
func (n *ProfileNormalizer) NewDefaultProfile(identity models.Identity) *models.UserProfile {
	isAdmin := n.IsAllowListed(identity.Email)

	profile := &models.UserProfile{
		UID:              identity.UID,
		Email:            identity.Email,
		DisplayName:      identity.DisplayName,
		Coins:            DefaultStartingCoins,
		LastClaimed:      n.Today(),
		IsAdmin:          isAdmin,
		LanguageProgress: defaultProgressMap(),
		Balance:          models.FiniteBalance(DefaultStartingCoins),
	}
	if isAdmin {
		profile.Balance = models.UnlimitedBalance()
	}
	return profile
}

// NeedsDailyGrant reports whether the flat daily coin reset applies.
// Idempotent within a calendar day; admins are never granted.
func (n *ProfileNormalizer) NeedsDailyGrant(profile *models.UserProfile) bool {
	return !profile.IsAdmin && profile.LastClaimed != n.Today()
}

// migrateProgress detects the document's schema by shape and upgrades
// it. Version detection and steady-state defaults live in separate
// branches: a modern document keeps its map, a legacy document gets its
// flat unlockedLevels list attributed to the selected (or default)
// language. Both shapes then pass through the completeness fill.
func migrateProgress(raw *models.RawProfileDocument) map[string][]string {
	var progress map[string][]string

	switch {
	case len(raw.LanguageProgress) > 0:
		progress = make(map[string][]string, len(raw.LanguageProgress))
		for lang, levels := range raw.LanguageProgress {
			progress[lang] = append([]string(nil), levels...)
		}
	case len(raw.UnlockedLevels) > 0:
		lang := raw.SelectedLanguage
		if lang == "" {
			lang = defaultMigrationLanguage
		}
		progress = map[string][]string{
			lang: append([]string(nil), raw.UnlockedLevels...),
		}
	default:
		progress = make(map[string][]string, len(catalog.Languages))
	}

	// Completeness fill: every supported language has at least the
	// starting level, and no language's set is ever empty.
	for _, lang := range catalog.Languages {
		if len(progress[lang]) == 0 {
			progress[lang] = []string{catalog.StartLevelID}
		} else if !containsString(progress[lang], catalog.StartLevelID) {
			progress[lang] = append([]string{catalog.StartLevelID}, progress[lang]...)
		}
	}
	return progress
}

func defaultProgressMap() map[string][]string {
	progress := make(map[string][]string, len(catalog.Languages))
	for _, lang := range catalog.Languages {
		progress[lang] = []string{catalog.StartLevelID}
	}
	return progress
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
