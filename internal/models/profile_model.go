package models

// Identity carries the user information extracted from a verified
// Firebase ID token. It is the only thing the reconciliation core
// knows about the identity provider.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Balance is the effective spendable currency of a profile.
// Admin profiles carry an Unlimited balance; everyone else a finite
// coin count. Spend logic must pattern-match on the variant instead of
// comparing against a numeric sentinel, so "infinite" never takes part
// in arithmetic.
type Balance struct {
	Unlimited bool
	Coins     int
}

// FiniteBalance returns a spendable balance of n coins (floored at 0).
func FiniteBalance(n int) Balance {
	if n < 0 {
		n = 0
	}
	return Balance{Coins: n}
}

// UnlimitedBalance returns the admin balance variant.
func UnlimitedBalance() Balance {
	return Balance{Unlimited: true}
}

// CanSpend reports whether the balance covers a debit of n coins.
func (b Balance) CanSpend(n int) bool {
	return b.Unlimited || b.Coins >= n
}

// AdminCoinsDisplay is the sentinel rendered to clients for an
// Unlimited balance. It exists only at the DTO boundary; nothing in
// the domain ever stores or spends against it.
const AdminCoinsDisplay = 999999

// UserProfile is the normalized per-user progression and currency
// record, keyed by the Firebase Auth UID. The raw Firestore document
// may be partial or legacy-shaped; handlers and services only ever see
// this normalized form.
type UserProfile struct {
	UID              string              `json:"uid" firestore:"uid"`
	Email            string              `json:"email" firestore:"email"`
	DisplayName      string              `json:"displayName,omitempty" firestore:"displayName"`
	Coins            int                 `json:"coins" firestore:"coins"`
	LastClaimed      string              `json:"lastClaimed,omitempty" firestore:"lastClaimed"`
	IsAdmin          bool                `json:"isAdmin" firestore:"isAdmin"`
	LanguageProgress map[string][]string `json:"languageProgress" firestore:"languageProgress"`
	SelectedLanguage string              `json:"selectedLanguage,omitempty" firestore:"selectedLanguage"`

	// Balance is the effective spendable currency derived during
	// normalization. Not persisted; the stored Coins number is left
	// untouched for admins.
	Balance Balance `json:"-" firestore:"-"`
}

// HasCompleted reports whether levelID is in the completed set for lang.
func (p *UserProfile) HasCompleted(lang, levelID string) bool {
	for _, id := range p.LanguageProgress[lang] {
		if id == levelID {
			return true
		}
	}
	return false
}

// RawProfileDocument is the wire shape of the Firestore document,
// including legacy fields. It exists so the normalizer can detect old
// document shapes by structure before upgrading them.
type RawProfileDocument struct {
	UID              string              `firestore:"uid"`
	Email            string              `firestore:"email"`
	DisplayName      string              `firestore:"displayName"`
	Coins            *int                `firestore:"coins"`
	LastClaimed      string              `firestore:"lastClaimed"`
	IsAdmin          bool                `firestore:"isAdmin"`
	LanguageProgress map[string][]string `firestore:"languageProgress"`
	SelectedLanguage string              `firestore:"selectedLanguage"`

	// UnlockedLevels is the pre-languageProgress flat list written by
	// early versions of the app. Migrated by the normalizer.
	UnlockedLevels []string `firestore:"unlockedLevels"`
}
