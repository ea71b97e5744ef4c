package api

import (
	"codequest-backend-go/internal/catalog"
	"codequest-backend-go/internal/core"
	"codequest-backend-go/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message or code
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// NoticeResponse carries a transient, user-facing rejection notice for
// validation failures (locked level, insufficient coins). No state
// changed; the client may re-try the action.
type NoticeResponse struct {
	Notice string `json:"notice"`
}

// ProfileResponse is the client view of a normalized profile. An admin
// balance is rendered as the display sentinel here and only here; the
// domain never does arithmetic on it.
type ProfileResponse struct {
	UID              string              `json:"uid"`
	Email            string              `json:"email"`
	DisplayName      string              `json:"displayName,omitempty"`
	Coins            int                 `json:"coins"`
	LastClaimed      string              `json:"lastClaimed,omitempty"`
	IsAdmin          bool                `json:"isAdmin"`
	LanguageProgress map[string][]string `json:"languageProgress"`
	SelectedLanguage string              `json:"selectedLanguage,omitempty"`
}

// NewProfileResponse maps a normalized profile onto its client view.
func NewProfileResponse(p *models.UserProfile) ProfileResponse {
	coins := p.Coins
	if p.Balance.Unlimited {
		coins = models.AdminCoinsDisplay
	}
	return ProfileResponse{
		UID:              p.UID,
		Email:            p.Email,
		DisplayName:      p.DisplayName,
		Coins:            coins,
		LastClaimed:      p.LastClaimed,
		IsAdmin:          p.IsAdmin,
		LanguageProgress: p.LanguageProgress,
		SelectedLanguage: p.SelectedLanguage,
	}
}

// LevelSummaryResponse is one roadmap entry: identity plus the caller's
// progression state for it.
type LevelSummaryResponse struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	State core.LevelState `json:"state"`
}

// LevelDetailResponse is the readable part of a level. Quiz items and
// challenges are delivered through the attempt flow so their answers
// and solutions never reach the client.
type LevelDetailResponse struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Theory         catalog.Theory  `json:"theory"`
	QuizCount      int             `json:"quizCount"`
	ChallengeCount int             `json:"challengeCount"`
	State          core.LevelState `json:"state"`
}

// QuizItemView is a quiz item stripped of its correct index and hints;
// hints are revealed by wrong answers only.
type QuizItemView struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// ChallengeView is a coding challenge stripped of its solution.
type ChallengeView struct {
	Instruction string `json:"instruction"`
	InitialCode string `json:"initialCode"`
	Hint        string `json:"hint"`
	Language    string `json:"language"`
}

// AttemptResponse describes an in-progress attempt and whatever the
// current phase needs: the theory text, the current quiz item, or the
// current challenge.
type AttemptResponse struct {
	AttemptID string            `json:"attemptId"`
	LevelID   string            `json:"levelId"`
	Language  string            `json:"language"`
	Phase     core.AttemptPhase `json:"phase"`
	Replay    bool              `json:"replay"`

	Theory    *catalog.Theory `json:"theory,omitempty"`
	Quiz      *QuizItemView   `json:"quiz,omitempty"`
	Challenge *ChallengeView  `json:"challenge,omitempty"`

	QuizIndex      int `json:"quizIndex"`
	ChallengeIndex int `json:"challengeIndex"`
	QuizCount      int `json:"quizCount"`
	ChallengeCount int `json:"challengeCount"`
}

// QuizAnswerResponse is the outcome of an answer or skip plus the next
// item to show, when the quiz phase continues.
type QuizAnswerResponse struct {
	Result *core.QuizResult `json:"result"`
	Quiz   *QuizItemView    `json:"quiz,omitempty"`
	// Challenge is set when the quiz phase just finished.
	Challenge *ChallengeView `json:"challenge,omitempty"`
}

// ChallengeSubmissionResponse is the outcome of a code submission. On
// the final challenge, Completed reports whether the level completion
// write succeeded and Stars carries the rating for this run.
type ChallengeSubmissionResponse struct {
	Result    *core.ChallengeResult `json:"result"`
	Challenge *ChallengeView        `json:"challenge,omitempty"`
	Completed bool                  `json:"completed"`
}
