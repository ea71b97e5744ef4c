package models

// SelectLanguageRequest is the body for PUT /api/v1/users/me/language.
type SelectLanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

// StartAttemptRequest is the body for POST /api/v1/attempts.
type StartAttemptRequest struct {
	LevelID string `json:"levelId" binding:"required"`
}

// QuizAnswerRequest is the body for POST /api/v1/attempts/:attemptId/quiz.
// OptionIndex is a pointer so that a selected index of 0 survives
// required-field binding.
type QuizAnswerRequest struct {
	OptionIndex *int `json:"optionIndex" binding:"required"`
}

// ChallengeSubmissionRequest is the body for
// POST /api/v1/attempts/:attemptId/challenge.
type ChallengeSubmissionRequest struct {
	Code string `json:"code" binding:"required"`
}
