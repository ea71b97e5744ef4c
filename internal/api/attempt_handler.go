package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codequest-backend-go/internal/catalog"
	"codequest-backend-go/internal/core"
	"codequest-backend-go/internal/models"
)

// AttemptHandler drives the lesson flow: start, theory acknowledgment,
// quiz answers and skips, and challenge submissions.
type AttemptHandler struct {
	profiles core.ProfileService
	attempts *core.AttemptStore
	logger   *zap.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(profiles core.ProfileService, attempts *core.AttemptStore, logger *zap.Logger) *AttemptHandler {
	return &AttemptHandler{profiles: profiles, attempts: attempts, logger: logger}
}

// StartAttempt handles POST /api/v1/attempts. Entry is gated on the
// level being reachable and, for non-admin first completions, on a
// balance of at least one coin; nothing is debited until completion.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return
	}

	var req models.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	attempt, _, err := h.profiles.StartAttempt(c.Request.Context(), identity, req.LevelID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, h.attemptView(attempt))
}

// AcknowledgeTheory handles POST /api/v1/attempts/:attemptId/theory,
// moving the attempt into its quiz phase.
func (h *AttemptHandler) AcknowledgeTheory(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}
	if err := attempt.AcknowledgeTheory(); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.attemptView(attempt))
}

// AnswerQuiz handles POST /api/v1/attempts/:attemptId/quiz.
func (h *AttemptHandler) AnswerQuiz(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	var req models.QuizAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	result, err := attempt.AnswerQuiz(*req.OptionIndex)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.quizAnswerView(attempt, result))
}

// SkipQuiz handles POST /api/v1/attempts/:attemptId/quiz/skip. Only
// available after two wrong answers on the current item; costs a fixed
// penalty on the lesson-wide wrong counter.
func (h *AttemptHandler) SkipQuiz(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	result, err := attempt.SkipQuiz()
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.quizAnswerView(attempt, result))
}

// SubmitChallenge handles POST /api/v1/attempts/:attemptId/challenge.
// Solving the last challenge completes the level: the progress union
// and coin debit are written in one update and the star rating is
// returned. If that write fails the attempt stays finished so the user
// can re-submit; nothing is retried automatically.
func (h *AttemptHandler) SubmitChallenge(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return
	}
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	var req models.ChallengeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	result, err := attempt.SubmitChallenge(req.Code)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	resp := ChallengeSubmissionResponse{Result: result}
	if result.Finished {
		if err := h.profiles.CompleteLevel(c.Request.Context(), identity, attempt); err != nil {
			respondServiceError(c, h.logger, err)
			return
		}
		resp.Completed = true
	} else {
		resp.Challenge = h.challengeView(attempt)
	}
	c.JSON(http.StatusOK, resp)
}

// ownedAttempt resolves :attemptId for the authenticated user, or
// writes the rejection response and reports false.
func (h *AttemptHandler) ownedAttempt(c *gin.Context) (*core.Attempt, bool) {
	identity, ok := identityFromContext(c)
	if !ok {
		abortMissingIdentity(c, h.logger)
		return nil, false
	}
	attempt, ok := h.attempts.Get(identity.UID, c.Param("attemptId"))
	if !ok {
		respondServiceError(c, h.logger, core.ErrAttemptNotFound)
		return nil, false
	}
	return attempt, true
}

func (h *AttemptHandler) attemptView(attempt *core.Attempt) AttemptResponse {
	level := attempt.Level()
	quizIdx, challengeIdx := attempt.Indices()
	resp := AttemptResponse{
		AttemptID:      attempt.ID,
		LevelID:        attempt.LevelID,
		Language:       attempt.Language,
		Phase:          attempt.Phase(),
		Replay:         attempt.Replay,
		QuizIndex:      quizIdx,
		ChallengeIndex: challengeIdx,
		QuizCount:      len(level.Quizzes),
		ChallengeCount: len(level.Challenges),
	}
	switch resp.Phase {
	case core.PhaseTheory:
		theory := level.Theory
		resp.Theory = &theory
	case core.PhaseQuiz:
		resp.Quiz = quizView(level, quizIdx)
	case core.PhaseChallenge:
		resp.Challenge = h.challengeView(attempt)
	}
	return resp
}

func (h *AttemptHandler) quizAnswerView(attempt *core.Attempt, result *core.QuizResult) QuizAnswerResponse {
	resp := QuizAnswerResponse{Result: result}
	switch result.Phase {
	case core.PhaseQuiz:
		resp.Quiz = quizView(attempt.Level(), result.NextQuizIndex)
	case core.PhaseChallenge:
		resp.Challenge = h.challengeView(attempt)
	}
	return resp
}

func (h *AttemptHandler) challengeView(attempt *core.Attempt) *ChallengeView {
	level := attempt.Level()
	_, challengeIdx := attempt.Indices()
	if challengeIdx >= len(level.Challenges) {
		return nil
	}
	ch := level.Challenges[challengeIdx]
	return &ChallengeView{
		Instruction: ch.Instruction,
		InitialCode: ch.InitialCode,
		Hint:        ch.Hint,
		Language:    ch.Language,
	}
}

func quizView(level *catalog.Level, idx int) *QuizItemView {
	if idx >= len(level.Quizzes) {
		return nil
	}
	item := level.Quizzes[idx]
	return &QuizItemView{Question: item.Question, Options: item.Options}
}
