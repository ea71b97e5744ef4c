package core

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"codequest-backend-go/internal/catalog"
	"codequest-backend-go/internal/models"
)

// LevelState is the progression state of one level for one user.
type LevelState string

const (
	// LevelLocked: the preceding level has not been completed.
	LevelLocked LevelState = "locked"
	// LevelUnlockable: first level, or the preceding level is completed.
	LevelUnlockable LevelState = "unlockable"
	// LevelCompleted: present in the user's progress set.
	LevelCompleted LevelState = "completed"
)

// SkipPenalty is added to the lesson-wide wrong counter when a quiz
// item is skipped.
const SkipPenalty = 2

// skipUnlockThreshold is the per-item wrong-answer count that makes
// the skip action available.
const skipUnlockThreshold = 2

// AttemptPhase is the stage of an in-progress level attempt.
type AttemptPhase string

const (
	PhaseTheory    AttemptPhase = "theory"
	PhaseQuiz      AttemptPhase = "quiz"
	PhaseChallenge AttemptPhase = "challenge"
	PhaseDone      AttemptPhase = "done"
)

// StateOf computes the progression state of the level at position index
// within lang's ordered level list. Unlock monotonicity: a level is
// unlockable iff it is first or its predecessor is completed.
func StateOf(profile *models.UserProfile, lang string, index int) LevelState {
	levels := catalog.Levels(lang)
	if index < 0 || index >= len(levels) {
		return LevelLocked
	}
	if profile.HasCompleted(lang, levels[index].ID) {
		return LevelCompleted
	}
	if index == 0 || profile.HasCompleted(lang, levels[index-1].ID) {
		return LevelUnlockable
	}
	return LevelLocked
}

// Attempt is the state machine for a single in-progress level run:
// theory → quiz items in order → challenges in order → done. One
// attempt exists per user at a time; a fresh attempt resets all
// counters.
type Attempt struct {
	ID       string
	UID      string
	Language string
	LevelID  string

	// Replay of an already-completed level: never debited again.
	Replay bool

	StartedAt time.Time

	mu           sync.Mutex
	level        *catalog.Level
	phase        AttemptPhase
	quizIdx      int
	challengeIdx int
	itemWrong    int
	totalWrong   int
}

// NewAttempt begins an attempt for the given level. Callers gate entry
// (level unlockable, balance sufficient) before constructing one.
func NewAttempt(uid, lang string, level *catalog.Level, replay bool) *Attempt {
	return &Attempt{
		ID:        uuid.NewString(),
		UID:       uid,
		Language:  lang,
		LevelID:   level.ID,
		Replay:    replay,
		StartedAt: time.Now().UTC(),
		level:     level,
		phase:     PhaseTheory,
	}
}

// QuizResult reports the outcome of an answer or skip.
type QuizResult struct {
	Correct bool `json:"correct"`
	// Hint is the tiered hint revealed on a wrong answer (first tier on
	// the first miss, second tier from the second miss on).
	Hint string `json:"hint,omitempty"`
	// CanSkip is true once the current item has been missed twice.
	CanSkip bool `json:"canSkip"`
	// NextQuizIndex is the 0-based index of the current/next quiz item.
	NextQuizIndex int `json:"nextQuizIndex"`
	// Phase after the action; advances to challenge past the last item.
	Phase AttemptPhase `json:"phase"`
	// TotalWrong is the lesson-wide wrong counter, including penalties.
	TotalWrong int `json:"totalWrong"`
}

// ChallengeResult reports the outcome of a code submission.
type ChallengeResult struct {
	Correct bool `json:"correct"`
	// NextChallengeIndex is the 0-based index of the current/next challenge.
	NextChallengeIndex int          `json:"nextChallengeIndex"`
	Phase              AttemptPhase `json:"phase"`
	// Finished is true when the last challenge was solved; the caller
	// then performs the completion write and reads Stars.
	Finished bool `json:"finished"`
	Stars    int  `json:"stars,omitempty"`
}

// Phase returns the current attempt phase.
func (a *Attempt) Phase() AttemptPhase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Level returns the attempt's catalog level.
func (a *Attempt) Level() *catalog.Level {
	return a.level
}

// Indices returns the current 0-based quiz and challenge positions.
func (a *Attempt) Indices() (quizIdx, challengeIdx int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quizIdx, a.challengeIdx
}

// AcknowledgeTheory moves the attempt from theory into the quiz phase.
func (a *Attempt) AcknowledgeTheory() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != PhaseTheory {
		return ErrWrongPhase
	}
	a.phase = PhaseQuiz
	if len(a.level.Quizzes) == 0 {
		a.phase = PhaseChallenge
	}
	return nil
}

// AnswerQuiz checks optionIndex against the current quiz item. A wrong
// answer increments both the per-item and lesson-wide counters and
// reveals the tiered hint; a correct answer advances to the next item,
// or to the challenge phase past the last one.
func (a *Attempt) AnswerQuiz(optionIndex int) (*QuizResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != PhaseQuiz {
		return nil, ErrWrongPhase
	}

	item := a.level.Quizzes[a.quizIdx]
	if optionIndex == item.CorrectIndex {
		a.itemWrong = 0
		a.advanceQuizLocked()
		return &QuizResult{
			Correct:       true,
			NextQuizIndex: a.quizIdx,
			Phase:         a.phase,
			TotalWrong:    a.totalWrong,
		}, nil
	}

	a.itemWrong++
	a.totalWrong++
	hint := item.Hint1
	if a.itemWrong >= 2 {
		hint = item.Hint2
	}
	return &QuizResult{
		Correct:       false,
		Hint:          hint,
		CanSkip:       a.itemWrong >= skipUnlockThreshold,
		NextQuizIndex: a.quizIdx,
		Phase:         a.phase,
		TotalWrong:    a.totalWrong,
	}, nil
}

// SkipQuiz advances past the current quiz item at a fixed penalty.
// Only available after two or more wrong answers on the item.
func (a *Attempt) SkipQuiz() (*QuizResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != PhaseQuiz {
		return nil, ErrWrongPhase
	}
	if a.itemWrong < skipUnlockThreshold {
		return nil, ErrSkipNotAvailable
	}

	a.itemWrong = 0
	a.totalWrong += SkipPenalty
	a.advanceQuizLocked()
	return &QuizResult{
		NextQuizIndex: a.quizIdx,
		Phase:         a.phase,
		TotalWrong:    a.totalWrong,
	}, nil
}

// SubmitChallenge compares the submission against the current
// challenge's solution with all whitespace stripped from both sides;
// containment or exact equality counts as success. Unlimited retries.
// Once the attempt is done, re-submission reports the finished result
// again without re-checking, so a failed completion write can be
// re-triggered by submitting once more.
func (a *Attempt) SubmitChallenge(code string) (*ChallengeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseDone {
		return &ChallengeResult{
			Correct:            true,
			NextChallengeIndex: a.challengeIdx,
			Phase:              PhaseDone,
			Finished:           true,
			Stars:              a.starsLocked(),
		}, nil
	}
	if a.phase != PhaseChallenge {
		return nil, ErrWrongPhase
	}

	challenge := a.level.Challenges[a.challengeIdx]
	submitted := stripWhitespace(code)
	solution := stripWhitespace(challenge.Solution)

	if !strings.Contains(submitted, solution) && submitted != solution {
		a.totalWrong++
		return &ChallengeResult{
			NextChallengeIndex: a.challengeIdx,
			Phase:              a.phase,
		}, nil
	}

	if a.challengeIdx < len(a.level.Challenges)-1 {
		a.challengeIdx++
		return &ChallengeResult{
			Correct:            true,
			NextChallengeIndex: a.challengeIdx,
			Phase:              a.phase,
		}, nil
	}

	a.phase = PhaseDone
	return &ChallengeResult{
		Correct:            true,
		NextChallengeIndex: a.challengeIdx,
		Phase:              PhaseDone,
		Finished:           true,
		Stars:              a.starsLocked(),
	}, nil
}

// Stars derives the presentational rating from the lesson-wide wrong
// counter: 0 wrong → 3, 1–3 → 2, 4+ → 1. Never persisted.
func (a *Attempt) Stars() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.starsLocked()
}

// TotalWrong returns the lesson-wide wrong counter including penalties.
func (a *Attempt) TotalWrong() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalWrong
}

func (a *Attempt) starsLocked() int {
	switch {
	case a.totalWrong == 0:
		return 3
	case a.totalWrong <= 3:
		return 2
	default:
		return 1
	}
}

func (a *Attempt) advanceQuizLocked() {
	if a.quizIdx < len(a.level.Quizzes)-1 {
		a.quizIdx++
		return
	}
	a.phase = PhaseChallenge
	if len(a.level.Challenges) == 0 {
		a.phase = PhaseDone
	}
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
