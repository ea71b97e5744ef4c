package core

import (
	"errors"
	"testing"

	"codequest-backend-go/internal/catalog"
	"codequest-backend-go/internal/models"
)

func testLevel(t *testing.T, lang, id string) *catalog.Level {
	t.Helper()
	level, _, ok := catalog.LevelByID(lang, id)
	if !ok {
		t.Fatalf("catalog level %s/%s missing", lang, id)
	}
	return level
}

// answerAllQuizzes drives the attempt through its quiz phase with
// correct answers only.
func answerAllQuizzes(t *testing.T, a *Attempt) {
	t.Helper()
	level := a.Level()
	for i := range level.Quizzes {
		result, err := a.AnswerQuiz(level.Quizzes[i].CorrectIndex)
		if err != nil {
			t.Fatalf("AnswerQuiz(%d): %v", i, err)
		}
		if !result.Correct {
			t.Fatalf("correct option rejected for quiz %d", i)
		}
	}
}

func TestStateOf(t *testing.T) {
	profile := &models.UserProfile{
		LanguageProgress: map[string][]string{
			"JavaScript": {"start", "level-2"},
		},
	}

	cases := []struct {
		index int
		want  LevelState
	}{
		{0, LevelCompleted},  // start
		{1, LevelCompleted},  // level-2
		{2, LevelUnlockable}, // level-3: predecessor completed
		{3, LevelLocked},     // level-4
		{49, LevelLocked},
	}
	for _, tc := range cases {
		if got := StateOf(profile, "JavaScript", tc.index); got != tc.want {
			t.Errorf("StateOf(index %d) = %v, want %v", tc.index, got, tc.want)
		}
	}
}

func TestStateOfFirstLevelAlwaysReachable(t *testing.T) {
	profile := &models.UserProfile{LanguageProgress: map[string][]string{}}
	if got := StateOf(profile, "Python", 0); got != LevelUnlockable {
		t.Errorf("empty progress, index 0: %v, want unlockable", got)
	}
}

func TestStateOfOutOfRange(t *testing.T) {
	profile := &models.UserProfile{}
	if got := StateOf(profile, "Python", -1); got != LevelLocked {
		t.Errorf("index -1: %v, want locked", got)
	}
	if got := StateOf(profile, "Python", 500); got != LevelLocked {
		t.Errorf("index 500: %v, want locked", got)
	}
}

func TestAttemptPhaseOrder(t *testing.T) {
	level := testLevel(t, "JavaScript", "start")
	a := NewAttempt("uid-1", "JavaScript", level, false)

	if a.Phase() != PhaseTheory {
		t.Fatalf("initial phase = %v, want theory", a.Phase())
	}
	if _, err := a.AnswerQuiz(0); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("AnswerQuiz during theory: %v, want ErrWrongPhase", err)
	}
	if _, err := a.SubmitChallenge("x"); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("SubmitChallenge during theory: %v, want ErrWrongPhase", err)
	}

	if err := a.AcknowledgeTheory(); err != nil {
		t.Fatalf("AcknowledgeTheory: %v", err)
	}
	if a.Phase() != PhaseQuiz {
		t.Fatalf("phase after theory = %v, want quiz", a.Phase())
	}
	if err := a.AcknowledgeTheory(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("second AcknowledgeTheory: %v, want ErrWrongPhase", err)
	}
}

func TestAnswerQuizHintsAndSkip(t *testing.T) {
	level := testLevel(t, "JavaScript", "start")
	a := NewAttempt("uid-1", "JavaScript", level, false)
	if err := a.AcknowledgeTheory(); err != nil {
		t.Fatal(err)
	}

	item := level.Quizzes[0]
	wrong := (item.CorrectIndex + 1) % len(item.Options)

	// Skip is gated until the item has been missed twice.
	if _, err := a.SkipQuiz(); !errors.Is(err, ErrSkipNotAvailable) {
		t.Errorf("premature skip: %v, want ErrSkipNotAvailable", err)
	}

	result, err := a.AnswerQuiz(wrong)
	if err != nil {
		t.Fatal(err)
	}
	if result.Correct {
		t.Fatal("wrong option accepted")
	}
	if result.Hint != item.Hint1 {
		t.Errorf("first miss hint = %q, want tier-1 %q", result.Hint, item.Hint1)
	}
	if result.CanSkip {
		t.Error("skip offered after a single miss")
	}

	result, err = a.AnswerQuiz(wrong)
	if err != nil {
		t.Fatal(err)
	}
	if result.Hint != item.Hint2 {
		t.Errorf("second miss hint = %q, want tier-2 %q", result.Hint, item.Hint2)
	}
	if !result.CanSkip {
		t.Error("skip not offered after two misses")
	}
	if result.TotalWrong != 2 {
		t.Errorf("TotalWrong = %d, want 2", result.TotalWrong)
	}

	result, err = a.SkipQuiz()
	if err != nil {
		t.Fatalf("SkipQuiz: %v", err)
	}
	if result.NextQuizIndex != 1 {
		t.Errorf("NextQuizIndex after skip = %d, want 1", result.NextQuizIndex)
	}
	if result.TotalWrong != 2+SkipPenalty {
		t.Errorf("TotalWrong after skip = %d, want %d", result.TotalWrong, 2+SkipPenalty)
	}

	// The per-item counter resets: the next item gates skip again.
	if _, err := a.SkipQuiz(); !errors.Is(err, ErrSkipNotAvailable) {
		t.Errorf("skip carried over to next item: %v, want ErrSkipNotAvailable", err)
	}
}

func TestQuizAdvancesToChallenge(t *testing.T) {
	level := testLevel(t, "Python", "level-2")
	a := NewAttempt("uid-1", "Python", level, false)
	if err := a.AcknowledgeTheory(); err != nil {
		t.Fatal(err)
	}

	answerAllQuizzes(t, a)

	if a.Phase() != PhaseChallenge {
		t.Fatalf("phase after last quiz = %v, want challenge", a.Phase())
	}
	if a.TotalWrong() != 0 {
		t.Errorf("TotalWrong = %d after a perfect quiz run", a.TotalWrong())
	}
}

func TestSubmitChallengeMatching(t *testing.T) {
	level := testLevel(t, "JavaScript", "start")
	a := NewAttempt("uid-1", "JavaScript", level, false)
	if err := a.AcknowledgeTheory(); err != nil {
		t.Fatal(err)
	}
	answerAllQuizzes(t, a)

	solution := level.Challenges[0].Solution

	// A miss counts against the lesson-wide counter and stays in place.
	result, err := a.SubmitChallenge("completely wrong")
	if err != nil {
		t.Fatal(err)
	}
	if result.Correct || result.Finished {
		t.Fatalf("wrong submission accepted: %+v", result)
	}
	if a.TotalWrong() != 1 {
		t.Errorf("TotalWrong = %d, want 1", a.TotalWrong())
	}

	// Whitespace differences are ignored; containment is enough.
	padded := "  " + solution + "\n\nextra();  "
	result, err = a.SubmitChallenge(padded)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Correct {
		t.Fatalf("padded containing submission rejected: %q", padded)
	}
	if result.Finished {
		t.Fatal("finished after first of two challenges")
	}

	result, err = a.SubmitChallenge(level.Challenges[1].Solution)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Finished {
		t.Fatal("last challenge solved but not finished")
	}
	if a.Phase() != PhaseDone {
		t.Errorf("phase = %v, want done", a.Phase())
	}
	// One challenge miss: 1 total wrong lands in the 2-star band.
	if result.Stars != 2 {
		t.Errorf("Stars = %d, want 2", result.Stars)
	}
}

func TestSubmitChallengeAfterDoneRepeatsFinishedResult(t *testing.T) {
	level := testLevel(t, "JavaScript", "start")
	a := NewAttempt("uid-1", "JavaScript", level, false)
	if err := a.AcknowledgeTheory(); err != nil {
		t.Fatal(err)
	}
	answerAllQuizzes(t, a)
	for i := range level.Challenges {
		if _, err := a.SubmitChallenge(level.Challenges[i].Solution); err != nil {
			t.Fatalf("SubmitChallenge(%d): %v", i, err)
		}
	}
	if a.Phase() != PhaseDone {
		t.Fatalf("phase = %v, want done", a.Phase())
	}

	// A finished attempt keeps reporting its result regardless of the
	// submitted code, so the caller can re-run the completion write.
	result, err := a.SubmitChallenge("anything at all")
	if err != nil {
		t.Fatalf("SubmitChallenge after done: %v", err)
	}
	if !result.Finished || result.Phase != PhaseDone {
		t.Fatalf("resubmission result = %+v, want finished/done", result)
	}
	if result.Stars != 3 {
		t.Errorf("Stars = %d, want 3", result.Stars)
	}
}

func TestStarsBands(t *testing.T) {
	cases := []struct {
		totalWrong int
		want       int
	}{
		{0, 3},
		{1, 2},
		{3, 2},
		{4, 1},
		{10, 1},
	}
	for _, tc := range cases {
		a := &Attempt{totalWrong: tc.totalWrong}
		if got := a.Stars(); got != tc.want {
			t.Errorf("Stars with %d wrong = %d, want %d", tc.totalWrong, got, tc.want)
		}
	}
}

func TestStripWhitespace(t *testing.T) {
	got := stripWhitespace(" a\tb\nc  d\r\n")
	if got != "abcd" {
		t.Errorf("stripWhitespace = %q, want abcd", got)
	}
}
