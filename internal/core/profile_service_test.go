package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"codequest-backend-go/internal/models"
	"codequest-backend-go/pkg/messagequeue"
)

func newTestProfileService(repo *fakeProfileRepo, queue *fakeQueue, adminEmails ...string) (ProfileService, *AttemptStore) {
	attempts := NewAttemptStore()
	normalizer := NewProfileNormalizer(adminEmails)
	// A nil *fakeQueue must stay a nil interface for the service's
	// queue-configured check.
	var mq messagequeue.MessageQueue
	if queue != nil {
		mq = queue
	}
	svc := NewProfileService(repo, normalizer, attempts, mq, zap.NewNop(), time.Second)
	return svc, attempts
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func finishAttempt(t *testing.T, a *Attempt) {
	t.Helper()
	if err := a.AcknowledgeTheory(); err != nil {
		t.Fatal(err)
	}
	answerAllQuizzes(t, a)
	for i := range a.Level().Challenges {
		result, err := a.SubmitChallenge(a.Level().Challenges[i].Solution)
		if err != nil {
			t.Fatalf("SubmitChallenge(%d): %v", i, err)
		}
		if !result.Correct {
			t.Fatalf("solution rejected for challenge %d", i)
		}
	}
	if a.Phase() != PhaseDone {
		t.Fatalf("attempt phase = %v after all challenges, want done", a.Phase())
	}
}

func TestGetOrCreateFirstSignIn(t *testing.T) {
	repo := newFakeProfileRepo()
	svc, _ := newTestProfileService(repo, nil)
	identity := models.Identity{UID: "uid-1", Email: "u@example.com", DisplayName: "U"}

	profile, created, err := svc.GetOrCreate(context.Background(), identity)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first sign-in should report created")
	}
	if profile.Coins != DefaultStartingCoins {
		t.Errorf("Coins = %d, want %d", profile.Coins, DefaultStartingCoins)
	}
	if doc := repo.doc("uid-1"); doc == nil {
		t.Fatal("profile document not persisted")
	}

	_, created, err = svc.GetOrCreate(context.Background(), identity)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second sign-in should not report created")
	}
}

func TestGetProfileNotFound(t *testing.T) {
	svc, _ := newTestProfileService(newFakeProfileRepo(), nil)
	_, err := svc.GetProfile(context.Background(), models.Identity{UID: "ghost"})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestDailyGrantResetsOncePerDay(t *testing.T) {
	repo := newFakeProfileRepo()
	queue := newFakeQueue()
	repo.seed(&models.RawProfileDocument{
		UID: "uid-1", Email: "u@example.com",
		Coins: intPtr(1), LastClaimed: "2020-01-01",
	})
	svc, _ := newTestProfileService(repo, queue)
	identity := models.Identity{UID: "uid-1", Email: "u@example.com"}

	profile, err := svc.GetProfile(context.Background(), identity)
	if err != nil {
		t.Fatal(err)
	}
	if profile.Coins != DefaultStartingCoins {
		t.Errorf("Coins = %d, want reset to %d", profile.Coins, DefaultStartingCoins)
	}
	if profile.LastClaimed != today() {
		t.Errorf("LastClaimed = %q, want %q", profile.LastClaimed, today())
	}
	doc := repo.doc("uid-1")
	if doc.Coins == nil || *doc.Coins != DefaultStartingCoins || doc.LastClaimed != today() {
		t.Errorf("persisted doc = %+v, want grant written through", doc)
	}
	if got := repo.updateCount(); got != 1 {
		t.Errorf("update count = %d, want 1", got)
	}
	if queue.count(QueueDailyGrant) != 1 {
		t.Errorf("daily grant events = %d, want 1", queue.count(QueueDailyGrant))
	}

	// Same calendar day: no further write.
	if _, err := svc.GetProfile(context.Background(), identity); err != nil {
		t.Fatal(err)
	}
	if got := repo.updateCount(); got != 1 {
		t.Errorf("update count after same-day re-check = %d, want 1", got)
	}
}

func TestDailyGrantSkipsAdmins(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.seed(&models.RawProfileDocument{
		UID: "uid-a", Email: "admin@example.com",
		Coins: intPtr(0), LastClaimed: "2020-01-01",
	})
	svc, _ := newTestProfileService(repo, nil, "admin@example.com")

	profile, err := svc.GetProfile(context.Background(), models.Identity{UID: "uid-a", Email: "admin@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if !profile.Balance.Unlimited {
		t.Error("admin balance should be unlimited")
	}
	if repo.updateCount() != 0 {
		t.Error("admin profile should never receive the daily grant write")
	}
}

func TestSelectLanguage(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.seed(&models.RawProfileDocument{UID: "uid-1", LastClaimed: today()})
	svc, _ := newTestProfileService(repo, nil)

	if err := svc.SelectLanguage(context.Background(), "uid-1", "Klingon"); !errors.Is(err, ErrUnknownLanguage) {
		t.Errorf("unsupported language: %v, want ErrUnknownLanguage", err)
	}
	if repo.updateCount() != 0 {
		t.Error("rejected selection must not write")
	}

	if err := svc.SelectLanguage(context.Background(), "uid-1", "Rust"); err != nil {
		t.Fatal(err)
	}
	if doc := repo.doc("uid-1"); doc.SelectedLanguage != "Rust" {
		t.Errorf("SelectedLanguage = %q, want Rust", doc.SelectedLanguage)
	}
}

func TestStartAttemptGates(t *testing.T) {
	identity := models.Identity{UID: "uid-1", Email: "u@example.com"}

	seedDoc := func(coins int) *fakeProfileRepo {
		repo := newFakeProfileRepo()
		repo.seed(&models.RawProfileDocument{
			UID: "uid-1", Email: "u@example.com",
			Coins: intPtr(coins), LastClaimed: today(),
		})
		return repo
	}

	t.Run("unknown level", func(t *testing.T) {
		svc, _ := newTestProfileService(seedDoc(5), nil)
		_, _, err := svc.StartAttempt(context.Background(), identity, "level-999")
		if !errors.Is(err, ErrUnknownLevel) {
			t.Errorf("err = %v, want ErrUnknownLevel", err)
		}
	})

	t.Run("locked level", func(t *testing.T) {
		svc, _ := newTestProfileService(seedDoc(5), nil)
		_, _, err := svc.StartAttempt(context.Background(), identity, "level-3")
		if !errors.Is(err, ErrLevelLocked) {
			t.Errorf("err = %v, want ErrLevelLocked", err)
		}
	})

	t.Run("insufficient coins", func(t *testing.T) {
		svc, _ := newTestProfileService(seedDoc(0), nil)
		_, _, err := svc.StartAttempt(context.Background(), identity, "level-2")
		if !errors.Is(err, ErrInsufficientCoins) {
			t.Errorf("err = %v, want ErrInsufficientCoins", err)
		}
	})

	t.Run("replay needs no coins", func(t *testing.T) {
		svc, _ := newTestProfileService(seedDoc(0), nil)
		attempt, _, err := svc.StartAttempt(context.Background(), identity, "start")
		if err != nil {
			t.Fatal(err)
		}
		if !attempt.Replay {
			t.Error("completed level should start as replay")
		}
	})

	t.Run("first run registers attempt", func(t *testing.T) {
		svc, attempts := newTestProfileService(seedDoc(5), nil)
		attempt, profile, err := svc.StartAttempt(context.Background(), identity, "level-2")
		if err != nil {
			t.Fatal(err)
		}
		if attempt.Replay {
			t.Error("fresh level should not be a replay")
		}
		// No language selected: progression defaults to JavaScript.
		if attempt.Language != "JavaScript" {
			t.Errorf("attempt language = %q, want JavaScript", attempt.Language)
		}
		if profile.Coins != 5 {
			t.Errorf("coins changed on start: %d", profile.Coins)
		}
		if _, ok := attempts.Get("uid-1", attempt.ID); !ok {
			t.Error("attempt not registered in store")
		}
	})
}

func TestCompleteLevelDebitsOnce(t *testing.T) {
	repo := newFakeProfileRepo()
	queue := newFakeQueue()
	repo.seed(&models.RawProfileDocument{
		UID: "uid-1", Email: "u@example.com",
		Coins: intPtr(5), LastClaimed: today(),
	})
	svc, attempts := newTestProfileService(repo, queue)
	identity := models.Identity{UID: "uid-1", Email: "u@example.com"}

	attempt, _, err := svc.StartAttempt(context.Background(), identity, "level-2")
	if err != nil {
		t.Fatal(err)
	}

	// Completion before the attempt is done is rejected.
	if err := svc.CompleteLevel(context.Background(), identity, attempt); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("premature completion: %v, want ErrWrongPhase", err)
	}

	finishAttempt(t, attempt)
	if err := svc.CompleteLevel(context.Background(), identity, attempt); err != nil {
		t.Fatal(err)
	}

	doc := repo.doc("uid-1")
	if doc.Coins == nil || *doc.Coins != 4 {
		t.Errorf("coins after completion = %v, want 4", doc.Coins)
	}
	if !containsString(doc.LanguageProgress["JavaScript"], "level-2") {
		t.Errorf("progress union missing level-2: %v", doc.LanguageProgress)
	}
	if _, ok := attempts.Get("uid-1", attempt.ID); ok {
		t.Error("finished attempt still registered")
	}
	if queue.count(QueueLevelCompleted) != 1 {
		t.Errorf("level completed events = %d, want 1", queue.count(QueueLevelCompleted))
	}
}

func TestCompleteLevelReplayNotDebited(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.seed(&models.RawProfileDocument{
		UID: "uid-1", Email: "u@example.com",
		Coins: intPtr(2), LastClaimed: today(),
		LanguageProgress: map[string][]string{"JavaScript": {"start", "level-2"}},
	})
	svc, _ := newTestProfileService(repo, nil)
	identity := models.Identity{UID: "uid-1", Email: "u@example.com"}

	attempt, _, err := svc.StartAttempt(context.Background(), identity, "level-2")
	if err != nil {
		t.Fatal(err)
	}
	if !attempt.Replay {
		t.Fatal("expected a replay attempt")
	}

	finishAttempt(t, attempt)
	if err := svc.CompleteLevel(context.Background(), identity, attempt); err != nil {
		t.Fatal(err)
	}
	if doc := repo.doc("uid-1"); doc.Coins == nil || *doc.Coins != 2 {
		t.Errorf("replay debited coins: %v", doc.Coins)
	}
}

func TestCompleteLevelAdminNotDebited(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.seed(&models.RawProfileDocument{
		UID: "uid-a", Email: "admin@example.com",
		Coins: intPtr(0), LastClaimed: today(),
	})
	svc, _ := newTestProfileService(repo, nil, "admin@example.com")
	identity := models.Identity{UID: "uid-a", Email: "admin@example.com"}

	attempt, _, err := svc.StartAttempt(context.Background(), identity, "level-2")
	if err != nil {
		t.Fatal(err)
	}
	finishAttempt(t, attempt)
	if err := svc.CompleteLevel(context.Background(), identity, attempt); err != nil {
		t.Fatal(err)
	}
	// The stored number is untouched; only the progress union lands.
	doc := repo.doc("uid-a")
	if doc.Coins == nil || *doc.Coins != 0 {
		t.Errorf("admin coins changed: %v", doc.Coins)
	}
	if !containsString(doc.LanguageProgress["JavaScript"], "level-2") {
		t.Errorf("progress union missing level-2: %v", doc.LanguageProgress)
	}
}

func TestCompleteLevelWriteFailureKeepsAttempt(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.seed(&models.RawProfileDocument{
		UID: "uid-1", Email: "u@example.com",
		Coins: intPtr(5), LastClaimed: today(),
	})
	svc, attempts := newTestProfileService(repo, nil)
	identity := models.Identity{UID: "uid-1", Email: "u@example.com"}

	attempt, _, err := svc.StartAttempt(context.Background(), identity, "level-2")
	if err != nil {
		t.Fatal(err)
	}
	finishAttempt(t, attempt)

	repo.mu.Lock()
	repo.updateErr = errors.New("write failed")
	repo.mu.Unlock()

	if err := svc.CompleteLevel(context.Background(), identity, attempt); err == nil {
		t.Fatal("completion write failure not surfaced")
	}
	// The attempt survives so the user can re-trigger completion.
	if _, ok := attempts.Get("uid-1", attempt.ID); !ok {
		t.Error("attempt discarded despite failed completion write")
	}

	repo.mu.Lock()
	repo.updateErr = nil
	repo.mu.Unlock()
	if err := svc.CompleteLevel(context.Background(), identity, attempt); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
}
