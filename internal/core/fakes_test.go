package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"codequest-backend-go/internal/db"
	"codequest-backend-go/internal/models"
)

// fakeProfileRepo is an in-memory db.ProfileRepository. Update ops are
// interpreted the way Firestore's server-side transforms behave, and
// every successful write is fanned out to active watchers so
// reconciliation tests observe it through the subscription.
type fakeProfileRepo struct {
	mu       sync.Mutex
	docs     map[string]*models.RawProfileDocument
	watchers map[string][]chan db.ProfileSnapshot
	updates  int

	updateErr error
	watchErr  error
	// silent suppresses the initial snapshot after Watch, for timeout
	// and error-injection tests.
	silent bool
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		docs:     make(map[string]*models.RawProfileDocument),
		watchers: make(map[string][]chan db.ProfileSnapshot),
	}
}

func (f *fakeProfileRepo) seed(doc *models.RawProfileDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.UID] = doc
}

func (f *fakeProfileRepo) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

func (f *fakeProfileRepo) doc(uid string) *models.RawProfileDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyDoc(f.docs[uid])
}

func (f *fakeProfileRepo) Create(ctx context.Context, profile *models.UserProfile) error {
	f.mu.Lock()
	if _, ok := f.docs[profile.UID]; ok {
		f.mu.Unlock()
		return fmt.Errorf("profile for UID '%s' already exists", profile.UID)
	}
	coins := profile.Coins
	f.docs[profile.UID] = &models.RawProfileDocument{
		UID:              profile.UID,
		Email:            profile.Email,
		DisplayName:      profile.DisplayName,
		Coins:            &coins,
		LastClaimed:      profile.LastClaimed,
		IsAdmin:          profile.IsAdmin,
		LanguageProgress: copyProgressMap(profile.LanguageProgress),
		SelectedLanguage: profile.SelectedLanguage,
	}
	f.mu.Unlock()
	f.emit(profile.UID)
	return nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, uid string) (*models.RawProfileDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[uid]
	if !ok {
		return nil, fmt.Errorf("profile for UID '%s' not found: %w", uid, db.ErrNotFound)
	}
	return copyDoc(doc), nil
}

func (f *fakeProfileRepo) Update(ctx context.Context, uid string, updates []db.ProfileUpdate) error {
	f.mu.Lock()
	if f.updateErr != nil {
		err := f.updateErr
		f.mu.Unlock()
		return err
	}
	doc, ok := f.docs[uid]
	if !ok {
		f.mu.Unlock()
		return db.ErrNotFound
	}
	for _, u := range updates {
		switch {
		case u.Path == "coins" && u.Op == db.OpSet:
			n := u.Value.(int)
			doc.Coins = &n
		case u.Path == "coins" && u.Op == db.OpIncrement:
			cur := 0
			if doc.Coins != nil {
				cur = *doc.Coins
			}
			n := cur + u.Value.(int)
			doc.Coins = &n
		case u.Path == "lastClaimed" && u.Op == db.OpSet:
			doc.LastClaimed = u.Value.(string)
		case u.Path == "selectedLanguage" && u.Op == db.OpSet:
			doc.SelectedLanguage = u.Value.(string)
		case strings.HasPrefix(u.Path, "languageProgress.") && u.Op == db.OpArrayUnion:
			lang := strings.TrimPrefix(u.Path, "languageProgress.")
			if doc.LanguageProgress == nil {
				doc.LanguageProgress = make(map[string][]string)
			}
			id := u.Value.(string)
			if !containsString(doc.LanguageProgress[lang], id) {
				doc.LanguageProgress[lang] = append(doc.LanguageProgress[lang], id)
			}
		default:
			f.mu.Unlock()
			return fmt.Errorf("fake repo: unsupported update %q op %d", u.Path, u.Op)
		}
	}
	f.updates++
	f.mu.Unlock()
	f.emit(uid)
	return nil
}

func (f *fakeProfileRepo) Watch(ctx context.Context, uid string) (<-chan db.ProfileSnapshot, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	ch := make(chan db.ProfileSnapshot, 16)
	f.mu.Lock()
	f.watchers[uid] = append(f.watchers[uid], ch)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		list := f.watchers[uid]
		for i, c := range list {
			if c == ch {
				f.watchers[uid] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		f.mu.Unlock()
		close(ch)
	}()

	if !f.silent {
		f.emit(uid)
	}
	return ch, nil
}

func (f *fakeProfileRepo) ListProfiles(ctx context.Context, limit int) ([]*models.RawProfileDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.RawProfileDocument, 0, len(f.docs))
	for _, doc := range f.docs {
		if len(out) == limit {
			break
		}
		out = append(out, copyDoc(doc))
	}
	return out, nil
}

// emit delivers the current state of uid's document to its watchers.
func (f *fakeProfileRepo) emit(uid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := db.ProfileSnapshot{}
	if doc, ok := f.docs[uid]; ok {
		snap = db.ProfileSnapshot{Exists: true, Raw: copyDoc(doc)}
	}
	for _, ch := range f.watchers[uid] {
		ch <- snap
	}
}

// emitErr delivers an error snapshot to uid's watchers.
func (f *fakeProfileRepo) emitErr(uid string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.watchers[uid] {
		ch <- db.ProfileSnapshot{Err: err}
	}
}

func copyDoc(doc *models.RawProfileDocument) *models.RawProfileDocument {
	if doc == nil {
		return nil
	}
	out := *doc
	if doc.Coins != nil {
		coins := *doc.Coins
		out.Coins = &coins
	}
	out.LanguageProgress = copyProgressMap(doc.LanguageProgress)
	out.UnlockedLevels = append([]string(nil), doc.UnlockedLevels...)
	return &out
}

func copyProgressMap(progress map[string][]string) map[string][]string {
	if progress == nil {
		return nil
	}
	out := make(map[string][]string, len(progress))
	for lang, levels := range progress {
		out[lang] = append([]string(nil), levels...)
	}
	return out
}

// fakeQueue records published progress events.
type fakeQueue struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{messages: make(map[string][][]byte)}
}

func (q *fakeQueue) Publish(queueName string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages[queueName] = append(q.messages[queueName], body)
	return nil
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) count(queueName string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages[queueName])
}
