package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"codequest-backend-go/internal/db"
	"codequest-backend-go/internal/models"
)

// Reconciler keeps each signed-in identity's in-memory profile view in
// sync with its remote document. It is the identity listener of the
// system: Start reacts to a sign-in, Stop to a sign-out, and every
// intermediate state flows identity change → subscription change →
// snapshot → normalize → expose. Constructed once per process and
// explicitly started/stopped per identity; there is no ambient global
// state.
type Reconciler struct {
	repo         db.ProfileRepository
	profiles     ProfileService
	normalizer   *ProfileNormalizer
	logger       *zap.Logger
	storeTimeout time.Duration
	idleTTL      time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	janitorOnce sync.Once
	janitorStop chan struct{}
	stopJanitor sync.Once
}

// NewReconciler creates a Reconciler. Sessions untouched for longer
// than idleTTL are stopped by a background sweep, so identities that
// never sign out do not hold a watch open for the life of the process;
// an idleTTL of zero disables the sweep.
func NewReconciler(
	repo db.ProfileRepository,
	profiles ProfileService,
	normalizer *ProfileNormalizer,
	logger *zap.Logger,
	storeTimeout time.Duration,
	idleTTL time.Duration,
) *Reconciler {
	return &Reconciler{
		repo:         repo,
		profiles:     profiles,
		normalizer:   normalizer,
		logger:       logger,
		storeTimeout: storeTimeout,
		idleTTL:      idleTTL,
		sessions:     make(map[string]*Session),
		janitorStop:  make(chan struct{}),
	}
}

// Session is one identity's live reconciliation state: a single watch
// on the profile document and the latest normalized view of it.
type Session struct {
	identity models.Identity

	cancel context.CancelFunc
	done   chan struct{}

	// lastSeen is the unix-nano time of the last profile read; the
	// idle sweep stops sessions that have gone quiet.
	lastSeen atomic.Int64

	mu      sync.RWMutex
	current *models.UserProfile
	created bool
	err     error
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *Session) lastSeenTime() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Created reports whether this session synthesized and persisted the
// profile document (first sign-in of the identity).
func (s *Session) Created() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.created
}

// Current returns the latest normalized profile, or the session's
// terminal store error. A write's effect is only reflected here once
// its snapshot has arrived; callers must not assume earlier visibility.
func (s *Session) Current() (*models.UserProfile, error) {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.current == nil {
		return nil, ErrSessionNotStarted
	}
	return s.current, nil
}

func (s *Session) set(profile *models.UserProfile, err error) {
	s.mu.Lock()
	s.current = profile
	s.err = err
	s.mu.Unlock()
}

// Start establishes the reconciliation session for identity. Any prior
// session for the same UID is torn down first, before the new watch's
// first snapshot is processed, so a stale session's data is never
// observed. Start blocks until the first snapshot has been normalized
// (creating the profile document if it does not exist) or the store
// timeout budget elapses.
func (r *Reconciler) Start(ctx context.Context, identity models.Identity) (*Session, error) {
	// Teardown before establishing the new subscription.
	r.Stop(identity.UID)

	watchCtx, cancel := context.WithCancel(context.Background())
	snapshots, err := r.repo.Watch(watchCtx, identity.UID)
	if err != nil {
		cancel()
		return nil, classifyStoreError(err)
	}

	session := &Session{
		identity: identity,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	session.touch()
	ready := make(chan error, 1)
	go r.run(watchCtx, session, snapshots, ready)

	r.mu.Lock()
	r.sessions[identity.UID] = session
	r.mu.Unlock()
	if r.idleTTL > 0 {
		r.janitorOnce.Do(func() { go r.janitor() })
	}

	select {
	case err := <-ready:
		if err != nil {
			r.Stop(identity.UID)
			return nil, err
		}
		return session, nil
	case <-time.After(r.storeTimeout):
		r.Stop(identity.UID)
		r.logger.Warn("Timed out waiting for first profile snapshot", zap.String("uid", identity.UID))
		return nil, ErrStoreTimeout
	case <-ctx.Done():
		r.Stop(identity.UID)
		return nil, classifyStoreError(ctx.Err())
	}
}

// run consumes snapshots until the watch context is cancelled. The
// first snapshot's outcome is reported on ready exactly once.
func (r *Reconciler) run(ctx context.Context, session *Session, snapshots <-chan db.ProfileSnapshot, ready chan<- error) {
	defer close(session.done)

	first := true
	report := func(err error) {
		if first {
			first = false
			ready <- err
		}
	}

	for snap := range snapshots {
		if snap.Err != nil {
			storeErr := classifyStoreError(snap.Err)
			r.logger.Error("Profile snapshot error",
				zap.String("uid", session.identity.UID), zap.Error(snap.Err))
			session.set(nil, storeErr)
			report(storeErr)
			continue
		}

		if !snap.Exists {
			// Brand-new identity: persist the default profile. The
			// create is reflected back through the next snapshot.
			profile, created, err := r.profiles.GetOrCreate(ctx, session.identity)
			if err != nil {
				session.set(nil, err)
				report(err)
				continue
			}
			if created {
				session.mu.Lock()
				session.created = true
				session.mu.Unlock()
			}
			session.set(profile, nil)
			report(nil)
			continue
		}

		profile := r.normalizer.Normalize(snap.Raw, session.identity)
		if err := r.profiles.ApplyDailyGrant(ctx, profile); err != nil {
			// Grant failures are surfaced, not swallowed; the stale
			// profile view stays until the user retries.
			r.logger.Error("Daily grant failed during reconciliation",
				zap.String("uid", session.identity.UID), zap.Error(err))
			session.set(nil, err)
			report(err)
			continue
		}
		session.set(profile, nil)
		report(nil)
	}

	if ctx.Err() == nil {
		// Snapshot stream ended without cancellation.
		session.set(nil, ErrStoreTimeout)
		report(ErrStoreTimeout)
	} else {
		report(errors.New("session stopped"))
	}
}

// Stop tears down the session for uid, if any, and blocks until its
// watch goroutine has exited. After Stop returns, no further profile
// events are delivered for that identity until a new Start.
func (r *Reconciler) Stop(uid string) {
	r.mu.Lock()
	session, ok := r.sessions[uid]
	if ok {
		delete(r.sessions, uid)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	session.cancel()
	<-session.done
	r.logger.Info("Reconciliation session stopped", zap.String("uid", uid))
}

// janitor periodically sweeps idle sessions until StopAll.
func (r *Reconciler) janitor() {
	ticker := time.NewTicker(r.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-r.janitorStop:
			return
		case <-ticker.C:
			r.sweepIdle(time.Now())
		}
	}
}

// sweepIdle stops every session whose last profile read is older than
// the idle TTL. The watch for such an identity is re-established by
// the next initialize, exactly as after a sign-out.
func (r *Reconciler) sweepIdle(now time.Time) {
	r.mu.Lock()
	var idle []string
	for uid, session := range r.sessions {
		if now.Sub(session.lastSeenTime()) > r.idleTTL {
			idle = append(idle, uid)
		}
	}
	r.mu.Unlock()

	for _, uid := range idle {
		r.logger.Info("Stopping idle reconciliation session", zap.String("uid", uid))
		r.Stop(uid)
	}
}

// StopAll tears down every active session; used on shutdown.
func (r *Reconciler) StopAll() {
	r.stopJanitor.Do(func() { close(r.janitorStop) })
	r.mu.Lock()
	uids := make([]string, 0, len(r.sessions))
	for uid := range r.sessions {
		uids = append(uids, uid)
	}
	r.mu.Unlock()
	for _, uid := range uids {
		r.Stop(uid)
	}
}

// SessionFor returns the active session for uid.
func (r *Reconciler) SessionFor(uid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[uid]
	return session, ok
}
