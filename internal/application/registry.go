package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports"
	"golang.org/x/sync/singleflight"
)

const defaultIdleTTL = 30 * time.Minute

// SessionView is a read-only snapshot of one registered session.
type SessionView struct {
	Session  domain.Session
	Degraded bool
	Loading  bool
}

type registryEntry struct {
	svc      *SessionService
	active   int
	lastUsed time.Time
}

// SessionRegistry keeps one SessionService per active dream. A dream that is
// not in memory is resumed from its durable record on first use. Completed
// sessions are dropped once their last call returns, idle ones after IdleTTL.
type SessionRegistry struct {
	deps    SessionDeps
	clock   ports.Clock
	idleTTL time.Duration
	resumes singleflight.Group

	mu       sync.Mutex
	sessions map[domain.DreamID]*registryEntry
}

func NewSessionRegistry(deps SessionDeps) *SessionRegistry {
	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	ttl := deps.Config.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}

	return &SessionRegistry{
		deps:     deps,
		clock:    clock,
		idleTTL:  ttl,
		sessions: map[domain.DreamID]*registryEntry{},
	}
}

func (r *SessionRegistry) Start(ctx context.Context, text string, owner domain.UserID) (TurnResult, error) {
	svc := NewSessionService(r.deps)
	result, err := svc.Start(ctx, text, owner)
	result.Degraded = svc.Degraded()
	if err != nil {
		return result, err
	}

	r.mu.Lock()
	now := r.clock.Now()
	r.sweepLocked(now)
	r.sessions[result.Session.Dream.ID] = &registryEntry{svc: svc, lastUsed: now}
	r.mu.Unlock()

	return result, nil
}

func (r *SessionRegistry) Answer(ctx context.Context, id domain.DreamID, text string) (TurnResult, error) {
	entry, err := r.acquire(ctx, id)
	if err != nil {
		return TurnResult{}, err
	}
	defer r.release(id, entry)

	result, err := entry.svc.SubmitAnswer(ctx, text)
	result.Degraded = entry.svc.Degraded()
	return result, err
}

// Snapshot never calls the assistant. A dream that is not in memory is read
// from its record without being registered.
func (r *SessionRegistry) Snapshot(ctx context.Context, id domain.DreamID) (SessionView, error) {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	r.mu.Unlock()

	if ok {
		session, _ := entry.svc.State().Session()
		return SessionView{
			Session:  session,
			Degraded: entry.svc.Degraded(),
			Loading:  entry.svc.State().Loading(),
		}, nil
	}

	result, err := NewSessionService(r.deps).Inspect(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return SessionView{Session: result.Session, Degraded: result.Degraded}, nil
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// acquire returns the session for id and marks it in use. Resuming runs
// outside r.mu; concurrent callers for the same id share one resume.
func (r *SessionRegistry) acquire(ctx context.Context, id domain.DreamID) (*registryEntry, error) {
	r.mu.Lock()
	r.sweepLocked(r.clock.Now())
	if entry, ok := r.sessions[id]; ok {
		entry.active++
		r.mu.Unlock()
		return entry, nil
	}
	r.mu.Unlock()

	v, err, _ := r.resumes.Do(string(id), func() (any, error) {
		r.mu.Lock()
		entry, ok := r.sessions[id]
		r.mu.Unlock()
		if ok {
			return entry, nil
		}

		svc := NewSessionService(r.deps)
		if _, err := svc.Resume(ctx, id); err != nil {
			return nil, err
		}

		entry = &registryEntry{svc: svc}
		r.mu.Lock()
		entry.lastUsed = r.clock.Now()
		r.sessions[id] = entry
		r.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	entry := v.(*registryEntry)
	r.mu.Lock()
	entry.active++
	r.mu.Unlock()
	return entry, nil
}

func (r *SessionRegistry) release(id domain.DreamID, entry *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.active--
	entry.lastUsed = r.clock.Now()
	if entry.active > 0 || r.sessions[id] != entry {
		return
	}
	if entry.svc.Phase() == domain.SessionStateComplete {
		delete(r.sessions, id)
	}
}

func (r *SessionRegistry) sweepLocked(now time.Time) {
	for id, entry := range r.sessions {
		if entry.active == 0 && now.Sub(entry.lastUsed) > r.idleTTL {
			delete(r.sessions, id)
		}
	}
}
