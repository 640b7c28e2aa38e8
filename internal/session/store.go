package session

import (
	"context"
	"sync"

	"github.com/acompana/portal/internal/identity"
	"github.com/acompana/portal/internal/log"
)

// Phase classifies the session state for navigation decisions.
//
// The phase plus the identity snapshot is everything the router needs;
// consumers never inspect loading flags or role validity separately, so
// an unhandled combination cannot exist.
type Phase int

const (
	// PhaseLoading means the durable storage has not been read yet
	PhaseLoading Phase = iota
	// PhaseUnauthenticated means there is no session
	PhaseUnauthenticated
	// PhasePendingRole means an identity exists but its role is not yet
	// valid; it must not be routed into any role-specific view
	PhasePendingRole
	// PhaseAuthenticated means a valid identity backs the session
	PhaseAuthenticated
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhasePendingRole:
		return "pending-role"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the session.
type State struct {
	Phase    Phase
	Identity *identity.Identity
}

// Event describes a session change delivered to subscribers.
type Event struct {
	State State

	// Reset indicates the session was torn down by logout. Subscribers
	// holding session-derived state must drop it; no view cached under the
	// previous role may survive.
	Reset bool
}

// Store is the single source of truth for who is logged in.
//
// All mutations run through Initialize, Login, and Logout. Observers see
// each mutation as one atomic event: the in-memory state is committed
// before anyone is notified, and the durable write happens within the
// same logical operation.
type Store struct {
	mu          sync.Mutex
	storage     Storage
	logger      *log.Logger
	loading     bool
	initialized bool
	identity    *identity.Identity
	subs        map[int]func(Event)
	nextSub     int
}

// NewStore creates a session store backed by the given storage.
// The store starts in the loading phase until Initialize runs.
func NewStore(storage Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		storage: storage,
		logger:  logger.With("component", "session"),
		loading: true,
		subs:    make(map[int]func(Event)),
	}
}

// Initialize reads the persisted identity from durable storage.
//
// A value that cannot be parsed or fails the identity invariant is
// discarded and the storage entry removed; either way the store leaves
// the loading phase exactly once. Storage failures are absorbed here and
// never surface to callers.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	id, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("discarding unreadable stored session")
		s.scrub(ctx)
		id = nil
	} else if id != nil {
		if verr := id.Validate(); verr != nil {
			s.logger.WithError(verr).Warn("discarding stored identity with invalid shape")
			s.scrub(ctx)
			id = nil
		}
	}

	s.mu.Lock()
	s.identity = id
	s.loading = false
	st := s.stateLocked()
	s.mu.Unlock()

	s.logger.Debug("session initialized", "phase", st.Phase.String())
	s.notify(Event{State: st})
}

// Login establishes a session for the given identity.
//
// An identity failing the invariant is rejected silently: no state
// change, no storage write, and the return value is false so callers
// must not take their success path. On success the in-memory state is
// committed first, then persisted, then observers are notified, so no
// half-updated state is ever observable. Login is idempotent and safe
// to call from a stale login flow.
func (s *Store) Login(ctx context.Context, id *identity.Identity) bool {
	if err := id.Validate(); err != nil {
		s.logger.WithError(err).Warn("rejecting login with invalid identity")
		return false
	}

	s.mu.Lock()
	s.identity = id
	s.loading = false
	st := s.stateLocked()
	s.mu.Unlock()

	if err := s.storage.Save(ctx, id); err != nil {
		// The session stays valid in memory; it just will not survive
		// a restart.
		s.logger.WithError(err).Error("persisting session failed")
	}

	s.logger.Info("session established", "user_id", id.ID, "role", id.Role.String())
	s.notify(Event{State: st})
	return true
}

// Logout tears the session down: durable storage is cleared, the
// in-memory identity dropped, and a reset event emitted so every
// subscriber discards session-scoped state and navigation returns to
// the root.
func (s *Store) Logout(ctx context.Context) {
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.WithError(err).Error("clearing stored session failed")
	}

	s.mu.Lock()
	s.identity = nil
	s.loading = false
	st := s.stateLocked()
	s.mu.Unlock()

	s.logger.Info("session cleared")
	s.notify(Event{State: st, Reset: true})
}

// State returns the current session snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Subscribe registers an observer for session events and returns a
// function that removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, key)
	}
}

func (s *Store) stateLocked() State {
	switch {
	case s.loading:
		return State{Phase: PhaseLoading}
	case s.identity == nil:
		return State{Phase: PhaseUnauthenticated}
	case !s.identity.Role.Valid():
		return State{Phase: PhasePendingRole, Identity: s.identity}
	default:
		return State{Phase: PhaseAuthenticated, Identity: s.identity}
	}
}

func (s *Store) scrub(ctx context.Context) {
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.WithError(err).Error("scrubbing stored session failed")
	}
}

// notify delivers the event outside the lock. The portal's event loop is
// single-threaded, so subscribers observe mutations in order.
func (s *Store) notify(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
