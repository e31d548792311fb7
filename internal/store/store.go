package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"interviewace/internal/repo"
	"interviewace/schema"
)

// Change is one applied action together with the states around it.
type Change struct {
	Action Action
	Prev   schema.AppState
	Next   schema.AppState
}

type Listener func(Change)

type subscription struct {
	id int
	fn Listener
}

// Store owns the application state. Actions are applied one at a time in
// dispatch order; listeners observe the resulting changes in the same order
// and may dispatch further actions from inside a callback.
type Store struct {
	mu      sync.Mutex
	state   schema.AppState
	repo    repo.Repository
	reducer *Reducer
	logger  *zap.Logger

	subs      []subscription
	nextSubID int
	pending   []Change
	notifying bool
	loadOnce  sync.Once
}

func New(r repo.Repository, reducer *Reducer, logger *zap.Logger) *Store {
	if reducer == nil {
		reducer = NewReducer()
	}
	return &Store{
		state:   schema.NewAppState(),
		repo:    r,
		reducer: reducer,
		logger:  logger,
	}
}

// Load reads the persisted blob once and hydrates the store. A missing,
// unreadable or invalid blob hydrates the empty state instead.
func (s *Store) Load(ctx context.Context) {
	s.loadOnce.Do(func() {
		state := schema.NewAppState()
		blob, err := s.repo.Load(ctx)
		switch {
		case err != nil:
			s.logger.Warn("Failed to read persisted state, starting empty", zap.Error(err))
		case blob == nil:
			s.logger.Info("No persisted state found, starting empty")
		default:
			decoded, err := Decode(blob)
			if err != nil {
				s.logger.Warn("Discarding malformed persisted state", zap.Error(err))
			} else {
				state = decoded
			}
		}
		s.Dispatch(ctx, Hydrate{State: state})
		s.logger.Info("State hydrated", zap.Int("candidates", len(state.Candidates)))
	})
}

func (s *Store) State() schema.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch applies action and reports whether the state changed.
func (s *Store) Dispatch(ctx context.Context, action Action) bool {
	return s.DispatchIf(ctx, nil, action)
}

// DispatchIf applies action only if cond holds for the current state. The
// check and the update happen atomically.
func (s *Store) DispatchIf(ctx context.Context, cond func(schema.AppState) bool, action Action) bool {
	s.mu.Lock()
	if cond != nil && !cond(s.state) {
		s.mu.Unlock()
		return false
	}
	prev := s.state
	next, changed := s.reducer.apply(prev, action)
	if !changed {
		s.mu.Unlock()
		s.logger.Debug("Action ignored", zap.String("action", action.Type()), zap.String("candidateId", CandidateID(action)))
		return false
	}
	s.state = next
	if next.IsInitialized {
		s.persist(ctx, next)
	}
	s.pending = append(s.pending, Change{Action: action, Prev: prev, Next: next})
	if s.notifying {
		s.mu.Unlock()
		return true
	}
	s.notifying = true
	s.mu.Unlock()

	s.drain()
	return true
}

// persist is called with mu held so writes reach the repository in dispatch
// order. The write outlives the caller's cancellation: the state has already
// changed in memory and must not diverge from storage.
func (s *Store) persist(ctx context.Context, state schema.AppState) {
	ctx = context.WithoutCancel(ctx)
	blob, err := Encode(state)
	if err != nil {
		s.logger.Error("Failed to encode state", zap.Error(err))
		return
	}
	if err := s.repo.Save(ctx, blob); err != nil {
		s.logger.Error("Failed to persist state", zap.Error(err))
	}
}

func (s *Store) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.notifying = false
			s.mu.Unlock()
			return
		}
		change := s.pending[0]
		s.pending = s.pending[1:]
		subs := make([]subscription, len(s.subs))
		copy(subs, s.subs)
		s.mu.Unlock()

		for _, sub := range subs {
			sub.fn(change)
		}
	}
}
