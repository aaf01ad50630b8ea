package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/feed"
)

// InMemoryRepository implements Repository using in-memory storage.
// Like the redis store, List hides entries not refreshed within DefaultTTL.
type InMemoryRepository struct {
	mu           sync.Mutex
	timeProvider TimeProvider
	ttl          time.Duration
	sessions     map[string]*memorySession
}

type memorySession struct {
	entries map[string]*session.Presence
	events  []session.PresenceEvent
	// changed is closed and replaced on every event
	changed  chan struct{}
	watchers map[*Watch]chan error
}

// NewInMemoryRepository creates a new in-memory presence channel
func NewInMemoryRepository(timeProvider TimeProvider) *InMemoryRepository {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &InMemoryRepository{
		timeProvider: timeProvider,
		ttl:          DefaultTTL,
		sessions:     make(map[string]*memorySession),
	}
}

func (r *InMemoryRepository) sessionLocked(sessionID string) *memorySession {
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &memorySession{
			entries:  make(map[string]*session.Presence),
			changed:  make(chan struct{}),
			watchers: make(map[*Watch]chan error),
		}
		r.sessions[sessionID] = s
	}
	return s
}

func (s *memorySession) publish(event session.PresenceEvent) {
	s.events = append(s.events, event)
	close(s.changed)
	s.changed = make(chan struct{})
}

// Track stores a copy of p
func (r *InMemoryRepository) Track(ctx context.Context, sessionID string, p *session.Presence) error {
	if err := validate(sessionID, p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stamped := *p
	stamped.PublishedAt = r.timeProvider.Now()

	s := r.sessionLocked(sessionID)
	s.entries[p.Identity] = &stamped

	event := stamped
	s.publish(session.PresenceEvent{Identity: p.Identity, Presence: &event})
	return nil
}

// Untrack removes identity
func (r *InMemoryRepository) Untrack(ctx context.Context, sessionID, identity string) error {
	if sessionID == "" {
		return errSessionRequired
	}
	if identity == "" {
		return errIdentityRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessionLocked(sessionID)
	delete(s.entries, identity)
	s.publish(session.PresenceEvent{Identity: identity})
	return nil
}

// List returns copies of the live entries sorted by identity
func (r *InMemoryRepository) List(ctx context.Context, sessionID string) ([]*session.Presence, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return []*session.Presence{}, nil
	}

	cutoff := r.timeProvider.Now().Add(-r.ttl)
	out := make([]*session.Presence, 0, len(s.entries))
	for _, p := range s.entries {
		if p.PublishedAt.Before(cutoff) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity < out[j].Identity
	})
	return out, nil
}

// Watch streams every event published after the call
func (r *InMemoryRepository) Watch(ctx context.Context, sessionID string) (*Watch, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	w := feed.New[session.PresenceEvent](ctx, watchBuffer)
	dropped := make(chan error, 1)

	r.mu.Lock()
	s := r.sessionLocked(sessionID)
	next := len(s.events)
	s.watchers[w] = dropped
	r.mu.Unlock()

	go func() {
		w.End(r.pump(w, s, next, dropped))
		r.mu.Lock()
		delete(s.watchers, w)
		r.mu.Unlock()
	}()

	return w, nil
}

func (r *InMemoryRepository) pump(w *Watch, s *memorySession, next int, dropped <-chan error) error {
	for {
		r.mu.Lock()
		pending := append([]session.PresenceEvent(nil), s.events[next:]...)
		next = len(s.events)
		changed := s.changed
		r.mu.Unlock()

		for _, event := range pending {
			if !w.Send(event) {
				return nil
			}
		}

		select {
		case <-changed:
		case err := <-dropped:
			return err
		case <-w.Context().Done():
			return nil
		}
	}
}

// Disconnect ends every live watch on sessionID with err
func (r *InMemoryRepository) Disconnect(sessionID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	for _, dropped := range s.watchers {
		select {
		case dropped <- err:
		default:
		}
	}
}
