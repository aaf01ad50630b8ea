package messages

import (
	"context"
	"fmt"
	"sync"

	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/feed"
)

// InMemoryRepository implements Repository using in-memory storage.
// IDs follow the "<ms>-<seq>" stream ID shape so they sort the same way.
type InMemoryRepository struct {
	mu       sync.Mutex
	clock    TimeProvider
	sessions map[string]*memorySession
	lastMS   int64
	seq      int64
}

type memorySession struct {
	log []*session.Message
	// changed is closed and replaced on every append
	changed chan struct{}
	subs    map[*Subscription]chan error
}

// NewInMemoryRepository creates a new in-memory message log
func NewInMemoryRepository(clock TimeProvider) *InMemoryRepository {
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	return &InMemoryRepository{
		clock:    clock,
		sessions: make(map[string]*memorySession),
	}
}

func (r *InMemoryRepository) sessionLocked(sessionID string) *memorySession {
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &memorySession{
			changed: make(chan struct{}),
			subs:    make(map[*Subscription]chan error),
		}
		r.sessions[sessionID] = s
	}
	return s
}

func (r *InMemoryRepository) nextIDLocked() string {
	ms := r.clock.Now().UnixMilli()
	if ms > r.lastMS {
		r.lastMS = ms
		r.seq = 0
	} else {
		r.seq++
	}
	return fmt.Sprintf("%d-%d", r.lastMS, r.seq)
}

// Append stores a copy of msg
func (r *InMemoryRepository) Append(ctx context.Context, msg *session.Message) (*session.Message, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *msg
	stored.ID = r.nextIDLocked()
	createdAt, err := timeFromID(stored.ID)
	if err != nil {
		return nil, err
	}
	stored.CreatedAt = createdAt

	s := r.sessionLocked(msg.SessionID)
	s.log = append(s.log, &stored)
	close(s.changed)
	s.changed = make(chan struct{})

	out := stored
	return &out, nil
}

// History returns copies of the newest limit messages, oldest first
func (r *InMemoryRepository) History(ctx context.Context, sessionID string, limit int) ([]*session.Message, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return []*session.Message{}, nil
	}

	start := 0
	if limit > 0 && len(s.log) > limit {
		start = len(s.log) - limit
	}

	out := make([]*session.Message, 0, len(s.log)-start)
	for _, msg := range s.log[start:] {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

// Subscribe delivers every message appended after the cursor
func (r *InMemoryRepository) Subscribe(ctx context.Context, sessionID, after string) (*Subscription, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	sub := feed.New[*session.Message](ctx, feedBuffer)
	dropped := make(chan error, 1)

	r.mu.Lock()
	s := r.sessionLocked(sessionID)
	next := len(s.log)
	if after != "" {
		next = 0
		for i, msg := range s.log {
			if CompareIDs(msg.ID, after) > 0 {
				break
			}
			next = i + 1
		}
	}
	s.subs[sub] = dropped
	r.mu.Unlock()

	go func() {
		sub.End(r.pump(sub, s, next, dropped))
		r.mu.Lock()
		delete(s.subs, sub)
		r.mu.Unlock()
	}()

	return sub, nil
}

func (r *InMemoryRepository) pump(sub *Subscription, s *memorySession, next int, dropped <-chan error) error {
	for {
		r.mu.Lock()
		pending := make([]*session.Message, 0, len(s.log)-next)
		for _, msg := range s.log[next:] {
			cp := *msg
			pending = append(pending, &cp)
		}
		next = len(s.log)
		changed := s.changed
		r.mu.Unlock()

		for _, msg := range pending {
			if !sub.Send(msg) {
				return nil
			}
		}

		select {
		case <-changed:
		case err := <-dropped:
			return err
		case <-sub.Context().Done():
			return nil
		}
	}
}

// Disconnect ends every live subscription on sessionID with err
func (r *InMemoryRepository) Disconnect(sessionID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	for _, dropped := range s.subs {
		select {
		case dropped <- err:
		default:
		}
	}
}
