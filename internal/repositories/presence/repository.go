package presence

//go:generate mockgen -destination=mock/mock_repository.go -package=mockpresence -source=repository.go

import (
	"context"
	"errors"
	"time"

	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/feed"
)

var (
	errSessionRequired  = errors.New("session ID cannot be empty")
	errIdentityRequired = errors.New("identity cannot be empty")
	errPresenceRequired = errors.New("presence cannot be nil")
)

// Watch is a live stream of presence changes for one session
type Watch = feed.Feed[session.PresenceEvent]

// Repository is the ephemeral per-session presence channel. Last write wins per identity.
type Repository interface {
	// Track publishes p under p.Identity and stamps PublishedAt
	Track(ctx context.Context, sessionID string, p *session.Presence) error

	// Untrack removes identity and tells watchers it left
	Untrack(ctx context.Context, sessionID, identity string) error

	// List returns the current snapshot of every live identity
	List(ctx context.Context, sessionID string) ([]*session.Presence, error)

	// Watch streams joins, updates and leaves until ctx ends or the transport drops
	Watch(ctx context.Context, sessionID string) (*Watch, error)
}

// TimeProvider stamps presence entries
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the wall clock
type RealTimeProvider struct{}

func (r *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

func validate(sessionID string, p *session.Presence) error {
	if sessionID == "" {
		return errSessionRequired
	}
	if p == nil {
		return errPresenceRequired
	}
	if p.Identity == "" {
		return errIdentityRequired
	}
	return nil
}
