package messages

//go:generate mockgen -destination=mock/mock_repository.go -package=mockmessages -source=repository.go

import (
	"context"

	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/feed"
)

// Beginning is the cursor that subscribes from the first entry of a log
const Beginning = "0-0"

// Subscription is a live stream of log inserts
type Subscription = feed.Feed[*session.Message]

// Repository is the durable, append-only, session-scoped message log
type Repository interface {
	// Append stores msg and returns it with the store-assigned ID and CreatedAt
	Append(ctx context.Context, msg *session.Message) (*session.Message, error)

	// History returns the newest limit messages (all when limit <= 0), oldest first
	History(ctx context.Context, sessionID string, limit int) ([]*session.Message, error)

	// Subscribe streams inserts strictly after the message with ID after.
	// An empty after means "from now on".
	Subscribe(ctx context.Context, sessionID, after string) (*Subscription, error)
}

func validate(msg *session.Message) error {
	if msg == nil {
		return errMessageRequired
	}
	if msg.SessionID == "" {
		return errSessionRequired
	}
	if !msg.Kind.Valid() {
		return errInvalidKind
	}
	return nil
}
