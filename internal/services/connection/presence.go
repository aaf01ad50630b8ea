package connection

import (
	"context"
	"sort"

	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
	"go.uber.org/zap"
)

// PublishPresence pushes the current snapshot of the local character.
// A failed publish is retried on the next user action.
func (c *Connection) PublishPresence(ctx context.Context) error {
	if err := c.publishPresence(ctx); err != nil {
		return apperr.SyncTransport(err, "failed to publish presence")
	}
	return nil
}

func (c *Connection) publishPresence(ctx context.Context) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	p := &session.Presence{
		Identity:  c.identity,
		Character: session.Snapshot(c.character),
	}
	c.mu.Unlock()

	err := c.retry(ctx, func() error {
		return c.presence.Track(ctx, c.sessionID, p)
	})

	c.mu.Lock()
	c.presenceDirty = err != nil
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("failed to publish presence", zap.Error(err))
		return err
	}
	return nil
}

// Targets returns the live peers, sorted by character name
func (c *Connection) Targets() []*session.Presence {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*session.Presence, 0, len(c.peers))
	for _, p := range c.peers {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Character.Name < out[j].Character.Name
	})
	return out
}

// Peer finds a live peer by character name, ignoring case and surrounding spaces
func (c *Connection) Peer(name string) *session.Presence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerLocked(name)
}

func (c *Connection) peerLocked(name string) *session.Presence {
	for _, p := range c.peers {
		if character.NameMatches(p.Character.Name, name) {
			cp := *p
			return &cp
		}
	}
	return nil
}
