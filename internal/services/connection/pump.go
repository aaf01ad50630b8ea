package connection

import (
	"context"
	"time"

	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
	"github.com/KirkDiggler/sheet-sync/internal/events"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/messages"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/presence"
	"go.uber.org/zap"
)

// subscribe starts the message and presence pumps from the current cursor,
// plus the loop that keeps this client's presence from going stale
func (c *Connection) subscribe(ctx context.Context) error {
	// pumps outlive the call that started them
	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	cursor := c.cursor
	c.mu.Unlock()

	var sub *messages.Subscription
	if err := c.retry(ctx, func() error {
		var err error
		sub, err = c.messages.Subscribe(pumpCtx, c.sessionID, cursor)
		return err
	}); err != nil {
		cancel()
		return err
	}

	var watch *presence.Watch
	if err := c.retry(ctx, func() error {
		var err error
		watch, err = c.presence.Watch(pumpCtx, c.sessionID)
		return err
	}); err != nil {
		cancel()
		return err
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.stopPumps = cancel
	c.mu.Unlock()

	c.pumps.Add(3)
	go c.pumpMessages(pumpCtx, gen, sub)
	go c.pumpPresence(pumpCtx, gen, watch)
	go c.refreshPresence(pumpCtx)

	return nil
}

// resubscribe reopens the live streams after a transport failure.
// History is not re-read, so nothing is applied twice.
func (c *Connection) resubscribe(ctx context.Context) error {
	c.stop()
	c.setState(StateConnecting, nil)

	if err := c.subscribe(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return apperr.SyncTransport(err, "failed to resubscribe")
	}

	peers, err := c.presence.List(ctx, c.sessionID)
	if err != nil {
		c.logger.Warn("failed to refresh peers", zap.Error(err))
	} else {
		c.mu.Lock()
		c.peers = make(map[string]*session.Presence, len(peers))
		for _, p := range peers {
			if p.Identity != c.identity {
				c.peers[p.Identity] = p
			}
		}
		c.mu.Unlock()
	}

	c.setState(StateSubscribed, nil)
	c.logger.Info("resubscribed")
	return nil
}

// stop cancels the pumps and waits for them to return
func (c *Connection) stop() {
	c.mu.Lock()
	cancel := c.stopPumps
	c.stopPumps = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.pumps.Wait()
}

func (c *Connection) pumpMessages(ctx context.Context, gen int, sub *messages.Subscription) {
	defer c.pumps.Done()
	for msg := range sub.C() {
		c.onInsert(ctx, msg)
	}
	c.transportLost(gen, sub.Err())
}

func (c *Connection) pumpPresence(ctx context.Context, gen int, watch *presence.Watch) {
	defer c.pumps.Done()
	for event := range watch.C() {
		c.onPresence(event)
	}
	c.transportLost(gen, watch.Err())
}

// refreshPresence re-tracks the snapshot on a timer so an idle client does
// not age out of other clients' peer lists
func (c *Connection) refreshPresence(ctx context.Context) {
	defer c.pumps.Done()

	ticker := time.NewTicker(c.presenceRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.publishPresence(ctx)
		}
	}
}

// transportLost marks the connection disconnected when a live stream of the
// current generation failed. Streams we cancelled end with a nil error.
func (c *Connection) transportLost(gen int, err error) {
	if err == nil {
		return
	}

	c.mu.Lock()
	current := gen == c.generation && !c.left
	c.mu.Unlock()
	if !current {
		return
	}

	c.logger.Warn("live stream lost", zap.Error(err))
	c.setState(StateDisconnected, err)
}

// onInsert handles one live log insert. Live ids arrive in log order, so
// anything at or before the cursor is a redelivery. A second copy of a
// sender id is a retried append and is dropped too.
func (c *Connection) onInsert(ctx context.Context, msg *session.Message) {
	c.mu.Lock()
	if messages.CompareIDs(msg.ID, c.cursor) <= 0 {
		c.mu.Unlock()
		return
	}
	c.cursor = msg.ID
	if !c.recent.add(msg.ClientID) {
		c.mu.Unlock()
		c.logger.Debug("dropping duplicate append",
			zap.String("id", msg.ID),
			zap.String("client_id", msg.ClientID))
		return
	}

	var lost, hp int
	if data := msg.CombatData; msg.Kind == session.KindCombat && data != nil && data.Damage > 0 &&
		character.NameMatches(data.Target, c.character.Name) {
		lost = c.character.TakeDamage(data.Damage)
		hp = c.character.CurrentHP
	}
	hit := msg.Kind == session.KindCombat && lost > 0
	c.mu.Unlock()

	c.emit(&events.Event{
		Type:    events.EventTypeMessageReceived,
		Message: msg,
	})

	if !hit {
		return
	}

	c.logger.Info("took damage",
		zap.String("attacker", msg.CombatData.Attacker),
		zap.Int("damage", lost),
		zap.Int("current_hp", hp))
	c.emit(&events.Event{
		Type:      events.EventTypeDamageTaken,
		Message:   msg,
		Damage:    lost,
		CurrentHP: hp,
	})
	_ = c.publishPresence(ctx)
}

func (c *Connection) onPresence(event session.PresenceEvent) {
	if event.Identity == c.identity {
		return
	}

	c.mu.Lock()
	if event.Left() {
		delete(c.peers, event.Identity)
	} else {
		c.peers[event.Identity] = event.Presence
	}
	c.mu.Unlock()

	c.emit(&events.Event{
		Type:     events.EventTypePresenceChanged,
		Presence: &event,
	})
}
