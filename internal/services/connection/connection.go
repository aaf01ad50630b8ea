package connection

import (
	"context"
	"sync"
	"time"

	"github.com/KirkDiggler/sheet-sync/internal/dice"
	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/domain/combat"
	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
	"github.com/KirkDiggler/sheet-sync/internal/events"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/messages"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/presence"
	"github.com/KirkDiggler/sheet-sync/internal/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHistoryLimit  = 50
	DefaultRetryAttempts = 3
)

// State is where the connection is in its lifecycle
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
)

// Notifier receives every roll and combat message this client sends
type Notifier interface {
	Notify(ctx context.Context, msg *session.Message) error
}

// Config holds the collaborators of a Connection
type Config struct {
	SessionID string               // Required
	Character *character.Character // Required
	Messages  messages.Repository  // Required
	Presence  presence.Repository  // Required

	// Identity keys this client's presence; a uuid when empty
	Identity      string
	UUIDGenerator uuid.Generator
	Roller        dice.Roller
	Resolver      *combat.Resolver
	Bus           *events.Bus
	Notifier      Notifier
	Logger        *zap.Logger
	HistoryLimit  int
	RetryAttempts uint64
	// RetryInterval is the first backoff delay; the backoff default when zero
	RetryInterval time.Duration
	// PresenceRefresh is how often the snapshot is re-tracked while
	// subscribed; a third of presence.DefaultTTL when zero
	PresenceRefresh time.Duration
}

// Connection is one client's membership in a session.
// The character it wraps is only written through it.
type Connection struct {
	sessionID       string
	identity        string
	ids             uuid.Generator
	messages        messages.Repository
	presence        presence.Repository
	roller          dice.Roller
	resolver        *combat.Resolver
	bus             *events.Bus
	notifier        Notifier
	logger          *zap.Logger
	historyLimit    int
	retryAttempts   uint64
	retryInterval   time.Duration
	presenceRefresh time.Duration

	// actionMu serializes user actions
	actionMu sync.Mutex
	// publishMu keeps presence writes in snapshot order
	publishMu sync.Mutex

	// mu guards everything below; the live pumps write here too
	mu            sync.Mutex
	character     *character.Character
	peers         map[string]*session.Presence
	state         State
	joined        bool
	left          bool
	cursor        string
	recent        *recentIDs
	presenceDirty bool
	generation    int
	stopPumps     context.CancelFunc
	pumps         sync.WaitGroup
}

// New creates a disconnected Connection
func New(cfg *Config) *Connection {
	if cfg.SessionID == "" {
		panic("session ID is required")
	}
	if cfg.Character == nil {
		panic("character is required")
	}
	if cfg.Messages == nil {
		panic("message repository is required")
	}
	if cfg.Presence == nil {
		panic("presence repository is required")
	}

	c := &Connection{
		sessionID:       cfg.SessionID,
		identity:        cfg.Identity,
		ids:             cfg.UUIDGenerator,
		messages:        cfg.Messages,
		presence:        cfg.Presence,
		roller:          cfg.Roller,
		resolver:        cfg.Resolver,
		bus:             cfg.Bus,
		notifier:        cfg.Notifier,
		logger:          cfg.Logger,
		historyLimit:    cfg.HistoryLimit,
		retryAttempts:   cfg.RetryAttempts,
		retryInterval:   cfg.RetryInterval,
		presenceRefresh: cfg.PresenceRefresh,
		character:       cfg.Character,
		peers:           make(map[string]*session.Presence),
		state:           StateDisconnected,
		cursor:          messages.Beginning,
		recent:          newRecentIDs(recentIDsSize),
	}

	if c.ids == nil {
		c.ids = uuid.NewGoogleUUIDGenerator()
	}
	if c.identity == "" {
		c.identity = c.ids.New()
	}
	if c.roller == nil {
		c.roller = dice.NewRandomRoller()
	}
	if c.resolver == nil {
		c.resolver = combat.NewResolver(&combat.ResolverConfig{Roller: c.roller})
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.With(
		zap.String("session_id", c.sessionID),
		zap.String("identity", c.identity))
	if c.historyLimit <= 0 {
		c.historyLimit = DefaultHistoryLimit
	}
	if c.retryAttempts == 0 {
		c.retryAttempts = DefaultRetryAttempts
	}
	if c.presenceRefresh <= 0 {
		c.presenceRefresh = presence.DefaultTTL / 3
	}

	return c
}

// SessionID returns the session this connection belongs to
func (c *Connection) SessionID() string {
	return c.sessionID
}

// Identity returns the key this client's presence is published under
func (c *Connection) Identity() string {
	return c.identity
}

// State returns the current lifecycle state
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Left reports whether Leave was called
func (c *Connection) Left() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.left
}

// Character returns a copy of the local character
func (c *Connection) Character() *character.Character {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.character.Clone()
}

// Connect joins the session and returns the history baseline.
// History is for display only: nothing in it is applied to the local character.
func (c *Connection) Connect(ctx context.Context) ([]*session.Message, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	c.mu.Lock()
	switch {
	case c.left:
		c.mu.Unlock()
		return nil, apperr.New(apperr.CodeSessionClosed, "connection already left the session")
	case c.joined:
		c.mu.Unlock()
		return nil, apperr.InvalidArgument("already connected")
	}
	c.mu.Unlock()

	c.setState(StateConnecting, nil)

	var history []*session.Message
	var peers []*session.Presence

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = c.messages.History(gctx, c.sessionID, c.historyLimit)
		return err
	})
	g.Go(func() error {
		var err error
		peers, err = c.presence.List(gctx, c.sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		c.setState(StateDisconnected, err)
		return nil, apperr.SyncTransport(err, "failed to connect")
	}

	c.mu.Lock()
	c.cursor = messages.Beginning
	for _, msg := range history {
		c.recent.add(msg.ClientID)
		c.cursor = msg.ID
	}
	for _, p := range peers {
		if p.Identity != c.identity {
			c.peers[p.Identity] = p
		}
	}
	c.mu.Unlock()

	if err := c.subscribe(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return nil, apperr.SyncTransport(err, "failed to subscribe")
	}

	c.mu.Lock()
	c.joined = true
	name := c.character.Name
	c.mu.Unlock()

	c.setState(StateSubscribed, nil)
	_ = c.publishPresence(ctx)

	if _, err := c.send(ctx, c.systemMessage(name+" entrou na sessão")); err != nil {
		c.logger.Warn("failed to announce join", zap.Error(err))
	}

	c.logger.Info("connected",
		zap.Int("history", len(history)),
		zap.Int("peers", len(peers)))

	return history, nil
}

// LoadHistory reads the newest messages of the session. It never changes local state.
func (c *Connection) LoadHistory(ctx context.Context) ([]*session.Message, error) {
	history, err := c.messages.History(ctx, c.sessionID, c.historyLimit)
	if err != nil {
		return nil, apperr.SyncTransport(err, "failed to load history")
	}
	return history, nil
}

// Leave is terminal: the pumps stop, presence is dropped and the session is told
func (c *Connection) Leave(ctx context.Context) error {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return nil
	}
	c.left = true
	joined := c.joined
	name := c.character.Name
	c.mu.Unlock()

	c.stop()
	c.setState(StateDisconnected, nil)

	if !joined {
		return nil
	}

	var firstErr error
	if err := c.retry(ctx, func() error {
		return c.presence.Untrack(ctx, c.sessionID, c.identity)
	}); err != nil {
		c.logger.Warn("failed to untrack presence", zap.Error(err))
		firstErr = apperr.SyncTransport(err, "failed to untrack presence")
	}

	if _, err := c.send(ctx, c.systemMessage(name+" saiu da sessão")); err != nil {
		c.logger.Warn("failed to announce leave", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	c.logger.Info("left session")
	return firstErr
}

// begin runs before every user action; the caller holds actionMu
func (c *Connection) begin(ctx context.Context) error {
	c.mu.Lock()
	left, joined, state, dirty := c.left, c.joined, c.state, c.presenceDirty
	c.mu.Unlock()

	if left {
		return apperr.New(apperr.CodeSessionClosed, "connection already left the session")
	}
	if !joined {
		return apperr.New(apperr.CodeSessionClosed, "connection is not connected")
	}

	if state == StateDisconnected {
		if err := c.resubscribe(ctx); err != nil {
			return err
		}
		dirty = true
	}

	if dirty {
		_ = c.publishPresence(ctx)
	}
	return nil
}

func (c *Connection) setState(state State, cause error) {
	c.mu.Lock()
	changed := c.state != state
	c.state = state
	c.mu.Unlock()

	if !changed {
		return
	}
	c.emit(&events.Event{
		Type:  events.EventTypeConnectionState,
		State: string(state),
		Err:   cause,
	})
}

func (c *Connection) emit(event *events.Event) {
	if c.bus == nil {
		return
	}
	event.SessionID = c.sessionID
	if err := c.bus.Emit(event); err != nil {
		c.logger.Debug("event listener stopped propagation",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func (c *Connection) systemMessage(content string) *session.Message {
	return &session.Message{
		SessionID:  c.sessionID,
		SenderName: "system",
		Kind:       session.KindSystem,
		Content:    content,
	}
}
