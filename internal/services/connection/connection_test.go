package connection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mockdice "github.com/KirkDiggler/sheet-sync/internal/dice/mock"
	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
	"github.com/KirkDiggler/sheet-sync/internal/events"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/messages"
	mockmessages "github.com/KirkDiggler/sheet-sync/internal/repositories/messages/mock"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/presence"
	"github.com/KirkDiggler/sheet-sync/internal/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const (
	tableID = "table-1"
	wait    = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// recorder collects bus events for assertions
type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) listen(bus *events.Bus) {
	for _, t := range []events.EventType{
		events.EventTypeMessageReceived,
		events.EventTypeDamageTaken,
		events.EventTypePresenceChanged,
		events.EventTypeConnectionState,
	} {
		bus.Subscribe(t, &events.ListenerFunc{Name: "recorder", Fn: func(e *events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
			return nil
		}})
	}
}

func (r *recorder) received(content string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == events.EventTypeMessageReceived && e.Message.Content == content {
			n++
		}
	}
	return n
}

func (r *recorder) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*session.Message
}

func (n *fakeNotifier) Notify(_ context.Context, msg *session.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

// flakyMessages wraps a repository and fails on demand
type flakyMessages struct {
	messages.Repository

	mu sync.Mutex

	// loseReply stores the next append but reports a timeout
	loseReply    bool
	subscribeErr error
}

func (f *flakyMessages) Append(ctx context.Context, msg *session.Message) (*session.Message, error) {
	stored, err := f.Repository.Append(ctx, msg)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil && f.loseReply {
		f.loseReply = false
		return nil, errors.New("i/o timeout")
	}
	return stored, err
}

func (f *flakyMessages) Subscribe(ctx context.Context, sessionID, after string) (*messages.Subscription, error) {
	f.mu.Lock()
	err := f.subscribeErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Repository.Subscribe(ctx, sessionID, after)
}

func (f *flakyMessages) setLoseReply() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loseReply = true
}

func (f *flakyMessages) setSubscribeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeErr = err
}

type settableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *settableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type ConnectionTestSuite struct {
	suite.Suite
	ctx      context.Context
	messages *messages.InMemoryRepository
	presence *presence.InMemoryRepository
}

func TestConnectionSuite(t *testing.T) {
	suite.Run(t, new(ConnectionTestSuite))
}

func (s *ConnectionTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.messages = messages.NewInMemoryRepository(nil)
	s.presence = presence.NewInMemoryRepository(nil)
}

type client struct {
	conn   *Connection
	roller *mockdice.ManualMockRoller
	events *recorder
}

func (s *ConnectionTestSuite) newClient(name string, repo messages.Repository) *client {
	roller := mockdice.NewManualMockRoller()
	bus := events.NewBus(nil)
	rec := &recorder{}
	rec.listen(bus)

	if repo == nil {
		repo = s.messages
	}

	conn := New(&Config{
		SessionID:     tableID,
		Identity:      strings.ToLower(name),
		Character:     character.New(name, "Aventureiro"),
		Messages:      repo,
		Presence:      s.presence,
		Roller:        roller,
		Bus:           bus,
		RetryAttempts: 1,
		RetryInterval: time.Millisecond,
	})
	s.T().Cleanup(conn.stop)

	return &client{conn: conn, roller: roller, events: rec}
}

func (s *ConnectionTestSuite) connect(name string) *client {
	c := s.newClient(name, nil)
	_, err := c.conn.Connect(s.ctx)
	s.Require().NoError(err)
	return c
}

func (s *ConnectionTestSuite) seesPeer(c *client, name string, check func(*session.Presence) bool) {
	s.Require().Eventually(func() bool {
		p := c.conn.Peer(name)
		return p != nil && (check == nil || check(p))
	}, wait, tick)
}

func (s *ConnectionTestSuite) combatAgainst(target string, damage int) *session.Message {
	return &session.Message{
		SessionID:  tableID,
		SenderName: "Borin",
		Kind:       session.KindCombat,
		Content:    "Borin atacou",
		CombatData: &session.CombatData{Attacker: "Borin", Target: target, Damage: damage},
	}
}

func (s *ConnectionTestSuite) TestConnect_HistoryIsNotApplied() {
	_, err := s.messages.Append(s.ctx, s.combatAgainst("Aria", 30))
	s.Require().NoError(err)

	aria := s.newClient("Aria", nil)
	history, err := aria.conn.Connect(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(StateSubscribed, aria.conn.State())

	// a later live message proves the pump has passed the history boundary
	borin := s.connect("Borin")
	_, err = borin.conn.SendChat(s.ctx, "boa noite", false)
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return aria.events.received("boa noite") == 1 }, wait, tick)

	s.Equal(160, aria.conn.Character().CurrentHP)
	s.Zero(aria.events.count(events.EventTypeDamageTaken))
}

func (s *ConnectionTestSuite) TestConnect_AnnouncesAndTracksPresence() {
	aria := s.connect("Aria")

	history, err := aria.conn.LoadHistory(s.ctx)
	s.Require().NoError(err)
	s.Require().NotEmpty(history)
	last := history[len(history)-1]
	s.Equal(session.KindSystem, last.Kind)
	s.Equal("Aria entrou na sessão", last.Content)

	list, err := s.presence.List(s.ctx, tableID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("aria", list[0].Identity)
	s.Equal(160, list[0].Character.MaxHP)

	_, err = aria.conn.Connect(s.ctx)
	s.Error(err)
}

func (s *ConnectionTestSuite) TestLoadHistory_HasNoSideEffects() {
	aria := s.connect("Aria")
	_, err := s.messages.Append(s.ctx, s.combatAgainst("Aria", 30))
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return aria.conn.Character().CurrentHP == 130 }, wait, tick)

	for range 2 {
		history, err := aria.conn.LoadHistory(s.ctx)
		s.Require().NoError(err)
		s.NotEmpty(history)
	}
	s.Equal(130, aria.conn.Character().CurrentHP)
}

func (s *ConnectionTestSuite) TestLiveAttack_AppliesDamageOnce() {
	aria := s.connect("Aria")
	borin := s.connect("Borin")
	s.seesPeer(borin, "Aria", nil)

	borin.roller.SetRolls([]int{6, 4})
	outcome, err := borin.conn.Attack(s.ctx, "aria", "")
	s.Require().NoError(err)
	s.True(outcome.Hit)
	s.Equal(10, outcome.Damage)

	s.Require().Eventually(func() bool { return aria.conn.Character().CurrentHP == 150 }, wait, tick)
	s.seesPeer(borin, "Aria", func(p *session.Presence) bool { return p.Character.CurrentHP == 150 })

	s.Equal(160, borin.conn.Character().CurrentHP, "attacker is never damaged by its own message")
	s.Equal(1, aria.events.count(events.EventTypeDamageTaken))
}

func (s *ConnectionTestSuite) TestOnInsert_DedupesByID() {
	aria := s.newClient("Aria", nil)
	msg := s.combatAgainst("Aria", 25)
	msg.ID = "1700000000000-0"

	aria.conn.onInsert(s.ctx, msg)
	aria.conn.onInsert(s.ctx, msg)

	s.Equal(135, aria.conn.Character().CurrentHP)
	s.Equal(1, aria.events.count(events.EventTypeMessageReceived))
}

func (s *ConnectionTestSuite) TestOnInsert_IgnoresIDsAtOrBeforeCursor() {
	aria := s.newClient("Aria", nil)

	later := s.combatAgainst("Aria", 10)
	later.ID = "1700000000005-0"
	aria.conn.onInsert(s.ctx, later)

	earlier := s.combatAgainst("Aria", 10)
	earlier.ID = "1700000000004-3"
	aria.conn.onInsert(s.ctx, earlier)

	s.Equal(150, aria.conn.Character().CurrentHP)
	s.Equal("1700000000005-0", aria.conn.cursor)
}

func (s *ConnectionTestSuite) TestOnInsert_DropsSecondCopyOfSenderID() {
	aria := s.newClient("Aria", nil)

	first := s.combatAgainst("Aria", 10)
	first.ID = "1-0"
	first.ClientID = "borin-attack"
	aria.conn.onInsert(s.ctx, first)

	retried := *first
	retried.ID = "2-0"
	aria.conn.onInsert(s.ctx, &retried)

	s.Equal(150, aria.conn.Character().CurrentHP)
	s.Equal(1, aria.events.count(events.EventTypeMessageReceived))
	s.Equal("2-0", aria.conn.cursor, "the cursor still moves past the copy")
}

func (s *ConnectionTestSuite) TestAttack_RetriedAppendDamagesOnce() {
	aria := s.connect("Aria")
	flaky := &flakyMessages{Repository: s.messages}
	borin := s.newClient("Borin", flaky)
	_, err := borin.conn.Connect(s.ctx)
	s.Require().NoError(err)
	s.seesPeer(borin, "Aria", nil)

	flaky.setLoseReply()
	borin.roller.SetRolls([]int{6, 4})
	outcome, err := borin.conn.Attack(s.ctx, "Aria", "")
	s.Require().NoError(err)
	s.Equal(10, outcome.Damage)

	history, err := s.messages.History(s.ctx, tableID, 0)
	s.Require().NoError(err)
	var copies []*session.Message
	for _, msg := range history {
		if msg.Kind == session.KindCombat {
			copies = append(copies, msg)
		}
	}
	s.Require().Len(copies, 2, "the lost reply made the client append twice")
	s.Equal(copies[0].ClientID, copies[1].ClientID)
	s.NotEqual(copies[0].ID, copies[1].ID)

	_, err = borin.conn.SendChat(s.ctx, "e agora?", false)
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return aria.events.received("e agora?") == 1 }, wait, tick)

	s.Equal(150, aria.conn.Character().CurrentHP)
	s.Equal(1, aria.events.count(events.EventTypeDamageTaken))
}

func (s *ConnectionTestSuite) TestOnInsert_TargetMatchIgnoresCaseAndSpaces() {
	aria := s.newClient("Aria", nil)

	hit := s.combatAgainst("  ARIA ", 10)
	hit.ID = "1-0"
	aria.conn.onInsert(s.ctx, hit)
	s.Equal(150, aria.conn.Character().CurrentHP)

	other := s.combatAgainst("Arian", 10)
	other.ID = "2-0"
	aria.conn.onInsert(s.ctx, other)
	s.Equal(150, aria.conn.Character().CurrentHP)

	zero := s.combatAgainst("Aria", 0)
	zero.ID = "3-0"
	aria.conn.onInsert(s.ctx, zero)
	s.Equal(150, aria.conn.Character().CurrentHP)
}

func (s *ConnectionTestSuite) TestOnInsert_HPFloorsAtZero() {
	aria := s.newClient("Aria", nil)
	msg := s.combatAgainst("Aria", 500)
	msg.ID = "1-0"

	aria.conn.onInsert(s.ctx, msg)
	s.Equal(0, aria.conn.Character().CurrentHP)
}

func (s *ConnectionTestSuite) TestAttack_UnknownTarget() {
	aria := s.connect("Aria")

	_, err := aria.conn.Attack(s.ctx, "Ninguém", "")
	s.True(apperr.IsTargetUnresolved(err))

	_, err = aria.conn.Attack(s.ctx, "aria", "")
	s.True(apperr.IsTargetUnresolved(err), "self is not a target")
}

func (s *ConnectionTestSuite) TestAttack_InsufficientMPSendsNothing() {
	aria := s.connect("Aria")
	borin := s.connect("Borin")
	s.seesPeer(aria, "Borin", nil)

	s.Require().NoError(aria.conn.Update(s.ctx, func(c *character.Character) error {
		return c.AddAbility(&character.Ability{
			ID:     "meteoro",
			Type:   character.AbilityAttackSkill,
			Cost:   character.Cost{Type: character.CostMP, MP: 500},
			Attack: &character.AttackSpec{Multiplier: 3, DamageType: character.DamageMagical},
		})
	}))

	before, err := s.messages.History(s.ctx, tableID, 0)
	s.Require().NoError(err)

	aria.roller.SetRolls([]int{10, 10})
	_, err = aria.conn.Attack(s.ctx, "Borin", "meteoro")
	s.True(apperr.IsInsufficientResource(err))

	after, err := s.messages.History(s.ctx, tableID, 0)
	s.Require().NoError(err)
	s.Len(after, len(before))
	s.Equal(125, aria.conn.Character().CurrentMP)
	s.Equal(160, borin.conn.Character().CurrentHP)
}

func (s *ConnectionTestSuite) TestAttack_UnknownAbility() {
	aria := s.connect("Aria")
	s.connect("Borin")
	s.seesPeer(aria, "Borin", nil)

	_, err := aria.conn.Attack(s.ctx, "Borin", "nope")
	s.True(apperr.IsNotFound(err))
}

func (s *ConnectionTestSuite) TestAttack_MissIsNotBroadcast() {
	aria := s.connect("Aria")
	borin := s.connect("Borin")

	s.Require().NoError(borin.conn.Update(s.ctx, func(c *character.Character) error {
		return c.SetAttribute(character.AttributeVit, 15)
	}))
	s.seesPeer(aria, "Borin", func(p *session.Presence) bool { return p.Character.Defense == 15 })

	before, err := s.messages.History(s.ctx, tableID, 0)
	s.Require().NoError(err)

	aria.roller.SetRolls([]int{2, 3})
	outcome, err := aria.conn.Attack(s.ctx, "Borin", "")
	s.Require().NoError(err)
	s.False(outcome.Hit)
	s.Equal(15, outcome.TargetDefense)

	after, err := s.messages.History(s.ctx, tableID, 0)
	s.Require().NoError(err)
	s.Len(after, len(before))
}

func (s *ConnectionTestSuite) TestAttack_SendFailureLeavesCharacterUntouched() {
	ctrl := gomock.NewController(s.T())
	repo := mockmessages.NewMockRepository(ctrl)

	repo.EXPECT().History(gomock.Any(), tableID, gomock.Any()).DoAndReturn(s.messages.History)
	repo.EXPECT().Subscribe(gomock.Any(), tableID, gomock.Any()).DoAndReturn(s.messages.Subscribe)
	repo.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(s.messages.Append)
	repo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused")).Times(2)

	s.Require().NoError(s.presence.Track(s.ctx, tableID, &session.Presence{
		Identity:  "borin",
		Character: session.CharacterSnapshot{Name: "Borin", CurrentHP: 160, Defense: 5},
	}))

	aria := s.newClient("Aria", repo)
	_, err := aria.conn.Connect(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(aria.conn.Update(s.ctx, func(c *character.Character) error {
		return c.AddAbility(&character.Ability{
			ID:     "fireball",
			Type:   character.AbilityAttackSkill,
			Cost:   character.Cost{Type: character.CostMP, MP: 30},
			Attack: &character.AttackSpec{Multiplier: 1.5, DamageType: character.DamageMagical},
		})
	}))

	aria.roller.SetRolls([]int{6, 4})
	outcome, err := aria.conn.Attack(s.ctx, "Borin", "fireball")
	s.Nil(outcome)
	s.True(apperr.IsSyncTransport(err))
	s.Equal("failed to send", apperr.GetMeta(err)["op"])
	s.Equal(125, aria.conn.Character().CurrentMP)
}

func (s *ConnectionTestSuite) TestAttack_ChargesCostAndPublishes() {
	aria := s.connect("Aria")
	borin := s.connect("Borin")
	s.seesPeer(aria, "Borin", nil)

	s.Require().NoError(aria.conn.Update(s.ctx, func(c *character.Character) error {
		return c.AddAbility(&character.Ability{
			ID:     "fireball",
			Name:   "Bola de Fogo",
			Type:   character.AbilityAttackSkill,
			Cost:   character.Cost{Type: character.CostMP, MP: 30},
			Attack: &character.AttackSpec{Multiplier: 1.5, DamageType: character.DamageMagical},
		})
	}))

	aria.roller.SetRolls([]int{7, 8})
	outcome, err := aria.conn.Attack(s.ctx, "Borin", "fireball")
	s.Require().NoError(err)
	s.Equal(18, outcome.Damage)
	s.Equal(95, aria.conn.Character().CurrentMP)

	s.Require().Eventually(func() bool { return borin.conn.Character().CurrentHP == 142 }, wait, tick)
	s.seesPeer(borin, "Aria", func(p *session.Presence) bool { return p.Character.CurrentMP == 95 })

	history, err := s.messages.History(s.ctx, tableID, 1)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	data := history[0].CombatData
	s.Require().NotNil(data)
	s.Equal("Bola de Fogo", data.Action)
	s.Equal("Borin", data.Target)
	s.Equal(18, data.Damage)
}

func (s *ConnectionTestSuite) TestRolls() {
	aria := s.connect("Aria")
	notifier := &fakeNotifier{}
	aria.conn.notifier = notifier

	aria.roller.SetRolls([]int{10, 10, 4})

	msg, err := aria.conn.RollAttribute(s.ctx, character.AttributeStr)
	s.Require().NoError(err)
	s.Equal(session.KindRoll, msg.Kind)
	s.Require().NotNil(msg.RollData)
	s.Equal(session.RollAttribute, msg.RollData.Type)
	s.Equal(25, msg.RollData.Total)
	s.Equal(5, *msg.RollData.AttributeValue)
	s.True(*msg.RollData.IsCritical)

	msg, err = aria.conn.RollDice(s.ctx, "1d6+2")
	s.Require().NoError(err)
	s.Equal(session.RollCustom, msg.RollData.Type)
	s.Equal(6, msg.RollData.Total)
	s.Equal([]int{4}, msg.RollData.Rolls)

	_, err = aria.conn.RollDice(s.ctx, "banana")
	s.Equal(apperr.CodeInvalidArgument, apperr.GetCode(err))

	_, err = aria.conn.RollAttribute(s.ctx, "luck")
	s.Equal(apperr.CodeInvalidArgument, apperr.GetCode(err))

	_, err = aria.conn.SendChat(s.ctx, "oi", false)
	s.Require().NoError(err)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	s.Len(notifier.sent, 2, "only roll and combat messages are forwarded")
}

func (s *ConnectionTestSuite) TestSendChat() {
	aria := s.connect("Aria")

	msg, err := aria.conn.SendChat(s.ctx, "  a porta está trancada  ", true)
	s.Require().NoError(err)
	s.Equal(session.KindMaster, msg.Kind)
	s.Equal("a porta está trancada", msg.Content)
	s.NotEmpty(msg.ID)

	_, err = aria.conn.SendChat(s.ctx, "   ", false)
	s.Equal(apperr.CodeInvalidArgument, apperr.GetCode(err))
}

func (s *ConnectionTestSuite) TestUpdate_RejectedEditKeepsCharacter() {
	aria := s.connect("Aria")

	err := aria.conn.Update(s.ctx, func(c *character.Character) error {
		c.CurrentHP = 1
		return c.SetAttribute(character.AttributeStr, 99)
	})
	s.Error(err)
	s.Equal(160, aria.conn.Character().CurrentHP)
}

func (s *ConnectionTestSuite) TestUpdate_AppliesWhileResubscribeFails() {
	flaky := &flakyMessages{Repository: s.messages}
	aria := s.newClient("Aria", flaky)
	_, err := aria.conn.Connect(s.ctx)
	s.Require().NoError(err)

	flaky.setSubscribeErr(errors.New("redis down"))
	s.messages.Disconnect(tableID, errors.New("link down"))
	s.Require().Eventually(func() bool { return aria.conn.State() == StateDisconnected }, wait, tick)

	s.Require().NoError(aria.conn.Update(s.ctx, func(c *character.Character) error {
		return c.SetLevel(2)
	}))
	s.Equal(2, aria.conn.Character().Level)
	s.Equal(StateDisconnected, aria.conn.State())

	flaky.setSubscribeErr(nil)
	_, err = aria.conn.SendChat(s.ctx, "voltei", false)
	s.Require().NoError(err)
	s.Equal(StateSubscribed, aria.conn.State())

	list, err := s.presence.List(s.ctx, tableID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(2, list[0].Character.Level, "the deferred snapshot went out with the next action")
}

func (s *ConnectionTestSuite) TestPresenceRefresh_KeepsIdleClientListed() {
	clock := &settableClock{now: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)}
	s.presence = presence.NewInMemoryRepository(clock)

	aria := s.newClient("Aria", nil)
	aria.conn.presenceRefresh = 5 * time.Millisecond
	_, err := aria.conn.Connect(s.ctx)
	s.Require().NoError(err)

	clock.Advance(presence.DefaultTTL + time.Minute)
	s.Require().Eventually(func() bool {
		list, listErr := s.presence.List(s.ctx, tableID)
		return listErr == nil && len(list) == 1 && list[0].Identity == "aria"
	}, wait, tick)

	s.Require().NoError(aria.conn.Leave(s.ctx))
	s.Never(func() bool {
		list, listErr := s.presence.List(s.ctx, tableID)
		return listErr != nil || len(list) > 0
	}, 50*time.Millisecond, tick, "refresh stops on leave")
}

func (s *ConnectionTestSuite) TestActionsBeforeConnect() {
	aria := s.newClient("Aria", nil)

	_, err := aria.conn.SendChat(s.ctx, "oi", false)
	s.Equal(apperr.CodeSessionClosed, apperr.GetCode(err))

	s.NoError(aria.conn.Update(s.ctx, func(c *character.Character) error {
		return c.SetLevel(2)
	}), "offline edits are allowed")
	s.Equal(2, aria.conn.Character().Level)
}

func (s *ConnectionTestSuite) TestLeave_IsTerminal() {
	aria := s.connect("Aria")
	borin := s.connect("Borin")
	s.seesPeer(borin, "Aria", nil)

	s.Require().NoError(aria.conn.Leave(s.ctx))
	s.True(aria.conn.Left())
	s.Equal(StateDisconnected, aria.conn.State())

	s.Require().Eventually(func() bool { return borin.conn.Peer("Aria") == nil }, wait, tick)
	s.Require().Eventually(func() bool { return borin.events.received("Aria saiu da sessão") == 1 }, wait, tick)

	_, err := aria.conn.SendChat(s.ctx, "ainda aqui?", false)
	s.Equal(apperr.CodeSessionClosed, apperr.GetCode(err))
	_, err = aria.conn.Connect(s.ctx)
	s.Equal(apperr.CodeSessionClosed, apperr.GetCode(err))
	s.Error(aria.conn.Update(s.ctx, func(*character.Character) error { return nil }))

	s.NoError(aria.conn.Leave(s.ctx), "leaving twice is a no-op")
}

func (s *ConnectionTestSuite) TestTransportLoss_ResubscribesFromCursor() {
	aria := s.connect("Aria")
	borin := s.connect("Borin")
	s.seesPeer(borin, "Aria", nil)

	s.messages.Disconnect(tableID, errors.New("link down"))
	s.Require().Eventually(func() bool { return aria.conn.State() == StateDisconnected }, wait, tick)

	borin.roller.SetRolls([]int{6, 4})
	_, err := borin.conn.Attack(s.ctx, "Aria", "")
	s.Require().NoError(err)
	s.Equal(160, aria.conn.Character().CurrentHP, "nothing arrives while disconnected")

	_, err = aria.conn.SendChat(s.ctx, "voltei", false)
	s.Require().NoError(err)
	s.Equal(StateSubscribed, aria.conn.State())

	s.Require().Eventually(func() bool { return aria.events.received("voltei") == 1 }, wait, tick)
	s.Equal(150, aria.conn.Character().CurrentHP)
	s.Equal(1, aria.events.count(events.EventTypeDamageTaken))
}

func (s *ConnectionTestSuite) TestTargets() {
	aria := s.connect("Aria")
	s.connect("Cael")
	s.connect("Borin")

	s.Require().Eventually(func() bool { return len(aria.conn.Targets()) == 2 }, wait, tick)
	targets := aria.conn.Targets()
	s.Equal("Borin", targets[0].Character.Name)
	s.Equal("Cael", targets[1].Character.Name)
}

func (s *ConnectionTestSuite) TestIdentityFromGenerator() {
	conn := New(&Config{
		SessionID:     tableID,
		Character:     character.New("Aria", "Maga"),
		Messages:      s.messages,
		Presence:      s.presence,
		UUIDGenerator: uuid.NewSequenceGenerator("client"),
	})

	s.Equal("client-1", conn.Identity())
	s.Equal(tableID, conn.SessionID())
	s.Equal(StateDisconnected, conn.State())
}
