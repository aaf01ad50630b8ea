package connection

import (
	"context"
	"fmt"
	"strings"

	"github.com/KirkDiggler/sheet-sync/internal/dice"
	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/domain/combat"
	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
	"go.uber.org/zap"
)

// Attack resolves an attack against the peer named target.
// abilityID selects an attack skill; empty means a basic attack.
// Only attacks that deal damage are broadcast. The resource cost is
// charged after a successful send, so a failed send leaves the character untouched.
func (c *Connection) Attack(ctx context.Context, target, abilityID string) (*combat.Outcome, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if err := c.begin(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	peer := c.peerLocked(target)
	attacker := c.character.Clone()
	c.mu.Unlock()

	if peer == nil {
		return nil, apperr.TargetUnresolved(target)
	}

	action := combat.BasicAttack()
	if abilityID != "" {
		ability := attacker.FindAbility(abilityID)
		if ability == nil {
			return nil, apperr.NotFoundf("ability not found: %s", abilityID)
		}
		action = combat.WithAbility(ability)
	}

	outcome, err := c.resolver.Resolve(attacker, combat.Target{
		Name:    peer.Character.Name,
		Defense: peer.Character.Defense,
	}, action)
	if err != nil {
		return nil, err
	}

	if outcome.Damage > 0 {
		msg := &session.Message{
			SessionID:  c.sessionID,
			SenderName: attacker.Name,
			Kind:       session.KindCombat,
			Content: fmt.Sprintf("%s usou %s em %s: %s",
				attacker.Name, action.Name(), peer.Character.Name, outcome.Result),
			CombatData: outcome.CombatData(attacker.Name, peer.Character.Name, action.Name()),
		}
		if _, err := c.send(ctx, msg); err != nil {
			return nil, apperr.SyncTransport(err, "failed to send")
		}
	}

	c.mu.Lock()
	err = c.character.Spend(outcome.Cost)
	c.mu.Unlock()
	if err != nil {
		return nil, apperr.Wrap(err, "failed to charge attack cost")
	}

	c.logger.Info("attack resolved",
		zap.String("target", peer.Character.Name),
		zap.String("action", action.Name()),
		zap.Int("damage", outcome.Damage),
		zap.Bool("critical", outcome.IsCritical),
		zap.Bool("critical_failure", outcome.IsCriticalFailure))

	if outcome.Cost.Type != character.CostNone {
		_ = c.publishPresence(ctx)
	}

	return outcome, nil
}

// RollAttribute rolls 2d10 plus the effective value of attr and posts it
func (c *Connection) RollAttribute(ctx context.Context, attr character.Attribute) (*session.Message, error) {
	if _, err := character.ParseAttribute(string(attr)); err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}

	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if err := c.begin(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	name := c.character.Name
	bonus, _ := character.Aggregate(c.character)
	value := c.character.Attributes.Plus(bonus).Get(attr)
	c.mu.Unlock()

	rolled, err := dice.Roll2d10(c.roller)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to roll")
	}

	total := rolled[0] + rolled[1] + value
	critical := rolled[0] == dice.D10 && rolled[1] == dice.D10

	msg := &session.Message{
		SessionID:  c.sessionID,
		SenderName: name,
		Kind:       session.KindRoll,
		Content:    fmt.Sprintf("%s rolou %s: %d + %d + %d = %d", name, attr, rolled[0], rolled[1], value, total),
		RollData: &session.RollData{
			Type:           session.RollAttribute,
			Rolls:          rolled[:],
			Total:          total,
			Context:        string(attr),
			AttributeValue: &value,
			IsCritical:     &critical,
		},
	}

	stored, err := c.send(ctx, msg)
	if err != nil {
		return nil, apperr.SyncTransport(err, "failed to send")
	}
	return stored, nil
}

// RollDice rolls a free-form expression such as "1d6+2" and posts it
func (c *Connection) RollDice(ctx context.Context, expr string) (*session.Message, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if err := c.begin(ctx); err != nil {
		return nil, err
	}

	result, err := dice.RollString(c.roller, expr)
	if err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}

	c.mu.Lock()
	name := c.character.Name
	c.mu.Unlock()

	msg := &session.Message{
		SessionID:  c.sessionID,
		SenderName: name,
		Kind:       session.KindRoll,
		Content:    fmt.Sprintf("%s rolou %s", name, result),
		RollData: &session.RollData{
			Type:    session.RollCustom,
			Rolls:   result.Rolls,
			Total:   result.Total,
			Context: strings.TrimSpace(expr),
		},
	}

	stored, err := c.send(ctx, msg)
	if err != nil {
		return nil, apperr.SyncTransport(err, "failed to send")
	}
	return stored, nil
}

// SendChat posts a player message, or a master message when asMaster is set
func (c *Connection) SendChat(ctx context.Context, content string, asMaster bool) (*session.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.InvalidArgument("message cannot be empty")
	}

	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if err := c.begin(ctx); err != nil {
		return nil, err
	}

	kind := session.KindPlayer
	if asMaster {
		kind = session.KindMaster
	}

	c.mu.Lock()
	name := c.character.Name
	c.mu.Unlock()

	stored, err := c.send(ctx, &session.Message{
		SessionID:  c.sessionID,
		SenderName: name,
		Kind:       kind,
		Content:    content,
	})
	if err != nil {
		return nil, apperr.SyncTransport(err, "failed to send")
	}
	return stored, nil
}

// Update applies fn to a copy of the character and keeps the copy when fn
// succeeds. The edit always lands locally; once joined, syncing it is best
// effort and a snapshot that could not be published goes out on the next action.
func (c *Connection) Update(ctx context.Context, fn func(*character.Character) error) error {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return apperr.New(apperr.CodeSessionClosed, "connection already left the session")
	}
	draft := c.character.Clone()
	if err := fn(draft); err != nil {
		c.mu.Unlock()
		return err
	}
	c.character = draft
	c.presenceDirty = true
	joined := c.joined
	c.mu.Unlock()

	if !joined {
		return nil
	}
	if err := c.begin(ctx); err != nil {
		c.logger.Warn("edit kept locally, sync deferred", zap.Error(err))
	}
	return nil
}

// send appends msg and forwards roll and combat messages to the notifier.
// The sender id is stamped once, so every retry carries the same one.
func (c *Connection) send(ctx context.Context, msg *session.Message) (*session.Message, error) {
	if msg.ClientID == "" {
		msg.ClientID = c.ids.New()
	}

	var stored *session.Message
	err := c.retry(ctx, func() error {
		var err error
		stored, err = c.messages.Append(ctx, msg)
		return err
	})
	if err != nil {
		c.logger.Warn("failed to append message",
			zap.String("kind", string(msg.Kind)),
			zap.Error(err))
		return nil, err
	}

	if c.notifier != nil && (stored.Kind == session.KindRoll || stored.Kind == session.KindCombat) {
		if err := c.notifier.Notify(ctx, stored); err != nil {
			c.logger.Warn("failed to notify", zap.Error(err))
		}
	}
	return stored, nil
}
