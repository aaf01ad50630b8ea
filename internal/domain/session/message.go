package session

import (
	"time"
)

// MessageKind classifies an entry of the session log
type MessageKind string

const (
	KindSystem MessageKind = "system"
	KindPlayer MessageKind = "player"
	KindMaster MessageKind = "master"
	KindRoll   MessageKind = "roll"
	KindCombat MessageKind = "combat"
)

// Valid reports whether k is one of the known kinds
func (k MessageKind) Valid() bool {
	switch k {
	case KindSystem, KindPlayer, KindMaster, KindRoll, KindCombat:
		return true
	}
	return false
}

// Message is one entry of the append-only, session-scoped log.
// ID and CreatedAt are assigned by the store, never by the client.
// ClientID is stamped once by the sender, so a retried append keeps it.
type Message struct {
	ID         string      `json:"id"`
	ClientID   string      `json:"clientId,omitempty"`
	SessionID  string      `json:"sessionId"`
	SenderName string      `json:"senderName"`
	Kind       MessageKind `json:"kind"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"createdAt"`
	RollData   *RollData   `json:"rollData,omitempty"`
	CombatData *CombatData `json:"combatData,omitempty"`
}

// RollType names what a roll message was for
type RollType string

const (
	RollAttribute RollType = "attribute"
	RollCustom    RollType = "custom"
)

// RollData is attached to roll messages
type RollData struct {
	Type           RollType `json:"type"`
	Rolls          []int    `json:"rolls"`
	Total          int      `json:"total"`
	Context        string   `json:"context,omitempty"`
	AttributeValue *int     `json:"attributeValue,omitempty"`
	IsCritical     *bool    `json:"isCritical,omitempty"`
}

// AttackRoll is the dice part of a combat record
type AttackRoll struct {
	Dice       [2]int `json:"dice"`
	Total      int    `json:"total"`
	Attribute  int    `json:"attribute"`
	FinalTotal int    `json:"finalTotal"`
}

// CombatData is attached to combat messages. The receiving client trusts Damage as sent.
type CombatData struct {
	Attacker          string     `json:"attacker"`
	Target            string     `json:"target"`
	Action            string     `json:"action"`
	AttackRoll        AttackRoll `json:"attackRoll"`
	TargetDefense     int        `json:"targetDefense"`
	Damage            int        `json:"damage"`
	IsCritical        bool       `json:"isCritical"`
	IsCriticalFailure bool       `json:"isCriticalFailure"`
	Result            string     `json:"result"`
}
