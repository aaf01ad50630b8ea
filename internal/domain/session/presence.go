package session

import (
	"time"

	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
)

// CharacterSnapshot is the read-only view of a character published to peers.
// Fields a peer did not send decode as zero, so a missing defense reads as 0.
type CharacterSnapshot struct {
	Name           string               `json:"name"`
	Class          string               `json:"class"`
	Level          int                  `json:"level"`
	Attributes     character.Attributes `json:"attributes"`
	CurrentHP      int                  `json:"currentHp"`
	MaxHP          int                  `json:"maxHp"`
	CurrentMP      int                  `json:"currentMp"`
	MaxMP          int                  `json:"maxMp"`
	Fatigue        int                  `json:"fatigue"`
	PhysicalDamage int                  `json:"physicalDamage"`
	MagicDamage    float64              `json:"magicDamage"`
	Attack         int                  `json:"attack"`
	MagicAttack    int                  `json:"magicAttack"`
	Speed          int                  `json:"speed"`
	Defense        int                  `json:"defense"`
}

// Presence is one client's latest snapshot. Last write wins per identity.
type Presence struct {
	Identity    string            `json:"identity"`
	Character   CharacterSnapshot `json:"character"`
	PublishedAt time.Time         `json:"publishedAt"`
}

// Snapshot captures c's current computed state
func Snapshot(c *character.Character) CharacterSnapshot {
	stats := c.Stats()
	return CharacterSnapshot{
		Name:           c.Name,
		Class:          c.Class,
		Level:          c.Level,
		Attributes:     c.Attributes,
		CurrentHP:      c.CurrentHP,
		MaxHP:          stats.MaxHP,
		CurrentMP:      c.CurrentMP,
		MaxMP:          stats.MaxMP,
		Fatigue:        c.Fatigue,
		PhysicalDamage: stats.PhysicalDamage,
		MagicDamage:    stats.MagicDamage,
		Attack:         stats.Attack,
		MagicAttack:    stats.MagicAttack,
		Speed:          stats.Speed,
		Defense:        stats.Defense,
	}
}

// PresenceEvent reports a peer joining, updating or leaving. Presence is nil on leave.
type PresenceEvent struct {
	Identity string    `json:"identity"`
	Presence *Presence `json:"presence,omitempty"`
}

// Left reports whether the event removes the identity
func (e PresenceEvent) Left() bool {
	return e.Presence == nil
}
