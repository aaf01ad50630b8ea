package character

import (
	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
)

// MaxFatigue caps accumulated fatigue
const MaxFatigue = 120

// CostType names which resources an action consumes
type CostType string

const (
	CostNone    CostType = "none"
	CostMP      CostType = "mp"
	CostFatigue CostType = "fatigue"
	CostBoth    CostType = "both"
)

// Cost is the resource price attached to abilities and weapons.
// An empty Type is treated as CostNone.
type Cost struct {
	Type    CostType `json:"type"`
	MP      int      `json:"mpCost,omitempty"`
	Fatigue int      `json:"fatigueCost,omitempty"`
}

func (c Cost) usesMP() bool {
	return c.Type == CostMP || c.Type == CostBoth
}

func (c Cost) usesFatigue() bool {
	return c.Type == CostFatigue || c.Type == CostBoth
}

// Validate rejects a cost whose legs do not match its type
func (c Cost) Validate() error {
	switch c.Type {
	case "", CostNone:
		return nil
	case CostMP, CostFatigue, CostBoth:
	default:
		return apperr.InvalidModifierf("unknown cost type %q", c.Type)
	}
	if c.usesMP() && c.MP <= 0 {
		return apperr.InvalidModifierf("cost %q requires a positive mp amount", c.Type)
	}
	if c.usesFatigue() && c.Fatigue <= 0 {
		return apperr.InvalidModifierf("cost %q requires a positive fatigue amount", c.Type)
	}
	return nil
}

// CanAfford checks the cost without touching the character. Only the MP leg can fail.
func (c *Character) CanAfford(cost Cost) error {
	if cost.usesMP() && c.CurrentMP < cost.MP {
		return apperr.InsufficientResource("mp", cost.MP, c.CurrentMP)
	}
	return nil
}

// Spend charges cost atomically: on failure nothing is applied.
// The MP check runs before fatigue is added.
func (c *Character) Spend(cost Cost) error {
	if err := c.CanAfford(cost); err != nil {
		return err
	}
	if cost.usesMP() {
		c.CurrentMP = max(0, c.CurrentMP-cost.MP)
	}
	if cost.usesFatigue() {
		c.SetFatigue(c.Fatigue + cost.Fatigue)
	}
	return nil
}

// SetFatigue stores fatigue clamped to [0, MaxFatigue]
func (c *Character) SetFatigue(fatigue int) {
	c.Fatigue = clamp(fatigue, 0, MaxFatigue)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
