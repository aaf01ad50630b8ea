package character

import (
	"strings"

	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
)

// Validate checks a sheet that was built outside the setters, such as one
// decoded from a file, and clamps its resources into range.
func (c *Character) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperr.Validationf("character name is required")
	}
	if c.Level < 1 {
		return apperr.Validationf("level must be at least 1, got %d", c.Level)
	}
	for _, attr := range AllAttributes {
		if v := c.Attributes.Get(attr); v < MinAttributeValue {
			return apperr.Validationf("%s is %d, below the floor of %d", attr, v, MinAttributeValue)
		}
	}
	if spent, budget := c.SpentAttributePoints(), AttributePointBudget(c.Level); spent > budget {
		return apperr.Validationf("%d attribute points spent, level %d allows %d", spent, c.Level, budget)
	}
	if err := c.SetAttackAttribute(c.CombatPreferences.AttackAttribute); err != nil {
		return err
	}

	if err := c.validateEquipment(); err != nil {
		return err
	}
	if err := c.validateTitles(); err != nil {
		return err
	}
	if err := c.validateAbilities(); err != nil {
		return err
	}

	c.SetFatigue(c.Fatigue)
	c.clampResources()
	return nil
}

func (c *Character) validateEquipment() error {
	ids := make(map[string]struct{}, len(c.Equipment))
	slots := make(map[Slot]string)
	for i, e := range c.Equipment {
		if e == nil {
			return apperr.InvalidModifierf("equipment entry %d is empty", i)
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := ids[e.ID]; dup {
			return apperr.Validationf("equipment %s appears twice", e.ID)
		}
		ids[e.ID] = struct{}{}

		if !e.Equipped() {
			continue
		}
		if !e.Slot.Accepts(e.Type) {
			return apperr.Validationf("%s cannot be equipped in slot %q", e.ID, e.Slot)
		}
		if other, taken := slots[e.Slot]; taken {
			return apperr.Validationf("slot %q holds both %s and %s", e.Slot, other, e.ID)
		}
		slots[e.Slot] = e.ID
	}
	return nil
}

func (c *Character) validateTitles() error {
	ids := make(map[string]struct{}, len(c.Titles))
	for i, t := range c.Titles {
		if t == nil {
			return apperr.InvalidModifierf("title entry %d is empty", i)
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := ids[t.ID]; dup {
			return apperr.Validationf("title %s appears twice", t.ID)
		}
		ids[t.ID] = struct{}{}
	}

	if len(c.ActiveTitles) > 1 {
		return apperr.Validationf("only one title may be active, got %d", len(c.ActiveTitles))
	}
	for _, id := range c.ActiveTitles {
		if _, ok := ids[id]; !ok {
			return apperr.NotFoundf("active title not found: %s", id)
		}
	}
	return nil
}

func (c *Character) validateAbilities() error {
	ids := make(map[string]struct{}, len(c.Abilities))
	for i, a := range c.Abilities {
		if a == nil {
			return apperr.InvalidModifierf("ability entry %d is empty", i)
		}
		if err := a.Validate(); err != nil {
			return err
		}
		if _, dup := ids[a.ID]; dup {
			return apperr.Validationf("ability %s appears twice", a.ID)
		}
		ids[a.ID] = struct{}{}
	}

	for _, id := range c.ActiveAbilities {
		if _, ok := ids[id]; !ok {
			return apperr.NotFoundf("active ability not found: %s", id)
		}
	}
	return nil
}
