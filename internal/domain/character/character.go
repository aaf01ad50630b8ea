package character

import (
	"slices"
	"strings"

	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
)

const (
	// InitialAttributePoints are the free points above the floor at level 1
	InitialAttributePoints = 10

	// AttributePointsPerLevel are granted on every level after the first
	AttributePointsPerLevel = 3
)

// CombatPreferences holds how the character's basic attack is made
type CombatPreferences struct {
	AttackAttribute DamageType `json:"attackAttribute"`
}

// Character is the single-writer aggregate owned by one client.
// It carries no lock: the owning component serializes access.
type Character struct {
	Name       string     `json:"name"`
	Class      string     `json:"class"`
	Level      int        `json:"level"`
	Attributes Attributes `json:"attributes"`

	Equipment []*Equipment `json:"equipment"`
	Abilities []*Ability   `json:"abilities"`
	Titles    []*Title     `json:"titles"`

	ActiveAbilities []string `json:"activeAbilities"`
	// ActiveTitles holds at most one id
	ActiveTitles []string `json:"activeTitles"`

	Fatigue   int `json:"fatigue"`
	CurrentHP int `json:"currentHp"`
	CurrentMP int `json:"currentMp"`

	CombatPreferences CombatPreferences `json:"combatPreferences"`
}

// New creates a level 1 character with every attribute at the floor and full HP/MP
func New(name, class string) *Character {
	c := &Character{
		Name:       strings.TrimSpace(name),
		Class:      class,
		Level:      1,
		Attributes: BaseAttributes(),
		CombatPreferences: CombatPreferences{
			AttackAttribute: DamagePhysical,
		},
	}

	stats := c.Stats()
	c.CurrentHP = stats.MaxHP
	c.CurrentMP = stats.MaxMP

	return c
}

// NameMatches compares names ignoring case and surrounding whitespace
func NameMatches(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// AttributePointBudget is the number of points above the floor a character may spend at level
func AttributePointBudget(level int) int {
	if level < 1 {
		level = 1
	}
	return InitialAttributePoints + AttributePointsPerLevel*(level-1)
}

// SpentAttributePoints counts points allocated above the floor
func (c *Character) SpentAttributePoints() int {
	return c.Attributes.Sum() - MinAttributeValue*len(AllAttributes)
}

// RemainingAttributePoints is what is left of the level budget
func (c *Character) RemainingAttributePoints() int {
	return AttributePointBudget(c.Level) - c.SpentAttributePoints()
}

// SetAttribute reallocates one attribute within the floor and the point budget
func (c *Character) SetAttribute(attr Attribute, value int) error {
	if _, err := ParseAttribute(string(attr)); err != nil {
		return apperr.InvalidArgument(err.Error())
	}
	if value < MinAttributeValue {
		return apperr.Validationf("%s cannot go below %d", attr, MinAttributeValue)
	}

	delta := value - c.Attributes.Get(attr)
	if delta > c.RemainingAttributePoints() {
		return apperr.Validationf("not enough attribute points: need %d, have %d", delta, c.RemainingAttributePoints()).
			WithMeta("remaining", c.RemainingAttributePoints())
	}

	c.Attributes.set(attr, value)
	c.clampResources()
	return nil
}

// SetLevel changes the level. Lowering it may not strand already spent points.
func (c *Character) SetLevel(level int) error {
	if level < 1 {
		return apperr.Validationf("level must be at least 1")
	}
	if c.SpentAttributePoints() > AttributePointBudget(level) {
		return apperr.Validationf("level %d budget cannot cover %d spent points", level, c.SpentAttributePoints())
	}
	c.Level = level
	return nil
}

// SetAttackAttribute picks the basic attack pair
func (c *Character) SetAttackAttribute(t DamageType) error {
	if t != DamagePhysical && t != DamageMagical {
		return apperr.InvalidArgument("attack attribute must be physical or magical")
	}
	c.CombatPreferences.AttackAttribute = t
	return nil
}

// SetCurrentHP stores hp clamped to [0, maxHp]
func (c *Character) SetCurrentHP(hp int) {
	c.CurrentHP = clamp(hp, 0, c.Stats().MaxHP)
}

// SetCurrentMP stores mp clamped to [0, maxMp]
func (c *Character) SetCurrentMP(mp int) {
	c.CurrentMP = clamp(mp, 0, c.Stats().MaxMP)
}

// TakeDamage lowers HP, never below zero, and returns the HP actually lost
func (c *Character) TakeDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.CurrentHP
	c.CurrentHP = max(0, c.CurrentHP-amount)
	return before - c.CurrentHP
}

// Heal raises HP up to the max and returns the HP actually restored
func (c *Character) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.CurrentHP
	c.SetCurrentHP(c.CurrentHP + amount)
	return c.CurrentHP - before
}

// Rest restores HP and MP to max and clears fatigue
func (c *Character) Rest() {
	stats := c.Stats()
	c.CurrentHP = stats.MaxHP
	c.CurrentMP = stats.MaxMP
	c.Fatigue = 0
}

// clampResources keeps current values inside the (possibly new) max without healing
func (c *Character) clampResources() {
	stats := c.Stats()
	c.CurrentHP = clamp(c.CurrentHP, 0, stats.MaxHP)
	c.CurrentMP = clamp(c.CurrentMP, 0, stats.MaxMP)
}

// AddEquipment puts a validated item into the inventory
func (c *Character) AddEquipment(e *Equipment) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if c.FindEquipment(e.ID) != nil {
		return apperr.Validationf("equipment %s already on sheet", e.ID)
	}
	c.Equipment = append(c.Equipment, e)
	c.clampResources()
	return nil
}

// FindEquipment returns the item with id or nil
func (c *Character) FindEquipment(id string) *Equipment {
	for _, e := range c.Equipment {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Equip places item id into slot, displacing whatever was there
func (c *Character) Equip(id string, slot Slot) error {
	item := c.FindEquipment(id)
	if item == nil {
		return apperr.NotFoundf("equipment not found: %s", id)
	}
	if !slot.Accepts(item.Type) {
		return apperr.Validationf("%s cannot be equipped in slot %q", item.Type, slot)
	}

	for _, e := range c.Equipment {
		if e.Slot == slot && e.ID != id {
			e.Slot = SlotNone
		}
	}
	item.Slot = slot
	c.clampResources()
	return nil
}

// Unequip clears the slot of item id
func (c *Character) Unequip(id string) error {
	item := c.FindEquipment(id)
	if item == nil {
		return apperr.NotFoundf("equipment not found: %s", id)
	}
	item.Slot = SlotNone
	c.clampResources()
	return nil
}

// EquippedWeapon returns the weapon in the main hand, if any
func (c *Character) EquippedWeapon() *Equipment {
	for _, e := range c.Equipment {
		if e.Type == EquipmentWeapon && e.Equipped() {
			return e
		}
	}
	return nil
}

// AddTitle adds a validated title, inactive
func (c *Character) AddTitle(t *Title) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if c.FindTitle(t.ID) != nil {
		return apperr.Validationf("title %s already on sheet", t.ID)
	}
	c.Titles = append(c.Titles, t)
	return nil
}

// FindTitle returns the title with id or nil
func (c *Character) FindTitle(id string) *Title {
	for _, t := range c.Titles {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// ActivateTitle makes id the only active title
func (c *Character) ActivateTitle(id string) error {
	if c.FindTitle(id) == nil {
		return apperr.NotFoundf("title not found: %s", id)
	}
	c.ActiveTitles = []string{id}
	c.clampResources()
	return nil
}

// DeactivateTitle clears the active title
func (c *Character) DeactivateTitle() {
	c.ActiveTitles = nil
	c.clampResources()
}

// IsTitleActive reports whether id is the active title
func (c *Character) IsTitleActive(id string) bool {
	return slices.Contains(c.ActiveTitles, id)
}

// ActiveTitle returns the active title or nil
func (c *Character) ActiveTitle() *Title {
	if len(c.ActiveTitles) == 0 {
		return nil
	}
	return c.FindTitle(c.ActiveTitles[0])
}

// AddAbility adds a validated ability, inactive unless passive
func (c *Character) AddAbility(a *Ability) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if c.FindAbility(a.ID) != nil {
		return apperr.Validationf("ability %s already on sheet", a.ID)
	}
	c.Abilities = append(c.Abilities, a)
	c.clampResources()
	return nil
}

// FindAbility returns the ability with id or nil
func (c *Character) FindAbility(id string) *Ability {
	for _, a := range c.Abilities {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// ActivateAbility turns on a non-passive ability. Passive abilities are always on.
func (c *Character) ActivateAbility(id string) error {
	a := c.FindAbility(id)
	if a == nil {
		return apperr.NotFoundf("ability not found: %s", id)
	}
	if a.Passive() || c.IsAbilityActive(id) {
		return nil
	}
	c.ActiveAbilities = append(c.ActiveAbilities, id)
	c.clampResources()
	return nil
}

// DeactivateAbility turns off an ability
func (c *Character) DeactivateAbility(id string) error {
	if c.FindAbility(id) == nil {
		return apperr.NotFoundf("ability not found: %s", id)
	}
	c.ActiveAbilities = slices.DeleteFunc(c.ActiveAbilities, func(active string) bool {
		return active == id
	})
	c.clampResources()
	return nil
}

// IsAbilityActive reports whether id was explicitly activated
func (c *Character) IsAbilityActive(id string) bool {
	return slices.Contains(c.ActiveAbilities, id)
}

// Clone returns a deep copy
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	out := *c

	out.Equipment = make([]*Equipment, len(c.Equipment))
	for i, e := range c.Equipment {
		cp := *e
		cp.Attributes = slices.Clone(e.Attributes)
		if e.Stats != nil {
			stats := *e.Stats
			cp.Stats = &stats
		}
		out.Equipment[i] = &cp
	}

	out.Abilities = make([]*Ability, len(c.Abilities))
	for i, a := range c.Abilities {
		cp := *a
		cp.Attributes = slices.Clone(a.Attributes)
		if a.Stats != nil {
			stats := *a.Stats
			cp.Stats = &stats
		}
		if a.Attack != nil {
			attack := *a.Attack
			cp.Attack = &attack
		}
		out.Abilities[i] = &cp
	}

	out.Titles = make([]*Title, len(c.Titles))
	for i, t := range c.Titles {
		cp := *t
		cp.Attributes = slices.Clone(t.Attributes)
		if t.Stats != nil {
			stats := *t.Stats
			cp.Stats = &stats
		}
		out.Titles[i] = &cp
	}

	out.ActiveAbilities = slices.Clone(c.ActiveAbilities)
	out.ActiveTitles = slices.Clone(c.ActiveTitles)
	return &out
}
