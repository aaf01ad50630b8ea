package character

import (
	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
)

// SourceKind discriminates the modifier source variants
type SourceKind string

const (
	SourceEquipment SourceKind = "equipment"
	SourceTitle     SourceKind = "title"
	SourceAbility   SourceKind = "ability"
)

// Source is anything that can contribute bonuses to a character.
// The set of implementations is closed: Equipment, Title and Ability.
type Source interface {
	Kind() SourceKind
	SourceID() string
	AttributeBonuses() []AttributeBonus
	StatBonuses() *StatBonus

	modifierSource()
}

// AttributeBonus is a signed delta applied to one attribute
type AttributeBonus struct {
	Attribute Attribute `json:"attribute"`
	Value     int       `json:"value"`
}

// StatBonus is a bundle of optional named-stat bonuses. Absent fields are 0.
type StatBonus struct {
	HP             int `json:"hp,omitempty"`
	MP             int `json:"mp,omitempty"`
	PhysicalDamage int `json:"physicalDamage,omitempty"`
	MagicDamage    int `json:"magicDamage,omitempty"`
	Attack         int `json:"attack,omitempty"`
	MagicAttack    int `json:"magicAttack,omitempty"`
	Speed          int `json:"speed,omitempty"`
	Defense        int `json:"defense,omitempty"`
}

// Add folds other into s. A nil other contributes nothing.
func (s *StatBonus) Add(other *StatBonus) {
	if other == nil {
		return
	}
	s.HP += other.HP
	s.MP += other.MP
	s.PhysicalDamage += other.PhysicalDamage
	s.MagicDamage += other.MagicDamage
	s.Attack += other.Attack
	s.MagicAttack += other.MagicAttack
	s.Speed += other.Speed
	s.Defense += other.Defense
}

// EquipmentType is the equipment category
type EquipmentType string

const (
	EquipmentWeapon    EquipmentType = "weapon"
	EquipmentArmor     EquipmentType = "armor"
	EquipmentAccessory EquipmentType = "accessory"
)

// Rarity is the 1..6 ordinal of an item
type Rarity int

const (
	RarityCommon Rarity = iota + 1
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityMythic
)

// Valid reports whether r is within the 1..6 range
func (r Rarity) Valid() bool {
	return r >= RarityCommon && r <= RarityMythic
}

// FlatBonus is the attack (weapon) or defense (armor) granted while equipped
func (r Rarity) FlatBonus() int {
	return 10 * int(r)
}

// Slot is where an equipped item sits. The zero value means unequipped.
type Slot string

const (
	SlotNone       Slot = ""
	SlotMainHand   Slot = "main_hand"
	SlotBody       Slot = "body"
	SlotAccessory1 Slot = "accessory_1"
	SlotAccessory2 Slot = "accessory_2"
)

// Accepts reports whether an item of type t may go into slot
func (s Slot) Accepts(t EquipmentType) bool {
	switch s {
	case SlotMainHand:
		return t == EquipmentWeapon
	case SlotBody:
		return t == EquipmentArmor
	case SlotAccessory1, SlotAccessory2:
		return t == EquipmentAccessory
	}
	return false
}

// Equipment contributes only while equipped (Slot set)
type Equipment struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Type       EquipmentType    `json:"type"`
	Rarity     Rarity           `json:"rarity"`
	Slot       Slot             `json:"slot,omitempty"`
	Attributes []AttributeBonus `json:"attributeBonuses,omitempty"`
	Stats      *StatBonus       `json:"statBonus,omitempty"`
	// Cost is charged when this weapon is used for a basic attack
	Cost Cost `json:"resourceCost"`
}

func (e *Equipment) Kind() SourceKind                   { return SourceEquipment }
func (e *Equipment) SourceID() string                   { return e.ID }
func (e *Equipment) AttributeBonuses() []AttributeBonus { return e.Attributes }
func (e *Equipment) StatBonuses() *StatBonus            { return e.Stats }
func (e *Equipment) modifierSource()                    {}

// Equipped reports whether the item sits in a slot
func (e *Equipment) Equipped() bool {
	return e.Slot != SlotNone
}

// Title contributes only while it is the active title
type Title struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Category   string           `json:"category,omitempty"`
	Attributes []AttributeBonus `json:"attributeBonuses,omitempty"`
	Stats      *StatBonus       `json:"statBonus,omitempty"`
}

func (t *Title) Kind() SourceKind                   { return SourceTitle }
func (t *Title) SourceID() string                   { return t.ID }
func (t *Title) AttributeBonuses() []AttributeBonus { return t.Attributes }
func (t *Title) StatBonuses() *StatBonus            { return t.Stats }
func (t *Title) modifierSource()                    {}

// AbilityType is the kind of ability
type AbilityType string

const (
	AbilityAttributeBuff AbilityType = "attribute_buff"
	AbilityAttackSkill   AbilityType = "attack_skill"
	AbilityAttackBuff    AbilityType = "attack_buff"
	AbilityPassiveSkill  AbilityType = "passive_skill"
)

// DamageType selects which attack/damage pair an attack uses
type DamageType string

const (
	DamagePhysical DamageType = "physical"
	DamageMagical  DamageType = "magical"
)

// AttackSpec is read by the combat resolver at roll time. It is never a standing bonus.
type AttackSpec struct {
	Multiplier float64    `json:"multiplier"`
	DamageType DamageType `json:"damageType"`
}

// Ability is either passive (always on) or toggled via ActiveAbilities
type Ability struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Type       AbilityType      `json:"type"`
	Attributes []AttributeBonus `json:"attributeBonuses,omitempty"`
	Stats      *StatBonus       `json:"statBonus,omitempty"`
	Cost       Cost             `json:"resourceCost"`
	Attack     *AttackSpec      `json:"attack,omitempty"`
}

func (a *Ability) Kind() SourceKind                   { return SourceAbility }
func (a *Ability) SourceID() string                   { return a.ID }
func (a *Ability) AttributeBonuses() []AttributeBonus { return a.Attributes }
func (a *Ability) StatBonuses() *StatBonus            { return a.Stats }
func (a *Ability) modifierSource()                    {}

// Passive reports whether the ability is always on
func (a *Ability) Passive() bool {
	return a.Type == AbilityPassiveSkill
}

// Validate checks an equipment definition at authoring time
func (e *Equipment) Validate() error {
	if e.ID == "" {
		return apperr.InvalidModifierf("equipment id is required")
	}
	if !e.Rarity.Valid() {
		return apperr.InvalidModifierf("equipment %s: rarity %d out of range 1-6", e.ID, e.Rarity)
	}
	switch e.Type {
	case EquipmentWeapon, EquipmentArmor, EquipmentAccessory:
	default:
		return apperr.InvalidModifierf("equipment %s: unknown type %q", e.ID, e.Type)
	}
	if err := validateAttributeBonuses(e.ID, e.Attributes); err != nil {
		return err
	}
	return e.Cost.Validate()
}

// Validate checks a title definition at authoring time
func (t *Title) Validate() error {
	if t.ID == "" {
		return apperr.InvalidModifierf("title id is required")
	}
	return validateAttributeBonuses(t.ID, t.Attributes)
}

// Validate checks an ability definition at authoring time
func (a *Ability) Validate() error {
	if a.ID == "" {
		return apperr.InvalidModifierf("ability id is required")
	}
	switch a.Type {
	case AbilityAttributeBuff, AbilityAttackBuff, AbilityPassiveSkill:
	case AbilityAttackSkill:
		if a.Attack == nil {
			return apperr.InvalidModifierf("ability %s: attack_skill requires an attack descriptor", a.ID)
		}
		if a.Attack.Multiplier <= 0 {
			return apperr.InvalidModifierf("ability %s: multiplier must be positive", a.ID)
		}
		if a.Attack.DamageType != DamagePhysical && a.Attack.DamageType != DamageMagical {
			return apperr.InvalidModifierf("ability %s: unknown damage type %q", a.ID, a.Attack.DamageType)
		}
	default:
		return apperr.InvalidModifierf("ability %s: unknown type %q", a.ID, a.Type)
	}
	if err := validateAttributeBonuses(a.ID, a.Attributes); err != nil {
		return err
	}
	return a.Cost.Validate()
}

func validateAttributeBonuses(id string, bonuses []AttributeBonus) error {
	for _, b := range bonuses {
		if _, err := ParseAttribute(string(b.Attribute)); err != nil {
			return apperr.InvalidModifierf("%s: %v", id, err)
		}
	}
	return nil
}
