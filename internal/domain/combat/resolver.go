package combat

import (
	"math"

	"github.com/KirkDiggler/sheet-sync/internal/dice"
	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
)

// BasicAttackName is the action label for an attack without an ability
const BasicAttackName = "Ataque Básico"

// Action is what the attacker does: a basic attack (Ability nil) or an attack_skill
type Action struct {
	Ability *character.Ability
}

// BasicAttack returns the attacker's configured basic attack
func BasicAttack() Action {
	return Action{}
}

// WithAbility returns an action using ability
func WithAbility(ability *character.Ability) Action {
	return Action{Ability: ability}
}

// Name is the label put on the wire
func (a Action) Name() string {
	if a.Ability == nil {
		return BasicAttackName
	}
	if a.Ability.Name != "" {
		return a.Ability.Name
	}
	return a.Ability.ID
}

// Target is the part of a peer snapshot the resolver reads
type Target struct {
	Name    string
	Defense int
}

// Resolver resolves 2d10 attacks
type Resolver struct {
	roller dice.Roller
}

// ResolverConfig holds the resolver's collaborators
type ResolverConfig struct {
	Roller dice.Roller // Optional, defaults to a random roller
}

// NewResolver creates a resolver
func NewResolver(cfg *ResolverConfig) *Resolver {
	r := &Resolver{}
	if cfg != nil && cfg.Roller != nil {
		r.roller = cfg.Roller
	} else {
		r.roller = dice.NewRandomRoller()
	}
	return r
}

// Resolve rolls an attack from attacker against target. The action's cost is
// checked before rolling and charged only once the outcome exists; on any
// error the attacker is left untouched.
func (r *Resolver) Resolve(attacker *character.Character, target Target, action Action) (*Outcome, error) {
	if attacker == nil {
		return nil, apperr.InvalidArgument("attacker is required")
	}

	cost, damageType, err := r.prepare(attacker, action)
	if err != nil {
		return nil, err
	}
	if err := attacker.CanAfford(cost); err != nil {
		return nil, apperr.Wrapf(err, "cannot use %s", action.Name())
	}

	rolled, err := dice.Roll2d10(r.roller)
	if err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeInternal, "failed to roll attack")
	}

	stats := attacker.Stats()
	attackValue, baseDamage := pick(stats, damageType)
	if action.Ability != nil {
		baseDamage = math.Floor(baseDamage * action.Ability.Attack.Multiplier)
	}

	outcome := &Outcome{
		Dice:              rolled,
		RollTotal:         rolled[0] + rolled[1],
		AttackValue:       attackValue,
		TargetDefense:     target.Defense,
		IsCritical:        rolled[0] == dice.D10 && rolled[1] == dice.D10,
		IsCriticalFailure: rolled[0] == 1 && rolled[1] == 1,
		Cost:              cost,
		DamageType:        damageType,
	}
	outcome.AttackTotal = outcome.RollTotal + attackValue

	damage := int(math.Floor(baseDamage))
	switch {
	case outcome.IsCriticalFailure:
		outcome.Damage = 0
	case outcome.IsCritical:
		outcome.Hit = true
		outcome.Damage = damage * 2
	case outcome.AttackTotal >= outcome.TargetDefense:
		outcome.Hit = true
		outcome.Damage = damage
	}
	outcome.Result = outcome.label()

	if err := attacker.Spend(cost); err != nil {
		return nil, err
	}

	return outcome, nil
}

// prepare validates the action and returns its cost and damage type
func (r *Resolver) prepare(attacker *character.Character, action Action) (character.Cost, character.DamageType, error) {
	if action.Ability == nil {
		var cost character.Cost
		if weapon := attacker.EquippedWeapon(); weapon != nil {
			cost = weapon.Cost
		}
		return cost, attacker.CombatPreferences.AttackAttribute, nil
	}

	ability := action.Ability
	if ability.Type != character.AbilityAttackSkill || ability.Attack == nil {
		return character.Cost{}, "", apperr.InvalidArgument("ability " + ability.ID + " is not an attack skill")
	}
	if err := ability.Cost.Validate(); err != nil {
		return character.Cost{}, "", err
	}
	return ability.Cost, ability.Attack.DamageType, nil
}

func pick(stats character.Stats, damageType character.DamageType) (int, float64) {
	if damageType == character.DamageMagical {
		return stats.MagicAttack, stats.MagicDamage
	}
	return stats.Attack, float64(stats.PhysicalDamage)
}
