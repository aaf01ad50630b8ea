package character

import "math"

// Stats are the combat-facing numbers derived from attributes and bonuses
type Stats struct {
	MaxHP          int     `json:"maxHp"`
	MaxMP          int     `json:"maxMp"`
	PhysicalDamage int     `json:"physicalDamage"`
	MagicDamage    float64 `json:"magicDamage"`
	Attack         int     `json:"attack"`
	MagicAttack    int     `json:"magicAttack"`
	Speed          int     `json:"speed"`
	Defense        int     `json:"defense"`
}

// Derive applies the fixed sheet formulas
func Derive(base, bonus Attributes, stats StatBonus) Stats {
	eff := base.Plus(bonus)

	return Stats{
		MaxHP:          100 + eff.Vit*12 + stats.HP,
		MaxMP:          50 + eff.Int*15 + stats.MP,
		PhysicalDamage: eff.Str*2 + stats.PhysicalDamage,
		MagicDamage:    roundTenth(float64(eff.Int)*2.5 + float64(stats.MagicDamage)),
		Attack:         eff.Str + stats.Attack,
		MagicAttack:    eff.Int + stats.MagicAttack,
		Speed:          eff.Agi + int(math.Floor(float64(eff.Agi)*0.5)) + stats.Speed,
		Defense:        eff.Vit + stats.Defense,
	}
}

// Stats aggregates c's bonuses and derives its current numbers
func (c *Character) Stats() Stats {
	attrBonus, statBonus := Aggregate(c)
	return Derive(c.Attributes, attrBonus, statBonus)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
