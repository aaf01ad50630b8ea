package character

// Sources returns every modifier source on the sheet, eligible or not.
// Nil entries are skipped so no typed-nil pointer hides in the interface.
func (c *Character) Sources() []Source {
	sources := make([]Source, 0, len(c.Equipment)+len(c.Titles)+len(c.Abilities))
	for _, e := range c.Equipment {
		if e != nil {
			sources = append(sources, e)
		}
	}
	for _, t := range c.Titles {
		if t != nil {
			sources = append(sources, t)
		}
	}
	for _, a := range c.Abilities {
		if a != nil {
			sources = append(sources, a)
		}
	}
	return sources
}

// Eligible reports whether src currently contributes its bonuses to c
func (c *Character) Eligible(src Source) bool {
	switch s := src.(type) {
	case *Equipment:
		return s.Equipped()
	case *Title:
		return c.IsTitleActive(s.ID)
	case *Ability:
		return s.Passive() || c.IsAbilityActive(s.ID)
	}
	return false
}

// Aggregate sums the attribute and stat bonuses of every eligible source.
// Plain signed addition, so the result does not depend on source order.
func Aggregate(c *Character) (Attributes, StatBonus) {
	return AggregateSources(c, c.Sources())
}

// AggregateSources is Aggregate over an explicit source list, with eligibility judged against c
func AggregateSources(c *Character, sources []Source) (Attributes, StatBonus) {
	var attrs Attributes
	var stats StatBonus

	for _, src := range sources {
		if src == nil || !c.Eligible(src) {
			continue
		}
		for _, b := range src.AttributeBonuses() {
			attrs.Add(b.Attribute, b.Value)
		}
		stats.Add(src.StatBonuses())

		if e, ok := src.(*Equipment); ok {
			switch e.Type {
			case EquipmentWeapon:
				stats.Attack += e.Rarity.FlatBonus()
			case EquipmentArmor:
				stats.Defense += e.Rarity.FlatBonus()
			}
		}
	}

	return attrs, stats
}
