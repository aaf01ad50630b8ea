package character

import (
	"fmt"
	"strings"
)

// Attribute is one of the five base scores a player allocates points into
type Attribute string

const (
	AttributeStr   Attribute = "str"
	AttributeVit   Attribute = "vit"
	AttributeAgi   Attribute = "agi"
	AttributeInt   Attribute = "int"
	AttributeSense Attribute = "sense"
)

// AllAttributes lists the attributes in sheet order
var AllAttributes = []Attribute{AttributeStr, AttributeVit, AttributeAgi, AttributeInt, AttributeSense}

// MinAttributeValue is the floor enforced when a player edits an attribute
const MinAttributeValue = 5

// ParseAttribute accepts the short key in any case
func ParseAttribute(s string) (Attribute, error) {
	a := Attribute(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case AttributeStr, AttributeVit, AttributeAgi, AttributeInt, AttributeSense:
		return a, nil
	}
	return "", fmt.Errorf("unknown attribute %q", s)
}

// Attributes holds one value per attribute. It is used both for base scores
// and for aggregated (signed) bonuses.
type Attributes struct {
	Str   int `json:"str"`
	Vit   int `json:"vit"`
	Agi   int `json:"agi"`
	Int   int `json:"int"`
	Sense int `json:"sense"`
}

// BaseAttributes returns every attribute at the floor value
func BaseAttributes() Attributes {
	return Attributes{
		Str:   MinAttributeValue,
		Vit:   MinAttributeValue,
		Agi:   MinAttributeValue,
		Int:   MinAttributeValue,
		Sense: MinAttributeValue,
	}
}

// Get returns the value for attr, 0 for unknown keys
func (a Attributes) Get(attr Attribute) int {
	switch attr {
	case AttributeStr:
		return a.Str
	case AttributeVit:
		return a.Vit
	case AttributeAgi:
		return a.Agi
	case AttributeInt:
		return a.Int
	case AttributeSense:
		return a.Sense
	}
	return 0
}

func (a *Attributes) set(attr Attribute, value int) {
	switch attr {
	case AttributeStr:
		a.Str = value
	case AttributeVit:
		a.Vit = value
	case AttributeAgi:
		a.Agi = value
	case AttributeInt:
		a.Int = value
	case AttributeSense:
		a.Sense = value
	}
}

// Add adds delta to attr
func (a *Attributes) Add(attr Attribute, delta int) {
	a.set(attr, a.Get(attr)+delta)
}

// Plus returns the per-attribute sum of a and b
func (a Attributes) Plus(b Attributes) Attributes {
	return Attributes{
		Str:   a.Str + b.Str,
		Vit:   a.Vit + b.Vit,
		Agi:   a.Agi + b.Agi,
		Int:   a.Int + b.Int,
		Sense: a.Sense + b.Sense,
	}
}

// Sum totals all five attributes
func (a Attributes) Sum() int {
	return a.Str + a.Vit + a.Agi + a.Int + a.Sense
}
