package character_test

import (
	"testing"

	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	apperr "github.com/KirkDiggler/sheet-sync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAttribute_Budget(t *testing.T) {
	c := character.New("Aria", "Guerreira")
	assert.Equal(t, character.InitialAttributePoints, c.RemainingAttributePoints())

	require.NoError(t, c.SetAttribute(character.AttributeStr, 12))
	assert.Equal(t, 3, c.RemainingAttributePoints())

	err := c.SetAttribute(character.AttributeVit, 9)
	assert.Equal(t, apperr.CodeValidation, apperr.GetCode(err))
	assert.Equal(t, 5, c.Attributes.Vit)

	require.NoError(t, c.SetLevel(3))
	assert.Equal(t, 9, c.RemainingAttributePoints())
	require.NoError(t, c.SetAttribute(character.AttributeVit, 9))
	assert.Equal(t, 100+9*12, c.Stats().MaxHP)
	assert.Equal(t, 160, c.CurrentHP, "leveling vitality does not heal")
}

func TestSetAttribute_Floor(t *testing.T) {
	c := character.New("Aria", "Guerreira")

	err := c.SetAttribute(character.AttributeAgi, 4)
	assert.Equal(t, apperr.CodeValidation, apperr.GetCode(err))

	err = c.SetAttribute("luck", 6)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.GetCode(err))
}

func TestSetAttribute_LoweringIntClampsMP(t *testing.T) {
	c := character.New("Aria", "Maga")
	require.NoError(t, c.SetAttribute(character.AttributeInt, 10))
	c.Rest()
	assert.Equal(t, 200, c.CurrentMP)

	require.NoError(t, c.SetAttribute(character.AttributeInt, 5))
	assert.Equal(t, 125, c.CurrentMP)
}

func TestSetLevel_CannotStrandPoints(t *testing.T) {
	c := character.New("Aria", "Guerreira")
	require.NoError(t, c.SetLevel(2))
	require.NoError(t, c.SetAttribute(character.AttributeStr, 18))

	assert.Error(t, c.SetLevel(1))
	assert.Error(t, c.SetLevel(0))
	assert.Equal(t, 2, c.Level)
}

func TestEquip_SlotRules(t *testing.T) {
	c := character.New("Aria", "Guerreira")
	require.NoError(t, c.AddEquipment(sword(character.RarityCommon)))
	require.NoError(t, c.AddEquipment(&character.Equipment{
		ID: "axe", Type: character.EquipmentWeapon, Rarity: character.RarityUncommon,
	}))

	assert.Error(t, c.Equip("sword", character.SlotBody))
	assert.True(t, apperr.IsNotFound(c.Equip("bow", character.SlotMainHand)))

	require.NoError(t, c.Equip("sword", character.SlotMainHand))
	require.NoError(t, c.Equip("axe", character.SlotMainHand))

	assert.False(t, c.FindEquipment("sword").Equipped(), "axe displaces sword")
	assert.Equal(t, "axe", c.EquippedWeapon().ID)
	assert.Equal(t, 5+20, c.Stats().Attack)
}

func TestAddEquipment_Validation(t *testing.T) {
	c := character.New("Aria", "Guerreira")

	assert.Error(t, c.AddEquipment(&character.Equipment{ID: "x", Type: character.EquipmentWeapon, Rarity: 7}))
	assert.Error(t, c.AddEquipment(&character.Equipment{ID: "x", Type: "shield", Rarity: 1}))
	require.NoError(t, c.AddEquipment(sword(character.RarityCommon)))
	assert.Error(t, c.AddEquipment(sword(character.RarityCommon)), "duplicate id")
}

func TestTakeDamageAndHeal(t *testing.T) {
	c := character.New("Aria", "Guerreira")

	assert.Equal(t, 60, c.TakeDamage(60))
	assert.Equal(t, 100, c.CurrentHP)
	assert.Equal(t, 0, c.TakeDamage(-5))

	assert.Equal(t, 100, c.TakeDamage(500))
	assert.Equal(t, 0, c.CurrentHP)

	assert.Equal(t, 160, c.Heal(1000))
	assert.Equal(t, 160, c.CurrentHP)
}

func TestNameMatches(t *testing.T) {
	assert.True(t, character.NameMatches("Aria ", "aria"))
	assert.True(t, character.NameMatches(" ARIA", "Aria"))
	assert.False(t, character.NameMatches("Arian", "Aria"))
}

func TestClone_IsDeep(t *testing.T) {
	c := character.New("Aria", "Guerreira")
	require.NoError(t, c.AddEquipment(sword(character.RarityCommon)))
	require.NoError(t, c.AddTitle(&character.Title{ID: "slayer"}))
	require.NoError(t, c.ActivateTitle("slayer"))

	cp := c.Clone()
	require.NoError(t, cp.Equip("sword", character.SlotMainHand))
	cp.ActiveTitles[0] = "other"
	cp.CurrentMP = 1

	assert.False(t, c.FindEquipment("sword").Equipped())
	assert.Equal(t, []string{"slayer"}, c.ActiveTitles)
	assert.Equal(t, 125, c.CurrentMP)
}

func TestParseAttribute(t *testing.T) {
	attr, err := character.ParseAttribute(" INT ")
	require.NoError(t, err)
	assert.Equal(t, character.AttributeInt, attr)

	_, err = character.ParseAttribute("cha")
	assert.Error(t, err)
}
