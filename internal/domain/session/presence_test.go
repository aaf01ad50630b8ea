package session_test

import (
	"encoding/json"
	"testing"

	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	c := character.New("Aria", "Maga")
	c.CurrentHP = 90

	snap := session.Snapshot(c)

	assert.Equal(t, "Aria", snap.Name)
	assert.Equal(t, 90, snap.CurrentHP)
	assert.Equal(t, 160, snap.MaxHP)
	assert.Equal(t, 125, snap.MaxMP)
	assert.Equal(t, 12.5, snap.MagicDamage)
	assert.Equal(t, 5, snap.Defense)
}

func TestCharacterSnapshot_MissingStatsDecodeAsZero(t *testing.T) {
	var p session.Presence
	err := json.Unmarshal([]byte(`{"identity":"u1","character":{"name":"Old Client","currentHp":50}}`), &p)
	require.NoError(t, err)

	assert.Equal(t, "Old Client", p.Character.Name)
	assert.Equal(t, 0, p.Character.Defense)
}

func TestMessage_WireShape(t *testing.T) {
	msg := session.Message{
		ID:         "1700000000000-0",
		SessionID:  "s1",
		SenderName: "Aria",
		Kind:       session.KindCombat,
		Content:    "Aria atacou Borin",
		CombatData: &session.CombatData{
			Attacker:   "Aria",
			Target:     "Borin",
			Action:     "Ataque Básico",
			AttackRoll: session.AttackRoll{Dice: [2]int{4, 6}, Total: 10, Attribute: 5, FinalTotal: 15},
			Damage:     10,
			Result:     "Acertou! 10 de dano",
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "combat", raw["kind"])
	assert.NotContains(t, raw, "rollData")

	combat := raw["combatData"].(map[string]any)
	assert.Equal(t, []any{4.0, 6.0}, combat["attackRoll"].(map[string]any)["dice"])
	assert.Equal(t, false, combat["isCriticalFailure"])
}

func TestMessageKind_Valid(t *testing.T) {
	assert.True(t, session.KindMaster.Valid())
	assert.False(t, session.MessageKind("whisper").Valid())
}
