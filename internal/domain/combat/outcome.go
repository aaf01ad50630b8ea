package combat

import (
	"fmt"

	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
)

// Result labels shown to players
const (
	LabelCriticalFailure = "FALHA CRÍTICA!"
	labelCritical        = "CRÍTICO! %d de dano"
	labelHit             = "Acertou! %d de dano"
	LabelMiss            = "Errou!"
)

// Outcome is the full record of one attack as resolved by the attacker's client
type Outcome struct {
	Dice              [2]int
	RollTotal         int
	AttackValue       int
	AttackTotal       int
	TargetDefense     int
	Damage            int
	IsCritical        bool
	IsCriticalFailure bool
	Hit               bool
	Result            string

	// Cost actually charged to the attacker
	Cost character.Cost
	// DamageType of the attack/damage pair used
	DamageType character.DamageType
}

// CombatData converts the outcome into the wire record
func (o *Outcome) CombatData(attacker, target, action string) *session.CombatData {
	return &session.CombatData{
		Attacker: attacker,
		Target:   target,
		Action:   action,
		AttackRoll: session.AttackRoll{
			Dice:       o.Dice,
			Total:      o.RollTotal,
			Attribute:  o.AttackValue,
			FinalTotal: o.AttackTotal,
		},
		TargetDefense:     o.TargetDefense,
		Damage:            o.Damage,
		IsCritical:        o.IsCritical,
		IsCriticalFailure: o.IsCriticalFailure,
		Result:            o.Result,
	}
}

func (o *Outcome) label() string {
	switch {
	case o.IsCriticalFailure:
		return LabelCriticalFailure
	case o.IsCritical:
		return fmt.Sprintf(labelCritical, o.Damage)
	case o.Hit:
		return fmt.Sprintf(labelHit, o.Damage)
	}
	return LabelMiss
}
