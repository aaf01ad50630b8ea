package dice

type randomRoller struct{}

// NewRandomRoller creates a roller backed by math/rand
func NewRandomRoller() Roller {
	return &randomRoller{}
}

// Roll implements Roller.Roll
func (r *randomRoller) Roll(count, sides, bonus int) (*RollResult, error) {
	return roll(count, sides, bonus)
}
