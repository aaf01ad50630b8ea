package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Sides of the die used for every check in the game
const D10 = 10

// RollResult holds the individual dice and the bonus-adjusted total
type RollResult struct {
	Total int
	Rolls []int
	Bonus int
	Count int
	Sides int
}

// RawTotal is the sum of the dice without the bonus
func (r *RollResult) RawTotal() int {
	return r.Total - r.Bonus
}

// AllEqual reports whether every die landed on face
func (r *RollResult) AllEqual(face int) bool {
	if len(r.Rolls) == 0 {
		return false
	}
	for _, roll := range r.Rolls {
		if roll != face {
			return false
		}
	}
	return true
}

func (r *RollResult) String() string {
	compact := strings.ReplaceAll(fmt.Sprintf("%v", r.Rolls), " ", "")
	if r.Bonus == 0 {
		return fmt.Sprintf("%dd%d %s = %d", r.Count, r.Sides, compact, r.Total)
	}
	return fmt.Sprintf("%dd%d%+d %s = %d", r.Count, r.Sides, r.Bonus, compact, r.Total)
}

func roll(count, sides, bonus int) (*RollResult, error) {
	if count < 1 {
		return nil, errors.New("invalid dice count")
	}

	if sides < 1 {
		return nil, errors.New("invalid dice size")
	}

	total := 0
	out := make([]int, count)
	for i := 0; i < count; i++ {
		out[i] = rand.Intn(sides) + 1
		total += out[i]
	}

	return &RollResult{
		Total: total + bonus,
		Rolls: out,
		Bonus: bonus,
		Count: count,
		Sides: sides,
	}, nil
}

// Parse reads a dice expression like "2d10", "1d6+2" or "3d4-1"
func Parse(expr string) (count, sides, bonus int, err error) {
	expr = strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	diceExpr := expr

	if i := strings.IndexAny(expr, "+-"); i >= 0 {
		bonus, err = strconv.Atoi(expr[i:])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid dice string %q", expr)
		}
		diceExpr = expr[:i]
	}

	diceParts := strings.Split(diceExpr, "d")
	if len(diceParts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid dice string %q", expr)
	}

	count = 1
	if diceParts[0] != "" {
		count, err = strconv.Atoi(diceParts[0])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid dice string %q", expr)
		}
	}
	sides, err = strconv.Atoi(diceParts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid dice string %q", expr)
	}
	if count < 1 || sides < 1 {
		return 0, 0, 0, fmt.Errorf("invalid dice string %q", expr)
	}

	return count, sides, bonus, nil
}

// RollString rolls a dice expression with the given roller
func RollString(r Roller, expr string) (*RollResult, error) {
	count, sides, bonus, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return r.Roll(count, sides, bonus)
}

// Roll2d10 draws the two independent d10s every check uses
func Roll2d10(r Roller) ([2]int, error) {
	result, err := r.Roll(2, D10, 0)
	if err != nil {
		return [2]int{}, err
	}
	if len(result.Rolls) != 2 {
		return [2]int{}, fmt.Errorf("expected 2 dice, got %d", len(result.Rolls))
	}
	return [2]int{result.Rolls[0], result.Rolls[1]}, nil
}
