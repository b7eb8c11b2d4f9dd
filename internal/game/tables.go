package game

// Impossible is the target number of a roll that cannot succeed on a d6.
const Impossible = 7

// hitTable[attackerWS-1][defenderWS-1]
var hitTable = [10][10]int{
	{4, 6, 6, 6, 6, 6, 6, 6, 6, 6},
	{2, 4, 5, 6, 6, 6, 6, 6, 6, 6},
	{2, 3, 4, 5, 5, 6, 6, 6, 6, 6},
	{2, 2, 3, 4, 5, 5, 5, 6, 6, 6},
	{2, 2, 3, 3, 4, 5, 5, 5, 6, 6},
	{2, 2, 2, 3, 3, 4, 5, 5, 5, 6},
	{2, 2, 2, 3, 3, 3, 4, 5, 5, 5},
	{2, 2, 2, 2, 3, 3, 3, 4, 5, 5},
	{2, 2, 2, 2, 3, 3, 3, 3, 4, 5},
	{2, 2, 2, 2, 2, 3, 3, 3, 3, 4},
}

// woundTable[S-1][T-1]; 7 means the wound cannot be caused.
var woundTable = [10][10]int{
	{4, 5, 6, 6, 7, 7, 7, 7, 7, 7},
	{3, 4, 5, 6, 6, 7, 7, 7, 7, 7},
	{2, 3, 4, 5, 6, 6, 7, 7, 7, 7},
	{2, 2, 3, 4, 5, 6, 6, 7, 7, 7},
	{2, 2, 2, 3, 4, 5, 6, 6, 7, 7},
	{2, 2, 2, 2, 3, 4, 5, 6, 6, 7},
	{2, 2, 2, 2, 2, 3, 4, 5, 6, 6},
	{2, 2, 2, 2, 2, 2, 3, 4, 5, 6},
	{2, 2, 2, 2, 2, 2, 2, 3, 4, 5},
	{2, 2, 2, 2, 2, 2, 2, 2, 3, 4},
}

func clampStat(v int) int { return min(max(v, 1), 10) - 1 }

// HitTN returns the roll needed to hit in melee.
func HitTN(attackerWS, defenderWS int) int {
	return hitTable[clampStat(attackerWS)][clampStat(defenderWS)]
}

// WoundTN returns the roll needed to wound, or Impossible.
func WoundTN(s, t int) int {
	return woundTable[clampStat(s)][clampStat(t)]
}

// EffectiveSave picks the best save left after AP. armour and inv are
// target numbers (inv 0 = none); ap 0 = no penetration. The armour save is
// lost when ap <= armour. ok is false when no save may be taken.
func EffectiveSave(armour, inv, ap int) (tn int, ok bool) {
	tn = Impossible
	if armour >= 2 && armour <= 6 && (ap == 0 || ap > armour) {
		tn = armour
	}
	if inv >= 2 && inv <= 6 && inv < tn {
		tn = inv
	}
	if tn == Impossible {
		return 0, false
	}
	return tn, true
}

// Passes reports whether roll meets tn.
func Passes(roll, tn int) bool {
	return roll >= tn
}
