package game

import "github.com/pefman/w40k-challenge/internal/models"

// CombatInitiative is I after the profile's initiative modifier, floored at 0.
func CombatInitiative(baseI int, p models.WeaponProfile) int {
	return max(0, p.Initiative.Apply(baseI))
}

// ProfileAttacks is A after the profile's attacks modifier, floored at 1.
func ProfileAttacks(c models.Character, p models.WeaponProfile) int {
	return max(1, p.Attacks.Apply(c.Stats.A))
}

// ProfileStrength is S after the profile's strength modifier, floored at 1.
func ProfileStrength(c models.Character, p models.WeaponProfile) int {
	return max(1, p.Strength.Apply(c.Stats.S))
}

// DuellistsEdge sums the rule over the model and its weapon profile.
func DuellistsEdge(c models.Character, p models.WeaponProfile) int {
	return models.SumRule(c.Rules, models.RuleDuellistsEdge) + models.SumRule(p.Rules, models.RuleDuellistsEdge)
}

// CritThreshold merges critical-hit sources; 0 means none, otherwise the lowest wins.
func CritThreshold(sources ...int) int {
	best := 0
	for _, t := range sources {
		if t > 0 && (best == 0 || t < best) {
			best = t
		}
	}
	return best
}

// ImproveAP moves AP n steps towards 2. AP 0 (none) is left alone.
func ImproveAP(ap, n int) int {
	if ap == 0 || n <= 0 {
		return ap
	}
	return max(2, ap-n)
}
