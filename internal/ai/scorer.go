package ai

import (
	"github.com/pefman/w40k-challenge/internal/game"
	"github.com/pefman/w40k-challenge/internal/models"
)

// Noise is the scorer's only source of randomness. *rand.Rand satisfies it.
type Noise interface {
	Float64() float64
}

// Situation is everything a side knows when it picks its gambit.
type Situation struct {
	Round         int
	Side          models.Side
	Self          models.Character
	Opponent      models.Character
	State         models.CombatantState
	OpponentState models.CombatantState
	Advantage     models.Side
	FirstMover    bool
	Legal         []models.Gambit
	// OpponentLegal is filled for the first mover so a feint can ban the
	// opponent's best option.
	OpponentLegal []models.Gambit
}

// Decision is a complete face-off choice.
type Decision struct {
	Gambit     models.GambitID
	Ban        models.GambitID
	Prediction models.Prediction
	Sacrifice  int
}

// Scorer is the heuristic opponent. The zero value scores without noise.
type Scorer struct {
	noise Noise
}

func NewScorer(n Noise) *Scorer { return &Scorer{noise: n} }

// Score rates g for the side described by sit. Higher is better.
func Score(g models.GambitID, sit Situation) float64 {
	self, opp := sit.Self.Stats, sit.Opponent.Stats
	pct := float64(sit.State.CurrentWounds) / float64(max(sit.State.BaseWounds, 1))
	oppHurt := sit.OpponentState.CurrentWounds < sit.OpponentState.BaseWounds
	round := sit.Round
	var s float64

	switch g {
	case models.SeizeTheInitiative:
		if self.I < opp.I {
			s += 3
		} else if self.I == opp.I {
			s++
		}
	case models.FlurryOfBlows:
		if opp.W >= 4 {
			s += 2
		}
		if opp.T >= 6 {
			s -= 2
		}
		if opp.W <= 2 {
			s--
		}
	case models.TestTheFoe:
		switch round {
		case 1:
			s += 3
		case 2:
			s++
		}
		if sit.Advantage == sit.Side {
			s -= 2
		}
	case models.GuardUp:
		if pct < 0.6 {
			s += 2
		}
		if opp.WS >= self.WS {
			s++
		}
	case models.TauntAndBait:
		s++
		if self.WS <= opp.WS {
			s--
		}
	case models.Grandstand:
	case models.FeintAndRiposte:
		if round <= 2 {
			s += 2
		} else {
			s++
		}
	case models.Withdraw:
		if pct <= 0.25 && !sit.OpponentState.IsCasualty {
			s += 5
		} else if pct <= 0.5 {
			s += 2
		}
	case models.FinishingBlow:
		if self.S >= 6 {
			s += 2
		}
		if self.I < opp.I {
			s -= 2
		}

	case models.EveryStrikeForeseen:
		if round <= 2 {
			s += 4
		} else {
			s += 2
		}
	case models.AbyssalStrike:
		if opp.I > self.I {
			s += 4
		} else if round <= 2 {
			s += 2
		}
	case models.BrutalButKunnin, models.KunninButBrutal:
		if sit.State.UsedBrutalButKunnin {
			return -99
		}
		if round <= 2 {
			s += 4
		} else {
			s += 2
		}

	case models.BiologicalOverload, models.MirrorForm:
		s += 5
	case models.SwordOfTheOrder:
		if sit.Self.HasWeaponNamed("sword") {
			s += 2
		}
	case models.TheLionsCholer, models.TheShadowedLord, models.ThrallOfTheRedThirst:
		s += 1 + 3*(1-pct)
	case models.ThePathOfTheWarrior:
		s += 2
	case models.DeathByAThousandCuts:
		if oppHurt {
			s += 3
		}
	case models.HowlOfTheDeathWolf:
		if round == 1 {
			s += 4
		}
	case models.AWallUnyielding, models.TemperedByWar, models.SteadfastResilience:
		s += 2
		if pct < 0.5 {
			s++
		}
	case models.DeathsChampion, models.ExecutionersTax:
		s += 2
	case models.AngelicDescent:
		s += 1 + float64(models.SumRule(sit.Opponent.Rules, models.RuleBulky))/2
	case models.CalculatingSwordsman:
		s += float64(min(round, 4))
	case models.DutyIsSacrifice:
		if pct > 0.5 {
			s += 2
		}
	case models.DecapitationStrike:
		if opp.T <= self.S {
			s += 3
		}
	case models.ParagonOfExcellence, models.IAmAlpharius, models.MercilessStrike:
		s += 3
	case models.BiteOfTheBetrayed, models.BeseechTheGods:
		s += 3
	case models.SpitefulDemise:
		if pct <= 0.5 {
			s += 3
		}
	case models.PropheticDuellist:
		if self.WP > self.I+3 {
			s += 3
		}
	case models.Witchblood:
		if self.WP >= 8 {
			s += 3
		}
	case models.ADeathLongForeseen:
		if self.WP >= 8 {
			s += 2
		}
	}
	return s
}

// Choose picks the best legal gambit with ±20% noise, falling back to
// Seize the Initiative when nothing is legal.
func (sc *Scorer) Choose(sit Situation) Decision {
	if len(sit.Legal) == 0 {
		return Decision{Gambit: models.SeizeTheInitiative}
	}
	best, bestScore := sit.Legal[0].ID, 0.0
	for i, g := range sit.Legal {
		v := Score(g.ID, sit)
		if sc != nil && sc.noise != nil {
			v *= 1 + 0.2*(2*sc.noise.Float64()-1)
		}
		if i == 0 || v > bestScore {
			best, bestScore = g.ID, v
		}
	}
	return Complete(best, sit)
}

// Complete fills in the side choices a gambit needs.
func Complete(g models.GambitID, sit Situation) Decision {
	d := Decision{Gambit: g}
	switch g {
	case models.FeintAndRiposte:
		d.Ban = Ban(sit)
	case models.ThePathOfTheWarrior:
		d.Prediction = models.PredictHigh
	case models.DutyIsSacrifice:
		// two wounds only when at least two stay on the model
		d.Sacrifice = 2
		if sit.State.CurrentWounds <= 3 {
			d.Sacrifice = 1
		}
	}
	return d
}

// Ban names the opponent's best-scoring legal gambit, skipping its mandatory one.
func Ban(sit Situation) models.GambitID {
	mirror := Situation{
		Round:         sit.Round,
		Side:          sit.Side.Other(),
		Self:          sit.Opponent,
		Opponent:      sit.Self,
		State:         sit.OpponentState,
		OpponentState: sit.State,
		Advantage:     sit.Advantage,
	}
	var ban models.GambitID
	best := 0.0
	for _, g := range sit.OpponentLegal {
		if g.ID == sit.Opponent.Mandatory {
			continue
		}
		if v := Score(g.ID, mirror); ban == "" || v > best {
			ban, best = g.ID, v
		}
	}
	return ban
}

// ChooseWeapon picks the melee profile with the highest S·A, breaking ties on CI.
func ChooseWeapon(c models.Character) models.WeaponRef {
	var best models.WeaponRef
	bestScore := -1.0
	for _, ref := range c.MeleeRefs() {
		p, _ := c.Profile(ref)
		v := float64(game.ProfileStrength(c, p)*game.ProfileAttacks(c, p)) +
			0.01*float64(game.CombatInitiative(c.Stats.I, p))
		if v > bestScore {
			best, bestScore = ref, v
		}
	}
	return best
}

// WantsWithdraw is the glory decision: withdraw when the gambit allows it
// and half or fewer wounds remain.
func WantsWithdraw(st models.CombatantState) bool {
	return game.GloryEffects(st.SelectedGambit).MayWithdraw &&
		!st.IsCasualty && 2*st.CurrentWounds <= st.BaseWounds
}
