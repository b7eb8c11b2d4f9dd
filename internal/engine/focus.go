package engine

import (
	"slices"

	"github.com/pefman/w40k-challenge/internal/ai"
	"github.com/pefman/w40k-challenge/internal/game"
	"github.com/pefman/w40k-challenge/internal/models"
)

// maxFocusTies bounds re-rolls when neither pool can vary (two replaced
// totals of the same value). The advantage then stays where it was.
const maxFocusTies = 100

var sides = []models.Side{models.SidePlayer, models.SideAI}

// FocusRoll records one side's focus total.
type FocusRoll struct {
	Dice      []int
	Kept      []int
	CI        int
	Total     int
	Predicted bool
}

// resolveFocus runs the focus step: Witchblood checks, decapitation
// strikes, then the focus roll unless the advantage is already decided.
func (e *Engine) resolveFocus(s models.CombatState) models.CombatState {
	if s.AI.SelectedWeapon == nil {
		ref := ai.ChooseWeapon(e.ai)
		s.AI.SelectedWeapon = &ref
		p, _ := e.ai.Profile(ref)
		s = s.Logf(models.SeverityInfo, "%s fights with %s", e.ai.Name, p.Name)
	}

	for _, side := range sides {
		if s.Side(side).SelectedGambit == models.Witchblood {
			s = e.witchblood(s, side)
		}
	}
	var decap []models.Side
	for _, side := range sides {
		if s.Side(side).SelectedGambit == models.DecapitationStrike {
			s = e.decapitation(s, side)
			decap = append(decap, side)
		}
	}

	winner := models.SideNone
	switch {
	case s.TestTheFoe != models.SideNone:
		winner = s.TestTheFoe
		s = s.Logf(models.SeverityInfo, "%s tested the foe and takes the advantage", e.char(winner).Name)
	case s.Player.IsCasualty != s.AI.IsCasualty:
		winner = models.SidePlayer
		if s.Player.IsCasualty {
			winner = models.SideAI
		}
	case s.Player.IsCasualty && s.AI.IsCasualty:
		winner = mover(s)
	case len(decap) == 1:
		winner = decap[0]
		if s.Side(winner).Decapitation != models.DecapSuccess {
			winner = winner.Other()
		}
	case len(decap) == 2 && s.Player.Decapitation != s.AI.Decapitation:
		winner = models.SidePlayer
		if s.AI.Decapitation == models.DecapSuccess {
			winner = models.SideAI
		}
	}
	if winner == models.SideNone {
		s, winner = e.focusRoll(s)
	}

	s.Advantage = winner
	s.TestTheFoe = models.SideNone
	s.Player.GuardUpBonus = 0
	s.AI.GuardUpBonus = 0
	s = s.Logf(models.SeveritySuccess, "%s wins the focus roll", e.char(winner).Name)
	if winner == models.SidePlayer {
		s.Phase = models.PhaseStrikePlayer
	} else {
		s.Phase = models.PhaseStrikeAI
	}
	return s
}

func (e *Engine) focusRoll(s models.CombatState) (models.CombatState, models.Side) {
	for ties := 0; ties < maxFocusTies; ties++ {
		p := e.focusTotal(s, models.SidePlayer)
		a := e.focusTotal(s, models.SideAI)
		s = s.Logf(models.SeverityInfo, "Focus: %s rolls %v (kept %v) + CI %d = %d; %s rolls %v (kept %v) + CI %d = %d",
			e.player.Name, p.Dice, p.Kept, p.CI, p.Total, e.ai.Name, a.Dice, a.Kept, a.CI, a.Total)
		switch {
		case p.Total > a.Total:
			return s, models.SidePlayer
		case a.Total > p.Total:
			return s, models.SideAI
		}
		s = s.Logf(models.SeverityWarning, "Focus tied at %d, re-rolling", p.Total)
	}
	winner := mover(s)
	s = s.Logf(models.SeverityWarning, "Focus totals cannot differ; %s keeps the initiative", e.char(winner).Name)
	return s, winner
}

// focusTotal rolls one side's pool and applies every modifier in order.
func (e *Engine) focusTotal(s models.CombatState, side models.Side) FocusRoll {
	self, opp := e.char(side), e.char(side.Other())
	st, ost := s.Side(side), s.Side(side.Other())
	mod := game.FocusModifiers(st.SelectedGambit, game.FocusContext{Round: s.Round, Self: self, Opponent: opp, State: st})
	if mod.SkipRoll {
		mod = game.FocusMod{}
	}
	omod := game.FocusModifiers(ost.SelectedGambit, game.FocusContext{Round: s.Round, Self: opp, Opponent: self, State: ost})

	prof := e.profile(s, side)
	baseI := self.Stats.I
	if mod.UseOpponentInitiative {
		baseI = opp.Stats.I
	}
	r := FocusRoll{CI: game.CombatInitiative(baseI, prof)}
	if omod.SetOpponentCIToOne {
		r.CI = 1
	}

	r.Dice = e.dice.RollNd6(1 + mod.ExtraDice)
	if mod.Prediction {
		first := r.Dice[0]
		r.Predicted = (st.Prediction == models.PredictLow && first <= 3) ||
			(st.Prediction == models.PredictHigh && first >= 4)
	}
	r.Kept = discard(r.Dice, mod.DiscardLowest, mod.DiscardHighest)
	sum := 0
	for _, d := range r.Kept {
		sum += d
	}
	if mod.ReplaceRollWith > 0 && sum < mod.ReplaceRollWith {
		r.Kept = []int{mod.ReplaceRollWith}
		sum = mod.ReplaceRollWith
	}

	total := sum
	if !mod.SuppressCI {
		total += r.CI
	}
	if self.HasSubType(models.SubTypeHeavy) && !r.Predicted {
		total--
	}
	if self.HasSubType(models.SubTypeLight) {
		total++
	}
	if !mod.SuppressWoundPenalties && !r.Predicted {
		total -= st.BaseWounds - st.CurrentWounds
	}
	total += game.DuellistsEdge(self, prof) + st.GuardUpBonus + mod.FlatBonus
	if mod.ReplaceWithWP && self.Stats.WP > total {
		total = self.Stats.WP
	}
	r.Total = total
	return r
}

// discard drops one lowest or one highest die. Only one rule applies.
func discard(dice []int, lowest, highest bool) []int {
	kept := slices.Clone(dice)
	if len(kept) < 2 {
		return kept
	}
	switch {
	case lowest:
		i := slices.Index(kept, slices.Min(kept))
		return slices.Delete(kept, i, i+1)
	case highest:
		i := slices.Index(kept, slices.Max(kept))
		return slices.Delete(kept, i, i+1)
	}
	return kept
}

func (e *Engine) profile(s models.CombatState, side models.Side) models.WeaponProfile {
	st := s.Side(side)
	if st.SelectedWeapon == nil {
		fail(s, "%s has no weapon selected", side)
	}
	p, ok := e.char(side).Profile(*st.SelectedWeapon)
	if !ok {
		fail(s, "%s weapon %d/%d is not a melee profile", side, st.SelectedWeapon.Weapon, st.SelectedWeapon.Profile)
	}
	return p
}

func (e *Engine) weaponName(s models.CombatState, side models.Side) string {
	return e.char(side).Weapons[s.Side(side).SelectedWeapon.Weapon].Name
}

// witchblood is the Willpower check at the start of focus.
func (e *Engine) witchblood(s models.CombatState, side models.Side) models.CombatState {
	c := e.char(side)
	total, ok := willpowerCheck(e.dice, c.Stats.WP)
	if ok {
		st := s.Side(side)
		st.RoundBoon = st.RoundBoon.Plus(models.Boon{A: 2, S: 2})
		s = s.WithSide(side, st)
		return s.Logf(models.SeveritySuccess, "Witchblood: %s passes willpower (%d vs %d): +2 A, +2 S", c.Name, total, c.Stats.WP)
	}
	s = s.Logf(models.SeverityDanger, "Witchblood: %s fails willpower (%d vs %d)", c.Name, total, c.Stats.WP)
	return e.selfWounds(s, side, 1, true)
}

// decapitation makes the single focus-step attack. Success needs both the
// hit and the wound; the wound is then saved and dealt as normal.
func (e *Engine) decapitation(s models.CombatState, side models.Side) models.CombatState {
	def := side.Other()
	ac, dc := e.char(side), e.char(def)
	st, dst := s.Side(side), s.Side(def)
	prof := e.profile(s, side)
	boon, dboon := st.Boon(), dst.Boon()

	crit, _ := prof.RuleValue(models.RuleCriticalHit)
	hitTN := game.HitTN(ac.Stats.WS+boon.WS, dc.Stats.WS+dboon.WS)
	hit := e.dice.RollD6()
	outcome := models.DecapFailed
	var wounds []wound
	if hitSucceeds(hit, hitTN, crit) {
		str := max(1, game.ProfileStrength(ac, prof)+boon.S)
		w := e.dice.RollD6()
		if tags, ok := woundSucceeds(w, game.WoundTN(str, dc.Stats.T+dboon.T), prof); ok {
			outcome = models.DecapSuccess
			wounds = append(wounds, tags)
		}
	}
	st.Decapitation = outcome
	s = s.WithSide(side, st)
	if outcome == models.DecapFailed {
		return s.Logf(models.SeverityWarning, "Decapitation strike: %s fails to land the blow", ac.Name)
	}
	s = s.Logf(models.SeveritySuccess, "Decapitation strike: %s lands the blow", ac.Name)
	s, dealt := e.allocate(s, def, wounds, attackLine{AP: prof.AP, Damage: prof.Damage},
		game.DefenceModifiers(dst.SelectedGambit, e.strikeContext(s, def)))
	return e.credit(s, side, dealt)
}
