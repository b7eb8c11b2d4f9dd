package engine

import (
	"github.com/pefman/w40k-challenge/internal/ai"
	"github.com/pefman/w40k-challenge/internal/game"
	"github.com/pefman/w40k-challenge/internal/models"
)

// resolveGlory scores the round and either ends the challenge or opens
// the next face-off. in is the player's validated glory choice.
func (e *Engine) resolveGlory(s models.CombatState, in Input) models.CombatState {
	bothAlive := !s.Player.IsCasualty && !s.AI.IsCasualty

	withdrawn := models.SideNone
	switch {
	case in.Withdraw:
		withdrawn = models.SidePlayer
	case bothAlive && ai.WantsWithdraw(s.AI) && !game.GloryEffects(s.Player.SelectedGambit).BlocksOpponentExit:
		withdrawn = models.SideAI
	}
	if withdrawn != models.SideNone {
		s = s.Logf(models.SeverityWarning, "%s withdraws from the challenge", e.char(withdrawn).Name)
		s = s.Logf(models.SeverityInfo, "Challenge ended by withdrawal")
		return e.end(s)
	}

	winner, crp := e.roundResult(s)
	if winner != models.SideNone {
		crp += s.Side(winner).TauntCount
		if winner == models.SidePlayer {
			s.PlayerCRP += crp
		} else {
			s.AICRP += crp
		}
		s = s.Logf(severityFor(winner), "%s wins the round and gains %d CRP", e.char(winner).Name, crp)
	} else {
		s = s.Logf(models.SeverityWarning, "The round is drawn")
	}

	if !bothAlive || !in.Continue {
		return e.end(s)
	}
	return e.nextRound(s, winner)
}

// roundResult decides the round winner and the CRP it earns before taunts.
func (e *Engine) roundResult(s models.CombatState) (models.Side, int) {
	p, a := s.Player, s.AI
	switch {
	case p.IsCasualty && a.IsCasualty:
		return models.SideNone, 0
	case a.IsCasualty:
		return models.SidePlayer, slainValue(e.ai, a)
	case p.IsCasualty:
		return models.SideAI, slainValue(e.player, p)
	case p.WoundsInflicted > a.WoundsInflicted:
		return models.SidePlayer, p.WoundsInflicted
	case a.WoundsInflicted > p.WoundsInflicted:
		return models.SideAI, a.WoundsInflicted
	default:
		return models.SideNone, 0
	}
}

// slainValue is the CRP for removing a model: its base wounds, plus one
// for a Paragon or Command model.
func slainValue(c models.Character, st models.CombatantState) int {
	v := st.BaseWounds
	if c.HasSubType(models.SubTypeParagon) || c.HasSubType(models.SubTypeCommand) {
		v++
	}
	return v
}

func severityFor(side models.Side) models.Severity {
	if side == models.SidePlayer {
		return models.SeveritySuccess
	}
	return models.SeverityDanger
}

func (e *Engine) end(s models.CombatState) models.CombatState {
	s.Phase = models.PhaseEnded
	switch w := s.Winner(); w {
	case models.SideNone:
		return s.Logf(models.SeverityWarning, "Challenge drawn, %d CRP each", s.PlayerCRP)
	default:
		return s.Logf(severityFor(w), "Challenge ended: %s wins (%d vs %d CRP)", e.char(w).Name, max(s.PlayerCRP, s.AICRP), min(s.PlayerCRP, s.AICRP))
	}
}

// nextRound clears the per-round fields and carries advantage, Test the
// Foe and locked gambits forward. Howl of the Death Wolf locks in here,
// after a round in which it drew blood.
func (e *Engine) nextRound(s models.CombatState, winner models.Side) models.CombatState {
	if winner != models.SideNone {
		s.Advantage = winner
	}
	s.TestTheFoe = models.SideNone
	for _, side := range sides {
		if game.GloryEffects(s.Side(side).SelectedGambit).CarriesTestTheFoe {
			s.TestTheFoe = side
			break
		}
	}
	for _, side := range sides {
		st := s.Side(side)
		if st.Locked != "" && st.WoundsInflicted == 0 {
			s = s.Logf(models.SeverityInfo, "%s inflicted no wounds: %s ends", e.char(side).Name, st.Locked)
			st.Locked = ""
		}
		if st.SelectedGambit == models.HowlOfTheDeathWolf && st.Locked == "" && st.WoundsInflicted > 0 {
			st.Locked = models.HowlOfTheDeathWolf
			s = s.Logf(models.SeverityInfo, "%s is locked into %s", e.char(side).Name, st.Locked)
		}
		st.SelectedGambit = ""
		st.FeintBan = ""
		st.WoundsInflicted = 0
		st.Prediction = models.PredictNone
		st.Sacrifice = 0
		st.Decapitation = models.DecapNone
		st.RoundBoon = models.Boon{}
		if side == models.SideAI {
			st.SelectedWeapon = nil
		}
		s = s.WithSide(side, st)
	}
	s.Round++
	s.Phase = models.PhaseFaceOff
	return s.Logf(models.SeverityInfo, "Round %d begins", s.Round)
}
