package models

import (
	"fmt"
	"slices"
)

type Phase string

const (
	PhaseSetup        Phase = "setup"
	PhaseFaceOff      Phase = "faceOff"
	PhaseFocus        Phase = "focus"
	PhaseStrikePlayer Phase = "strike-player"
	PhaseStrikeAI     Phase = "strike-ai"
	PhaseGlory        Phase = "glory"
	PhaseEnded        Phase = "ended"
)

type Side string

const (
	SideNone   Side = ""
	SidePlayer Side = "player"
	SideAI     Side = "ai"
)

func (s Side) Other() Side {
	switch s {
	case SidePlayer:
		return SideAI
	case SideAI:
		return SidePlayer
	default:
		return SideNone
	}
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

type LogEntry struct {
	Round    int      `json:"round"`
	Phase    Phase    `json:"phase"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// WeaponRef points at a weapon profile of the combatant's character.
type WeaponRef struct {
	Weapon  int `json:"weapon"`
	Profile int `json:"profile"`
}

// Prediction is the Path of the Warrior call on the first focus die.
type Prediction string

const (
	PredictNone Prediction = ""
	PredictLow  Prediction = "low"
	PredictHigh Prediction = "high"
)

// Boon is a temporary characteristic bonus won by a gambit check.
type Boon struct {
	WS         int `json:"ws,omitempty"`
	A          int `json:"a,omitempty"`
	S          int `json:"s,omitempty"`
	T          int `json:"t,omitempty"`
	FeelNoPain int `json:"fnp,omitempty"`
}

func (b Boon) Plus(o Boon) Boon {
	fnp := b.FeelNoPain
	if o.FeelNoPain != 0 && (fnp == 0 || o.FeelNoPain < fnp) {
		fnp = o.FeelNoPain
	}
	return Boon{WS: b.WS + o.WS, A: b.A + o.A, S: b.S + o.S, T: b.T + o.T, FeelNoPain: fnp}
}

type DecapOutcome string

const (
	DecapNone    DecapOutcome = ""
	DecapSuccess DecapOutcome = "success"
	DecapFailed  DecapOutcome = "failed"
)

// CombatantState is one side of a challenge. Slices are never shared
// between states: writers go through the helper methods, which copy.
type CombatantState struct {
	CharacterID     string     `json:"character_id"`
	CurrentWounds   int        `json:"current_wounds"`
	BaseWounds      int        `json:"base_wounds"`
	WoundsInflicted int        `json:"wounds_inflicted"`
	IsCasualty      bool       `json:"is_casualty"`
	SelectedGambit  GambitID   `json:"selected_gambit,omitempty"`
	SelectedWeapon  *WeaponRef `json:"selected_weapon,omitempty"`
	GuardUpBonus    int        `json:"guard_up_bonus"`
	TauntCount      int        `json:"taunt_count"`
	// UsedBrutalButKunnin covers both ork LD gambits.
	UsedBrutalButKunnin bool         `json:"used_brutal_but_kunnin"`
	FeintBan            GambitID     `json:"feint_ban,omitempty"`
	Spent               []GambitID   `json:"spent,omitempty"`
	Locked              GambitID     `json:"locked,omitempty"`
	Prediction          Prediction   `json:"prediction,omitempty"`
	Sacrifice           int          `json:"sacrifice,omitempty"`
	Decapitation        DecapOutcome `json:"decapitation,omitempty"`
	RoundBoon           Boon         `json:"round_boon"`
	ChallengeBoon       Boon         `json:"challenge_boon"`
}

func (c CombatantState) HasSpent(g GambitID) bool { return slices.Contains(c.Spent, g) }

// Spend returns a copy with g marked as used for the rest of the challenge.
func (c CombatantState) Spend(g GambitID) CombatantState {
	if c.HasSpent(g) {
		return c
	}
	c.Spent = append(slices.Clip(c.Spent), g)
	if g == BrutalButKunnin || g == KunninButBrutal {
		c.UsedBrutalButKunnin = true
	}
	return c
}

// TakeWounds removes n wounds, saturating at zero.
func (c CombatantState) TakeWounds(n int) CombatantState {
	c.CurrentWounds = max(0, c.CurrentWounds-n)
	c.IsCasualty = c.CurrentWounds == 0
	return c
}

func (c CombatantState) Boon() Boon { return c.ChallengeBoon.Plus(c.RoundBoon) }

// CombatState is the whole challenge. It is passed and returned by value.
type CombatState struct {
	Round      int            `json:"round"`
	Phase      Phase          `json:"phase"`
	Player     CombatantState `json:"player"`
	AI         CombatantState `json:"ai"`
	Advantage  Side           `json:"challenge_advantage"`
	TestTheFoe Side           `json:"test_the_foe_advantage"`
	PlayerCRP  int            `json:"player_crp"`
	AICRP      int            `json:"ai_crp"`
	Log        []LogEntry     `json:"log"`
}

func (s CombatState) Side(side Side) CombatantState {
	if side == SideAI {
		return s.AI
	}
	return s.Player
}

// WithSide returns a copy with one side replaced.
func (s CombatState) WithSide(side Side, c CombatantState) CombatState {
	if side == SideAI {
		s.AI = c
	} else {
		s.Player = c
	}
	return s
}

// Logf appends an entry for the current round and phase.
func (s CombatState) Logf(sev Severity, format string, args ...any) CombatState {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.Log = append(slices.Clip(s.Log), LogEntry{Round: s.Round, Phase: s.Phase, Message: msg, Severity: sev})
	return s
}

// Winner is the side with strictly more CRP, or SideNone for a draw.
func (s CombatState) Winner() Side {
	switch {
	case s.PlayerCRP > s.AICRP:
		return SidePlayer
	case s.AICRP > s.PlayerCRP:
		return SideAI
	default:
		return SideNone
	}
}
