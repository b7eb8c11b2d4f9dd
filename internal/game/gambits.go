package game

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pefman/w40k-challenge/internal/models"
)

// FocusMod is what a selected gambit does to its owner's focus roll.
// The zero value changes nothing.
type FocusMod struct {
	ExtraDice              int
	DiscardLowest          bool
	DiscardHighest         bool
	SuppressCI             bool
	ReplaceRollWith        int // kept dice become [v] when their sum is below v
	FlatBonus              int
	SuppressWoundPenalties bool
	ReplaceWithWP          bool
	SetOpponentCIToOne     bool
	UseOpponentInitiative  bool
	SkipRoll               bool // decapitation strike resolves its own attack instead
	Prediction             bool // path of the warrior calls the first die
}

type FocusContext struct {
	Round    int
	Self     models.Character
	Opponent models.Character
	State    models.CombatantState
}

// FocusModifiers maps a gambit to its focus bundle. Unknown ids map to the zero bundle.
func FocusModifiers(id models.GambitID, ctx FocusContext) FocusMod {
	switch id {
	case models.SeizeTheInitiative:
		return FocusMod{ExtraDice: 1, DiscardLowest: true}
	case models.FinishingBlow, models.Grandstand, models.ExecutionersTax:
		return FocusMod{ExtraDice: 1, DiscardHighest: true}
	case models.AbyssalStrike:
		return FocusMod{UseOpponentInitiative: true}
	case models.BrutalButKunnin:
		return FocusMod{SuppressCI: true, ReplaceRollWith: ctx.Self.Stats.LD}
	case models.KunninButBrutal:
		return FocusMod{ReplaceRollWith: ctx.Self.Stats.LD}
	case models.BiologicalOverload:
		return FocusMod{FlatBonus: 3}
	case models.TheLionsCholer:
		return FocusMod{FlatBonus: 2, SuppressWoundPenalties: true}
	case models.ThePathOfTheWarrior:
		return FocusMod{Prediction: true}
	case models.HowlOfTheDeathWolf:
		// only in the rounds after it was first chosen
		if ctx.State.Locked == models.HowlOfTheDeathWolf {
			return FocusMod{FlatBonus: 5}
		}
		return FocusMod{}
	case models.AWallUnyielding:
		return FocusMod{SuppressCI: true}
	case models.ThrallOfTheRedThirst, models.TheShadowedLord:
		return FocusMod{SuppressWoundPenalties: true}
	case models.AngelicDescent:
		return FocusMod{FlatBonus: models.SumRule(ctx.Opponent.Rules, models.RuleBulky)}
	case models.CalculatingSwordsman:
		return FocusMod{FlatBonus: min(ctx.Round, 4)}
	case models.DutyIsSacrifice:
		return FocusMod{FlatBonus: ctx.State.Sacrifice}
	case models.DecapitationStrike:
		return FocusMod{SkipRoll: true}
	case models.ParagonOfExcellence:
		return FocusMod{FlatBonus: 2}
	case models.PropheticDuellist:
		return FocusMod{ReplaceWithWP: true}
	case models.IAmAlpharius:
		return FocusMod{SetOpponentCIToOne: true}
	default:
		return FocusMod{}
	}
}

// StrikeMod is what a selected gambit does to its owner's attack sequence.
type StrikeMod struct {
	WSDelta         int
	NoAttacks       bool // attacks overridden to zero
	AttacksDelta    int
	StrengthDelta   int
	DamageDelta     int
	DamageSetToOne  bool
	SingleAttackCap bool
	APImprovement   int
	CritThreshold   int
	HitTN           int
	Phage           bool
	DutyWounds      int
	SelfWoundOnOnes bool
	TauntAndBait    bool
}

// DefenceMod is what a selected gambit does while its owner is attacked.
type DefenceMod struct {
	ToughnessOverride     int
	DamageReduction       int
	RerollOneSave         bool
	GuardUp               bool
	OpponentStrengthDelta int
	SpitefulDemise        bool
	StrikesWhenSlain      bool
}

type StrikeContext struct {
	Round         int
	Self          models.Character
	Opponent      models.Character
	State         models.CombatantState
	OpponentState models.CombatantState
	Profile       models.WeaponProfile
	WeaponName    string
	HasAdvantage  bool
	D3            int // only drawn for flurry of blows
}

// StrikeModifiers maps a gambit to its attacking bundle.
func StrikeModifiers(id models.GambitID, ctx StrikeContext) StrikeMod {
	switch id {
	case models.FlurryOfBlows:
		return StrikeMod{AttacksDelta: ctx.D3, DamageSetToOne: true}
	case models.GuardUp:
		return StrikeMod{WSDelta: 1, SingleAttackCap: true}
	case models.Withdraw:
		return StrikeMod{SingleAttackCap: true}
	case models.TauntAndBait:
		return StrikeMod{TauntAndBait: true}
	case models.FinishingBlow:
		return StrikeMod{StrengthDelta: 1, DamageDelta: 1}
	case models.AbyssalStrike:
		if ctx.HasAdvantage {
			return StrikeMod{APImprovement: 1}
		}
	case models.BiologicalOverload:
		return StrikeMod{AttacksDelta: 3, SelfWoundOnOnes: true}
	case models.MirrorForm:
		return StrikeMod{HitTN: 4}
	case models.SwordOfTheOrder:
		if !strings.Contains(strings.ToLower(ctx.WeaponName), "sword") {
			return StrikeMod{}
		}
		crit := 6
		if t, ok := ctx.Profile.RuleValue(models.RuleCriticalHit); ok {
			crit = max(2, t-1)
		}
		return StrikeMod{AttacksDelta: -1, CritThreshold: crit}
	case models.DeathsChampion:
		return StrikeMod{CritThreshold: 5}
	case models.ExecutionersTax:
		return StrikeMod{CritThreshold: 6}
	case models.ThrallOfTheRedThirst:
		return StrikeMod{DamageDelta: 1}
	case models.DutyIsSacrifice:
		return StrikeMod{DutyWounds: ctx.State.Sacrifice}
	case models.DecapitationStrike:
		switch ctx.State.Decapitation {
		case models.DecapSuccess:
			return StrikeMod{AttacksDelta: -1}
		case models.DecapFailed:
			return StrikeMod{NoAttacks: true}
		}
	case models.TheBreaker:
		return StrikeMod{NoAttacks: true}
	case models.MercilessStrike:
		return StrikeMod{Phage: true}
	}
	return StrikeMod{}
}

// DefenceModifiers maps a gambit to its defending bundle. ctx.Self is the defender.
func DefenceModifiers(id models.GambitID, ctx StrikeContext) DefenceMod {
	switch id {
	case models.GuardUp:
		return DefenceMod{GuardUp: true}
	case models.EveryStrikeForeseen:
		return DefenceMod{RerollOneSave: true}
	case models.MirrorForm:
		return DefenceMod{StrikesWhenSlain: true}
	case models.DeathByAThousandCuts:
		if ctx.OpponentState.CurrentWounds < ctx.OpponentState.BaseWounds {
			return DefenceMod{OpponentStrengthDelta: -1}
		}
	case models.AWallUnyielding:
		return DefenceMod{DamageReduction: 1}
	case models.TemperedByWar:
		return DefenceMod{ToughnessOverride: 8}
	case models.SteadfastResilience:
		return DefenceMod{ToughnessOverride: ctx.Opponent.Stats.WS}
	case models.SpitefulDemise:
		return DefenceMod{SpitefulDemise: true}
	}
	return DefenceMod{}
}

// GloryFlags are the glory-phase consequences of a selected gambit.
type GloryFlags struct {
	MayWithdraw        bool
	TauntBonus         bool
	CarriesTestTheFoe  bool
	BlocksOpponentExit bool
}

func GloryEffects(id models.GambitID) GloryFlags {
	switch id {
	case models.Withdraw:
		return GloryFlags{MayWithdraw: true}
	case models.TauntAndBait:
		return GloryFlags{TauntBonus: true}
	case models.TestTheFoe:
		return GloryFlags{CarriesTestTheFoe: true}
	case models.NoPreyEscapes:
		return GloryFlags{BlocksOpponentExit: true}
	default:
		return GloryFlags{}
	}
}

var (
	ErrLocked         = errors.New("another gambit is locked in")
	ErrMandatory      = errors.New("a mandatory gambit must be selected")
	ErrBanned         = errors.New("gambit banned by feint and riposte")
	ErrFirstMoverOnly = errors.New("gambit is for the first mover only")
	ErrSpent          = errors.New("gambit already used this challenge")
	ErrNotEligible    = errors.New("gambit not eligible")
)

// opening gambits may only be chosen in the first round.
var opening = []models.GambitID{
	models.AngelicDescent, models.ParagonOfExcellence, models.BiteOfTheBetrayed,
	models.TheBreaker, models.MercilessStrike, models.BeseechTheGods, models.IAmAlpharius,
}

var betrayers = []string{"emperors-children", "world-eaters", "sons-of-horus", "death-guard"}

type LegalContext struct {
	Round      int
	Self       models.Character
	Opponent   models.Character
	State      models.CombatantState
	FirstMover bool
}

// CheckEligible reports why g cannot be selected, or nil.
func CheckEligible(g models.Gambit, ctx LegalContext) error {
	st := ctx.State
	switch {
	case st.Locked != "" && g.ID != st.Locked:
		return fmt.Errorf("%w: %s", ErrLocked, st.Locked)
	case ctx.Self.Mandatory != "" && g.ID != ctx.Self.Mandatory:
		return fmt.Errorf("%w: %s", ErrMandatory, ctx.Self.Mandatory)
	case st.FeintBan == g.ID && g.ID != ctx.Self.Mandatory:
		return fmt.Errorf("%w: %s", ErrBanned, g.ID)
	case g.FirstMoverOnly && !ctx.FirstMover:
		return fmt.Errorf("%w: %s", ErrFirstMoverOnly, g.ID)
	case g.OncePerChallenge && st.HasSpent(g.ID) && st.Locked != g.ID:
		return fmt.Errorf("%w: %s", ErrSpent, g.ID)
	case (g.ID == models.BrutalButKunnin || g.ID == models.KunninButBrutal) && st.UsedBrutalButKunnin:
		return fmt.Errorf("%w: %s", ErrSpent, g.ID)
	case slices.Contains(opening, g.ID) && ctx.Round != 1:
		return fmt.Errorf("%w: %s is only available in the first round", ErrNotEligible, g.ID)
	}
	switch g.ID {
	case models.TheLionsCholer:
		if st.CurrentWounds > 2 {
			return fmt.Errorf("%w: %s needs 2 or fewer wounds remaining", ErrNotEligible, g.ID)
		}
	case models.TheShadowedLord:
		if !ctx.Self.HasWeaponNamed("talonis") {
			return fmt.Errorf("%w: %s needs the Talonis", ErrNotEligible, g.ID)
		}
	case models.BiteOfTheBetrayed:
		if !slices.Contains(betrayers, ctx.Opponent.Faction) {
			return fmt.Errorf("%w: %s against %s", ErrNotEligible, g.ID, ctx.Opponent.Faction)
		}
	}
	return nil
}
