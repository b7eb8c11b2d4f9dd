package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pefman/w40k-challenge/internal/catalog"
	"github.com/pefman/w40k-challenge/internal/models"
)

// duel sets both gambits and hands the player the advantage.
func duel(t *testing.T, player, opp models.Character, dice *Replay, pg, ag models.GambitID) (*Engine, models.CombatState) {
	t.Helper()
	e := New(catalog.MustDefault(), player, opp, dice, WithChooser(pick(ag)))
	s := armed(e.Start())
	s.Phase = models.PhaseStrikePlayer
	s.Advantage = models.SidePlayer
	s.Player.SelectedGambit = pg
	s.AI.SelectedGambit = ag
	return e, s
}

func TestResolveStrike_SpitefulDemise(t *testing.T) {
	tests := map[string]struct {
		inv      int
		dice     []int
		wounds   int
		inflicts int
	}{
		// hit 4, wound 4, unsavable save die, demise wounds and breaches on 6
		"no save": {dice: []int{4, 1, 4, 6, 6}, wounds: 1, inflicts: 2},
		// the breaching hit is saved on the 5+ invulnerable
		"invulnerable save": {inv: 5, dice: []int{4, 1, 4, 6, 6, 5}, wounds: 3},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			atk := fighter("atk", models.Stats{WS: 4, S: 4, T: 4, W: 3, A: 1, Sv: 7, Inv: tt.inv})
			def := fighter("def", models.Stats{WS: 4, S: 4, T: 4, W: 1, A: 1, Sv: 7})
			dice := NewReplay(tt.dice...)
			e, s := duel(t, atk, def, dice, models.SeizeTheInitiative, models.SpitefulDemise)

			s = e.resolveStrike(s)
			assert.True(t, s.AI.IsCasualty)
			assert.Equal(t, 1, s.Player.WoundsInflicted)
			assert.Equal(t, tt.wounds, s.Player.CurrentWounds)
			assert.Equal(t, tt.inflicts, s.AI.WoundsInflicted)
			assert.Zero(t, dice.Remaining())
		})
	}
}

func TestResolveStrike_DutyIsSacrificeSkipsFeelNoPain(t *testing.T) {
	atk := fighter("atk", models.Stats{WS: 4, S: 4, T: 4, W: 3, A: 1, Sv: 3})
	def := fighter("def", models.Stats{WS: 4, S: 4, T: 4, W: 3, A: 1, Sv: 3, Inv: 4}, models.Rule(models.RuleFeelNoPain, 2))

	// invulnerable 1 fails and 4 saves, no Feel No Pain die; then every attack misses
	dice := NewReplay(1, 4, 1, 1, 1)
	e, s := duel(t, atk, def, dice, models.SeizeTheInitiative, models.DutyIsSacrifice)
	s.AI.Sacrifice = 2

	s = e.resolveStrike(s)
	assert.Equal(t, 2, s.AI.CurrentWounds)
	assert.Zero(t, s.Player.WoundsInflicted)
	assert.Zero(t, s.AI.WoundsInflicted)
	assert.Zero(t, dice.Remaining())

	// no invulnerable save: the wounds land without a roll
	def.Stats.Inv = 0
	dice = NewReplay(1, 1, 1)
	e, s = duel(t, atk, def, dice, models.SeizeTheInitiative, models.DutyIsSacrifice)
	s.AI.Sacrifice = 2
	s = e.resolveStrike(s)
	assert.Equal(t, 1, s.AI.CurrentWounds)
	assert.Zero(t, dice.Remaining())
}

func TestResolveStrike_MercilessStrikeWearsToughnessDown(t *testing.T) {
	atk := fighter("atk", models.Stats{WS: 4, S: 4, T: 4, W: 3, A: 2, Sv: 3})
	def := fighter("def", models.Stats{WS: 4, S: 4, T: 4, W: 5, A: 1, Sv: 7})

	// three hits; wound rolls 4, 3, 2 pass only as T drops 4 -> 3 -> 2
	dice := NewReplay(4, 4, 4, 4, 3, 2, 6, 6, 6, 1)
	e, s := duel(t, atk, def, dice, models.MercilessStrike, models.SeizeTheInitiative)

	s = e.resolveStrike(s)
	assert.Equal(t, 3, s.Player.WoundsInflicted)
	assert.Equal(t, 2, s.AI.CurrentWounds)
	assert.Zero(t, dice.Remaining())
}

func TestResolveStrike_TauntAndBait(t *testing.T) {
	atk := fighter("atk", models.Stats{WS: 6, S: 4, T: 4, W: 3, A: 5, Sv: 3})
	def := fighter("def", models.Stats{WS: 4, S: 4, T: 4, W: 5, A: 3, Sv: 7})

	// WS drops to 4 and A to 3, plus one for the advantage: four dice at 4+
	dice := NewReplay(4, 4, 3, 1, 4, 4, 6, 6, 1, 1, 1)
	e, s := duel(t, atk, def, dice, models.TauntAndBait, models.SeizeTheInitiative)
	s.Player.TauntCount = 1

	s = e.resolveStrike(s)
	assert.Equal(t, 2, s.Player.WoundsInflicted)
	assert.Equal(t, 3, s.AI.CurrentWounds)
	assert.Zero(t, dice.Remaining())

	s = e.resolveGlory(s, Input{})
	assert.Equal(t, models.PhaseEnded, s.Phase)
	assert.Equal(t, 3, s.PlayerCRP, "two wounds plus one per taunt")
	assert.Zero(t, s.AICRP)
}

func TestGuardUp_MissesCarryIntoNextFocus(t *testing.T) {
	atk := fighter("atk", models.Stats{WS: 4, S: 4, T: 4, W: 3, I: 4, A: 2, Sv: 3})
	def := fighter("def", models.Stats{WS: 4, S: 4, T: 4, W: 3, I: 4, A: 2, Sv: 3})

	// two misses and a hit that fails to wound; guard up swings once and misses;
	// next round both focus dice are 3
	dice := NewReplay(1, 1, 4, 1, 1, 3, 3)
	e, s := duel(t, atk, def, dice, models.SeizeTheInitiative, models.GuardUp)

	s = e.resolveStrike(s)
	assert.Equal(t, 2, s.AI.GuardUpBonus)
	assert.Zero(t, s.Player.GuardUpBonus)

	s = e.nextRound(s, models.SideNone)
	require.Equal(t, 2, s.AI.GuardUpBonus)
	s = e.resolveFocus(s)
	assert.Equal(t, models.SideAI, s.Advantage)
	assert.Zero(t, s.AI.GuardUpBonus)
	assert.Zero(t, dice.Remaining())
}

func TestResolveFocus_DecapitationStrike(t *testing.T) {
	tests := map[string]struct {
		dice     []int
		outcome  models.DecapOutcome
		winner   models.Side
		aiWounds int
	}{
		"lands":         {dice: []int{4, 4, 6}, outcome: models.DecapSuccess, winner: models.SidePlayer, aiWounds: 2},
		"misses":        {dice: []int{3}, outcome: models.DecapFailed, winner: models.SideAI, aiWounds: 3},
		"fails to hurt": {dice: []int{4, 3}, outcome: models.DecapFailed, winner: models.SideAI, aiWounds: 3},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := fighter("c", models.Stats{WS: 4, S: 4, T: 4, W: 3, I: 4, A: 1, Sv: 7})
			dice := NewReplay(tt.dice...)
			e, s := duel(t, c, c, dice, models.DecapitationStrike, models.SeizeTheInitiative)
			s.Phase = models.PhaseFocus
			s.Advantage = models.SideNone
			s.AI.SelectedWeapon = nil

			s = e.resolveFocus(s)
			assert.Equal(t, tt.outcome, s.Player.Decapitation)
			assert.Equal(t, tt.winner, s.Advantage)
			assert.Equal(t, tt.aiWounds, s.AI.CurrentWounds)
			assert.Equal(t, 3-tt.aiWounds, s.Player.WoundsInflicted)
			assert.Zero(t, dice.Remaining())
		})
	}
}

func TestResolveFocus_Witchblood(t *testing.T) {
	tests := map[string]struct {
		dice   []int
		boon   models.Boon
		wounds int
	}{
		"passes": {dice: []int{3, 3, 5, 2}, boon: models.Boon{A: 2, S: 2}, wounds: 3},
		// a failed check costs a wound with no invulnerable save to take
		"fails": {dice: []int{6, 6, 5, 2}, wounds: 2},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := fighter("c", models.Stats{WS: 4, S: 4, T: 4, W: 3, I: 4, A: 1, WP: 7, Sv: 3})
			dice := NewReplay(tt.dice...)
			e, s := duel(t, c, c, dice, models.Witchblood, models.SeizeTheInitiative)
			s.Phase = models.PhaseFocus
			s.Advantage = models.SideNone
			s.AI.SelectedGambit = ""

			s = e.resolveFocus(s)
			assert.Equal(t, tt.boon, s.Player.RoundBoon)
			assert.Equal(t, tt.wounds, s.Player.CurrentWounds)
			assert.Equal(t, models.SidePlayer, s.Advantage)
			assert.Zero(t, dice.Remaining())
		})
	}
}

func TestResolveFocus_TestTheFoeRollsNothing(t *testing.T) {
	c := fighter("c", models.Stats{WS: 4, S: 4, T: 4, W: 3, I: 4, A: 1, Sv: 3})
	dice := NewReplay()
	e, s := duel(t, c, c, dice, models.SeizeTheInitiative, models.SeizeTheInitiative)
	s.Phase = models.PhaseFocus
	s.Advantage = models.SidePlayer
	s.TestTheFoe = models.SideAI

	s = e.resolveFocus(s)
	assert.Equal(t, models.SideAI, s.Advantage)
	assert.Equal(t, models.SideNone, s.TestTheFoe)
	assert.Equal(t, models.PhaseStrikeAI, s.Phase)
	assert.Zero(t, dice.Remaining())
}

func TestHowlOfTheDeathWolf_LocksAfterFirstRound(t *testing.T) {
	c := fighter("wolf", models.Stats{WS: 4, S: 4, T: 4, W: 3, I: 4, A: 1, Sv: 3})
	e, s := duel(t, c, c, NewReplay(3, 3), models.HowlOfTheDeathWolf, models.SeizeTheInitiative)
	first := e.focusTotal(s, models.SidePlayer).Total
	assert.Equal(t, 7, first, "no bonus in the round it is chosen")

	s.Player.WoundsInflicted = 1
	s = e.nextRound(s, models.SideNone)
	require.Equal(t, models.HowlOfTheDeathWolf, s.Player.Locked)
	s.Player.SelectedGambit = models.HowlOfTheDeathWolf
	assert.Equal(t, first+5, e.focusTotal(s, models.SidePlayer).Total)

	// a round without wounds ends the lock
	s = e.nextRound(s, models.SideNone)
	assert.Empty(t, s.Player.Locked)

	// chosen but drew no blood: it never locks
	_, s = duel(t, c, c, NewReplay(), models.HowlOfTheDeathWolf, models.SeizeTheInitiative)
	s = e.nextRound(s, models.SideNone)
	assert.Empty(t, s.Player.Locked)
}
