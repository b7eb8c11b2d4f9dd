package engine_test

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/pefman/w40k-challenge/internal/ai"
	"github.com/pefman/w40k-challenge/internal/catalog"
	"github.com/pefman/w40k-challenge/internal/engine"
	"github.com/pefman/w40k-challenge/internal/models"
)

// fixed always picks the same gambit.
type fixed models.GambitID

func (f fixed) Choose(sit ai.Situation) ai.Decision {
	return ai.Complete(models.GambitID(f), sit)
}

func spear() models.Weapon {
	return models.Weapon{
		ID: "spear", Name: "The Apollonian Spear", Kind: models.WeaponMelee,
		Profiles: []models.WeaponProfile{{
			Name:     "The Apollonian Spear",
			Strength: models.Add(2),
			AP:       2,
			Damage:   2,
			Rules: []models.SpecialRule{
				models.Rule(models.RuleCriticalHit, 5),
				models.Rule(models.RuleDuellistsEdge, 2),
			},
		}},
	}
}

func choppa() models.Weapon {
	return models.Weapon{
		ID: "choppa", Name: "Choppa", Kind: models.WeaponMelee,
		Profiles: []models.WeaponProfile{{Name: "Choppa", Damage: 1}},
	}
}

func champion() models.Character {
	return models.Character{
		ID: "champion", Name: "Champion", Faction: "legio-custodes",
		Type: models.TypeParagon, SubTypes: []models.SubType{models.SubTypeParagon, models.SubTypeCommand},
		Stats:   models.Stats{WS: 7, S: 5, T: 5, W: 6, I: 6, A: 6, LD: 12, WP: 10, Sv: 2, Inv: 4},
		Weapons: []models.Weapon{spear()},
	}
}

func warboss() models.Character {
	return models.Character{
		ID: "warboss", Name: "Warboss", Faction: "orks",
		Type: models.TypeInfantry, SubTypes: []models.SubType{models.SubTypeCommand},
		Stats:   models.Stats{WS: 6, S: 5, T: 5, W: 4, I: 4, A: 6, LD: 9, WP: 9, Sv: 4, Inv: 4},
		Weapons: []models.Weapon{choppa()},
		Rules:   []models.SpecialRule{models.Rule(models.RuleEternalWarrior, 1)},
	}
}

func ones(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func newDuel(t *testing.T, dice engine.Dice, opts ...engine.Option) (*engine.Engine, models.CombatState) {
	t.Helper()
	opts = append([]engine.Option{engine.WithPlayerWeapon(models.WeaponRef{}), engine.WithChooser(fixed(models.SeizeTheInitiative))}, opts...)
	e := engine.New(catalog.MustDefault(), champion(), warboss(), dice, opts...)
	s, waiting := e.Advance(e.Start(), nil)
	require.True(t, waiting)
	require.Equal(t, models.PhaseFaceOff, s.Phase)
	return e, s
}

func TestAdvance_PlayerSweep(t *testing.T) {
	dice := engine.NewReplay(
		6, 1, 1, 1,
		6, 6, 6, 6, 6, 6, 6,
		6, 6, 6, 6, 6, 6, 6,
		1, 1, 1, 1, 1, 1, 1,
	)
	e, s := newDuel(t, dice)

	s, waiting := e.Advance(s, &engine.Input{Gambit: models.SeizeTheInitiative})
	assert.False(t, waiting)
	assert.Equal(t, models.PhaseEnded, s.Phase)
	assert.True(t, s.AI.IsCasualty)
	assert.Equal(t, 0, s.AI.CurrentWounds)
	assert.Equal(t, 5, s.PlayerCRP)
	assert.Equal(t, 0, s.AICRP)
	assert.Equal(t, models.SidePlayer, s.Winner())
	assert.Zero(t, dice.Remaining())
}

func TestAdvance_TestTheFoeCarries(t *testing.T) {
	e, s := newDuel(t, engine.NewReplay(ones(40)...))

	s, waiting := e.Advance(s, &engine.Input{Gambit: models.TestTheFoe})
	require.True(t, waiting)
	require.Equal(t, models.PhaseGlory, s.Phase)
	assert.Equal(t, models.SidePlayer, s.Advantage)
	assert.False(t, s.Player.IsCasualty)
	assert.False(t, s.AI.IsCasualty)

	s, waiting = e.Advance(s, &engine.Input{Continue: true})
	require.True(t, waiting)
	assert.Equal(t, 2, s.Round)
	assert.Equal(t, models.PhaseFaceOff, s.Phase)
	assert.Equal(t, models.SidePlayer, s.TestTheFoe)
	assert.Empty(t, s.Player.SelectedGambit)
	assert.Empty(t, s.AI.SelectedGambit)
}

func TestAdvance_Withdraw(t *testing.T) {
	e, s := newDuel(t, engine.NewReplay(ones(20)...))

	s, waiting := e.Advance(s, &engine.Input{Gambit: models.Withdraw})
	require.True(t, waiting)
	require.Equal(t, models.PhaseGlory, s.Phase)

	s, waiting = e.Advance(s, &engine.Input{Withdraw: true})
	assert.False(t, waiting)
	assert.Equal(t, models.PhaseEnded, s.Phase)
	assert.Equal(t, 0, s.PlayerCRP)
	assert.Equal(t, 0, s.AICRP)
	assert.Equal(t, models.SideNone, s.Winner())
	assert.True(t, slices.ContainsFunc(s.Log, func(l models.LogEntry) bool {
		return l.Message == "Challenge ended by withdrawal"
	}))
}

func TestAdvance_WithdrawAfterWinningOnPoints(t *testing.T) {
	e, s := newDuel(t, engine.NewReplay(ones(20)...))
	s, _ = e.Advance(s, &engine.Input{Gambit: models.Withdraw})
	s.PlayerCRP = 3

	s, waiting := e.Advance(s, &engine.Input{Withdraw: true})
	assert.False(t, waiting)
	assert.Equal(t, models.SidePlayer, s.Winner(), "CRP from earlier rounds still counts")
	n := len(s.Log)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, "Challenge ended by withdrawal", s.Log[n-2].Message)
	assert.Contains(t, s.Log[n-1].Message, "Champion wins")
}

func TestAdvance_WaitsForWeapon(t *testing.T) {
	e := engine.New(catalog.MustDefault(), champion(), warboss(), engine.NewReplay(ones(40)...),
		engine.WithChooser(fixed(models.SeizeTheInitiative)))
	s, _ := e.Advance(e.Start(), nil)

	s, waiting := e.Advance(s, &engine.Input{Gambit: models.GuardUp})
	require.True(t, waiting)
	require.Equal(t, models.PhaseFocus, s.Phase)
	assert.Equal(t, models.GuardUp, s.Player.SelectedGambit)

	bad := &engine.Input{Weapon: &models.WeaponRef{Weapon: 3}}
	assert.Error(t, e.Validate(s, bad))
	same, waiting := e.Advance(s, bad)
	assert.True(t, waiting)
	assert.Equal(t, s, same)

	s, waiting = e.Advance(s, &engine.Input{Weapon: &models.WeaponRef{}})
	require.True(t, waiting)
	assert.Equal(t, models.PhaseGlory, s.Phase)
	assert.NotNil(t, s.AI.SelectedWeapon)
}

func TestAdvance_RejectsIllegalInput(t *testing.T) {
	e, s := newDuel(t, engine.NewReplay(ones(40)...))

	tests := map[string]engine.Input{
		"unknown gambit":          {Gambit: "nope"},
		"faction gambit of other": {Gambit: models.BrutalButKunnin},
		"ban without feint":       {Gambit: models.SeizeTheInitiative, Ban: models.GuardUp},
		"prediction without path": {Gambit: models.SeizeTheInitiative, Prediction: models.PredictLow},
		"glory input in face-off": {Continue: true},
		"weapon in face-off":      {Gambit: models.GuardUp, Weapon: &models.WeaponRef{}},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			var ie *engine.InputError
			require.ErrorAs(t, e.Validate(s, &in), &ie)
			assert.Equal(t, models.PhaseFaceOff, ie.Phase)
			next, waiting := e.Advance(s, &in)
			assert.True(t, waiting)
			assert.Equal(t, s, next)
		})
	}
}

func TestAdvance_FeintBansOpponent(t *testing.T) {
	var seen ai.Situation
	spy := chooserFunc(func(sit ai.Situation) ai.Decision {
		seen = sit
		return ai.Decision{Gambit: models.SeizeTheInitiative}
	})
	e, s := newDuel(t, engine.NewReplay(ones(40)...), engine.WithChooser(spy))

	s, _ = e.Advance(s, &engine.Input{Gambit: models.FeintAndRiposte, Ban: models.SeizeTheInitiative})
	assert.Equal(t, models.SeizeTheInitiative, seen.State.FeintBan)
	for _, g := range seen.Legal {
		assert.NotEqual(t, models.SeizeTheInitiative, g.ID)
	}
	// the chooser's pick was illegal, so the engine fell back to a legal one
	assert.NotEqual(t, models.SeizeTheInitiative, s.AI.SelectedGambit)
}

func TestAdvance_EndedIsTerminal(t *testing.T) {
	e, s := newDuel(t, engine.NewReplay(ones(20)...))
	s, _ = e.Advance(s, &engine.Input{Gambit: models.Withdraw})
	s, _ = e.Advance(s, &engine.Input{Withdraw: true})
	require.Equal(t, models.PhaseEnded, s.Phase)

	next, waiting := e.Advance(s, &engine.Input{Continue: true})
	assert.False(t, waiting)
	assert.Equal(t, s, next)
}

func TestAdvance_ExhaustedReplayPanics(t *testing.T) {
	e, s := newDuel(t, engine.NewReplay(6, 1))
	assert.PanicsWithError(t,
		"engine invariant violated in round 1, phase focus: dice source ran dry: replay dice exhausted",
		func() { e.Advance(s, &engine.Input{Gambit: models.SeizeTheInitiative}) })
}

type chooserFunc func(ai.Situation) ai.Decision

func (f chooserFunc) Choose(sit ai.Situation) ai.Decision { return f(sit) }

// recorder logs every d6 it hands out so the run can be replayed.
type recorder struct {
	src  engine.Dice
	seen []int
}

func (r *recorder) RollD6() int {
	v := r.src.RollD6()
	r.seen = append(r.seen, v)
	return v
}

// RollD3 records the d6 that Replay maps back to the same D3.
func (r *recorder) RollD3() int {
	v := r.src.RollD3()
	r.seen = append(r.seen, 2*v-1)
	return v
}

func (r *recorder) RollNd6(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = r.RollD6()
	}
	return out
}

// playerInput answers whatever s is waiting for, drawing choices from t.
func playerInput(t *rapid.T, e *engine.Engine, s models.CombatState) *engine.Input {
	switch s.Phase {
	case models.PhaseFaceOff:
		legal := e.Legal(s, models.SidePlayer)
		if len(legal) == 0 {
			t.Fatalf("no legal gambit in round %d", s.Round)
		}
		g := rapid.SampledFrom(legal).Draw(t, "gambit")
		d := ai.Complete(g.ID, e.Situation(s, models.SidePlayer))
		return &engine.Input{Gambit: d.Gambit, Ban: d.Ban, Prediction: d.Prediction, Sacrifice: d.Sacrifice}
	case models.PhaseFocus:
		return &engine.Input{Weapon: &models.WeaponRef{}}
	case models.PhaseGlory:
		in := &engine.Input{Continue: s.Round < 6 && rapid.Bool().Draw(t, "continue")}
		if e.Validate(s, in) != nil {
			in = &engine.Input{Continue: true}
		}
		return in
	}
	t.Fatalf("unexpected wait in phase %s", s.Phase)
	return nil
}

type step struct {
	in    *engine.Input
	state models.CombatState
}

func play(t *rapid.T, e *engine.Engine) []step {
	s, waiting := e.Advance(e.Start(), nil)
	steps := []step{{state: s}}
	for i := 0; waiting && i < 400; i++ {
		in := playerInput(t, e, s)
		s, waiting = e.Advance(s, in)
		steps = append(steps, step{in: in, state: s})
	}
	if waiting {
		t.Fatalf("challenge did not end")
	}
	return steps
}

func drawPair(t *rapid.T) (models.Character, models.Character) {
	chars := catalog.MustDefault().Characters()
	player := rapid.SampledFrom(chars).Draw(t, "player")
	opponent := rapid.SampledFrom(chars).Draw(t, "ai")
	return player, opponent
}

func meleeFirst(c models.Character) models.Character {
	refs := c.MeleeRefs()
	if len(refs) > 0 && refs[0].Weapon != 0 {
		c.Weapons = append([]models.Weapon{c.Weapons[refs[0].Weapon]}, slices.Delete(slices.Clone(c.Weapons), refs[0].Weapon, refs[0].Weapon+1)...)
	}
	return c
}

func TestAdvance_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		player, opponent := drawPair(t)
		player = meleeFirst(player)
		seed := rapid.Int64().Draw(t, "seed")
		e := engine.New(catalog.MustDefault(), player, opponent,
			engine.NewReal(rand.New(rand.NewSource(seed))),
			engine.WithNoise(rand.New(rand.NewSource(seed+1))))

		steps := play(t, e)
		prevP, prevA := 0, 0
		for _, st := range steps {
			s := st.state
			for _, c := range []models.CombatantState{s.Player, s.AI} {
				if c.CurrentWounds < 0 || c.CurrentWounds > c.BaseWounds {
					t.Fatalf("wounds %d outside [0,%d]", c.CurrentWounds, c.BaseWounds)
				}
				if c.IsCasualty != (c.CurrentWounds == 0) {
					t.Fatalf("casualty flag %v with %d wounds", c.IsCasualty, c.CurrentWounds)
				}
			}
			if s.PlayerCRP < prevP || s.AICRP < prevA {
				t.Fatalf("CRP went down: %d/%d -> %d/%d", prevP, prevA, s.PlayerCRP, s.AICRP)
			}
			prevP, prevA = s.PlayerCRP, s.AICRP
			if s.Phase == models.PhaseGlory && s.Advantage == models.SideNone {
				t.Fatalf("no challenge advantage after focus in round %d", s.Round)
			}
			if opponent.Mandatory != "" && s.AI.SelectedGambit != "" && s.AI.SelectedGambit != opponent.Mandatory {
				t.Fatalf("ai chose %s over mandatory %s", s.AI.SelectedGambit, opponent.Mandatory)
			}
			if s.Phase == models.PhaseFaceOff && s.Player.FeintBan != "" && s.Player.SelectedGambit == "" && s.AI.SelectedGambit == "" {
				t.Fatalf("feint ban %s survived into round %d", s.Player.FeintBan, s.Round)
			}
		}

		last := steps[len(steps)-1].state
		if last.Phase != models.PhaseEnded {
			t.Fatalf("final phase %s", last.Phase)
		}
		again, waiting := e.Advance(last, &engine.Input{Continue: true})
		if waiting || !assert.ObjectsAreEqual(last, again) {
			t.Fatalf("advance changed an ended challenge")
		}
	})
}

func TestAdvance_ReplayIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		player, opponent := drawPair(t)
		player = meleeFirst(player)
		seed := rapid.Int64().Draw(t, "seed")
		rec := &recorder{src: engine.NewReal(rand.New(rand.NewSource(seed)))}
		e := engine.New(catalog.MustDefault(), player, opponent, rec, engine.WithNoise(nil))
		steps := play(t, e)

		replay := engine.NewReplay(rec.seen...)
		e2 := engine.New(catalog.MustDefault(), player, opponent, replay, engine.WithNoise(nil))
		s, _ := e2.Advance(e2.Start(), nil)
		for _, st := range steps[1:] {
			s, _ = e2.Advance(s, st.in)
		}
		if !assert.ObjectsAreEqual(steps[len(steps)-1].state, s) {
			t.Fatalf("replayed challenge diverged")
		}
		if replay.Remaining() != 0 {
			t.Fatalf("%d dice left over", replay.Remaining())
		}
	})
}

func TestAdvance_IllegalInputLeavesStateAlone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		player, opponent := drawPair(t)
		player = meleeFirst(player)
		seed := rapid.Int64().Draw(t, "seed")
		e := engine.New(catalog.MustDefault(), player, opponent,
			engine.NewReal(rand.New(rand.NewSource(seed))), engine.WithNoise(nil))

		for _, st := range play(t, e) {
			s := st.state
			bad := &engine.Input{Gambit: "not-a-gambit", Continue: true}
			next, _ := e.Advance(s, bad)
			if !assert.ObjectsAreEqual(s, next) {
				t.Fatalf("illegal input changed the state in phase %s", s.Phase)
			}
		}
	})
}
