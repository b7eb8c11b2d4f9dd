package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/pefman/w40k-challenge/internal/game"
	"github.com/pefman/w40k-challenge/internal/models"
)

func TestHitTN(t *testing.T) {
	tests := []struct{ atk, def, want int }{
		{7, 6, 3},
		{6, 7, 5},
		{4, 4, 4},
		{1, 10, 6},
		{10, 1, 2},
		{0, 12, 6}, // clamped to 1 vs 10
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, game.HitTN(tc.atk, tc.def), "ws %d vs %d", tc.atk, tc.def)
	}
}

func TestHitTN_Property_PairSumBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := rapid.IntRange(1, 10).Draw(rt, "x")
		y := rapid.IntRange(1, 10).Draw(rt, "y")
		sum := game.HitTN(x, y) + game.HitTN(y, x)
		assert.Contains(rt, []int{8, 9}, sum)
	})
}

func TestWoundTN(t *testing.T) {
	tests := []struct{ s, t, want int }{
		{3, 5, 6},
		{4, 4, 4},
		{1, 5, game.Impossible},
		{9, 7, 2},
		{7, 6, 3},
		{14, 2, 2},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, game.WoundTN(tc.s, tc.t), "s %d vs t %d", tc.s, tc.t)
	}
}

func TestWoundTN_Property_StrongerNeverWorse(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.IntRange(1, 9).Draw(rt, "s")
		tough := rapid.IntRange(1, 10).Draw(rt, "t")
		assert.LessOrEqual(rt, game.WoundTN(s+1, tough), game.WoundTN(s, tough))
	})
}

func TestEffectiveSave(t *testing.T) {
	tests := []struct {
		name            string
		armour, inv, ap int
		want            int
		ok              bool
	}{
		{"armour only", 2, 0, 0, 2, true},
		{"ap penetrates armour", 2, 4, 2, 4, true},
		{"ap worse than armour", 4, 0, 5, 4, true},
		{"ap equal to armour", 4, 0, 4, 0, false},
		{"inv better", 4, 3, 0, 3, true},
		{"no save at all", 7, 0, 2, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tn, ok := game.EffectiveSave(tc.armour, tc.inv, tc.ap)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, tn)
		})
	}
}

func TestEffectiveSave_Property_SmallestAvailable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		armour := rapid.IntRange(2, 7).Draw(rt, "armour")
		inv := rapid.SampledFrom([]int{0, 2, 3, 4, 5, 6}).Draw(rt, "inv")
		ap := rapid.IntRange(0, 6).Draw(rt, "ap")

		var slots []int
		if armour <= 6 && (ap == 0 || ap > armour) {
			slots = append(slots, armour)
		}
		if inv != 0 {
			slots = append(slots, inv)
		}
		tn, ok := game.EffectiveSave(armour, inv, ap)
		if len(slots) == 0 {
			assert.False(rt, ok)
			return
		}
		assert.True(rt, ok)
		assert.Equal(rt, min(slots[0], slots[len(slots)-1]), tn)
	})
}

func TestProfileCharacteristics(t *testing.T) {
	c := models.Character{Stats: models.Stats{I: 5, A: 4, S: 4}}
	p := models.WeaponProfile{
		Initiative: models.Add(-6),
		Attacks:    models.Fixed(3),
		Strength:   models.Mult(1.5),
	}
	assert.Equal(t, 0, game.CombatInitiative(c.Stats.I, p))
	assert.Equal(t, 3, game.ProfileAttacks(c, p))
	assert.Equal(t, 6, game.ProfileStrength(c, p))
	assert.Equal(t, 4, game.ProfileAttacks(c, models.WeaponProfile{}))
}

func TestDuellistsEdge(t *testing.T) {
	c := models.Character{Rules: []models.SpecialRule{models.Rule(models.RuleDuellistsEdge, 1)}}
	p := models.WeaponProfile{Rules: []models.SpecialRule{
		models.Rule(models.RuleDuellistsEdge, 2),
		models.Rule(models.RuleCriticalHit, 5),
	}}
	assert.Equal(t, 3, game.DuellistsEdge(c, p))
}

func TestCritThresholdAndAP(t *testing.T) {
	assert.Equal(t, 0, game.CritThreshold(0, 0))
	assert.Equal(t, 5, game.CritThreshold(6, 0, 5))
	assert.Equal(t, 2, game.ImproveAP(2, 1))
	assert.Equal(t, 3, game.ImproveAP(4, 1))
	assert.Equal(t, 0, game.ImproveAP(0, 1))
}
