package catalog_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pefman/w40k-challenge/internal/catalog"
	"github.com/pefman/w40k-challenge/internal/models"
)

const coreYAML = `gambits:
  - {id: seize-the-initiative, name: Seize the Initiative, timings: [focus]}
  - {id: flurry-of-blows, name: Flurry of Blows, timings: [strike]}
  - {id: test-the-foe, name: Test the Foe, timings: [faceOff]}
  - {id: guard-up, name: Guard Up, timings: [strike, focus]}
  - {id: taunt-and-bait, name: Taunt and Bait, timings: [strike]}
  - {id: grandstand, name: Grandstand, timings: [focus]}
  - {id: feint-and-riposte, name: Feint and Riposte, timings: [faceOff], first_mover_only: true}
  - {id: withdraw, name: Withdraw, timings: [strike, glory]}
  - {id: finishing-blow, name: Finishing Blow, timings: [focus, strike]}
  - {id: abyssal-strike, name: Abyssal Strike, faction: legio-custodes, timings: [focus, strike]}
`

const weaponsYAML = `weapons:
  - id: spear
    name: Spear
    kind: melee
    profiles:
      - {name: Spear, initiative: "-", attacks: "-", strength: "+2", ap: 2, damage: 2, rules: ["CriticalHit(5+)", "DuellistsEdge(2)"]}
  - id: pistol
    name: Pistol
    kind: ranged
    profiles:
      - {name: Pistol, initiative: "-", attacks: "-", strength: "-", damage: 1}
`

func testFS(characters string) fstest.MapFS {
	return fstest.MapFS{
		"gambits.yaml":         {Data: []byte(coreYAML)},
		"weapons/test.yaml":    {Data: []byte(weaponsYAML)},
		"characters/test.yaml": {Data: []byte(characters)},
	}
}

func TestDefault(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	assert.Len(t, c.Gambits(), 47)
	assert.GreaterOrEqual(t, len(c.Characters()), 100)

	valdor, err := c.Character("constantin-valdor")
	require.NoError(t, err)
	assert.Equal(t, 6, valdor.Stats.W)
	assert.Equal(t, "legio-custodes", valdor.Faction)
	require.NotEmpty(t, valdor.Weapons)
	assert.Equal(t, "The Apollonian Spear", valdor.Weapons[0].Name)

	avail := c.Available(valdor)
	require.Len(t, avail, 11)
	for i, id := range models.CoreGambits {
		assert.Equal(t, id, avail[i].ID)
	}
	assert.Equal(t, models.EveryStrikeForeseen, avail[9].ID)
	assert.Equal(t, models.AbyssalStrike, avail[10].ID)
}

func TestDefault_EveryCharacterCanFight(t *testing.T) {
	c := catalog.MustDefault()
	for _, ch := range c.Characters() {
		assert.NotEmpty(t, ch.MeleeRefs(), ch.ID)
		for _, id := range ch.GambitIDs {
			_, ok := c.Gambit(id)
			assert.True(t, ok, "%s references %s", ch.ID, id)
		}
	}
}

func TestDefault_MandatoryGambits(t *testing.T) {
	c := catalog.MustDefault()
	eversor, err := c.Character("eversor-assassin")
	require.NoError(t, err)
	assert.Equal(t, models.BiologicalOverload, eversor.Mandatory)

	g, ok := c.Gambit(models.BiologicalOverload)
	require.True(t, ok)
	assert.True(t, g.Mandatory)

	g, ok = c.Gambit(models.FeintAndRiposte)
	require.True(t, ok)
	assert.True(t, g.FirstMoverOnly)
}

func TestCharacter_Unknown(t *testing.T) {
	_, err := catalog.MustDefault().Character("nobody")
	assert.ErrorIs(t, err, catalog.ErrUnknownCharacter)
}

func TestLoad_FiltersUnknownGambits(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fsys := testFS(`characters:
  - id: hero
    name: Hero
    faction: legio-custodes
    type: infantry
    sub_types: [Command]
    stats: {ws: 6, s: 4, t: 4, w: 3, i: 5, a: 4, ld: 9, wp: 8, sv: 2, inv: 4}
    weapons: [spear, pistol]
    gambits: [abyssal-strike, made-up-gambit]
`)
	c, err := catalog.Load(fsys, catalog.WithLogger(zap.New(core)))
	require.NoError(t, err)

	hero, err := c.Character("hero")
	require.NoError(t, err)
	assert.Equal(t, []models.GambitID{models.AbyssalStrike}, hero.GambitIDs)
	assert.Len(t, c.Available(hero), 10)
	assert.Equal(t, 1, logs.FilterMessage("dropping unknown gambit").Len())

	p, ok := hero.Profile(models.WeaponRef{Weapon: 0, Profile: 0})
	require.True(t, ok)
	assert.Equal(t, 2, p.Damage)
	_, ok = hero.Profile(models.WeaponRef{Weapon: 1, Profile: 0})
	assert.False(t, ok, "ranged profiles are not usable in a challenge")
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]struct {
		characters string
		want       string
	}{
		"unknown weapon": {
			characters: `characters:
  - {id: a, name: A, stats: {w: 1, sv: 3}, weapons: [axe]}
`,
			want: "unknown weapon",
		},
		"no melee weapon": {
			characters: `characters:
  - {id: a, name: A, stats: {w: 1, sv: 3}, weapons: [pistol]}
`,
			want: "no melee weapon profile",
		},
		"duplicate id": {
			characters: `characters:
  - {id: a, name: A, stats: {w: 1, sv: 3}, weapons: [spear]}
  - {id: a, name: B, stats: {w: 1, sv: 3}, weapons: [spear]}
`,
			want: "duplicate id",
		},
		"bad save": {
			characters: `characters:
  - {id: a, name: A, stats: {w: 1, sv: 9}, weapons: [spear]}
`,
			want: "armour save 9 out of range",
		},
		"bad rule": {
			characters: `characters:
  - {id: a, name: A, stats: {w: 1, sv: 3}, weapons: [spear], rules: ["CriticalHit(x+)"]}
`,
			want: "CriticalHit",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Load(testFS(tt.characters))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingCoreGambit(t *testing.T) {
	fsys := testFS("characters: []\n")
	fsys["gambits.yaml"] = &fstest.MapFile{Data: []byte("gambits:\n  - {id: seize-the-initiative, name: Seize}\n")}
	_, err := catalog.Load(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "core gambit flurry-of-blows is missing")
}

func TestLoadDir(t *testing.T) {
	_, err := catalog.LoadDir(t.TempDir())
	assert.Error(t, err)
}
