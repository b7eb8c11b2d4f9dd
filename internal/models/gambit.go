package models

type GambitID string

// Core gambits, available to every character.
const (
	SeizeTheInitiative GambitID = "seize-the-initiative"
	FlurryOfBlows      GambitID = "flurry-of-blows"
	TestTheFoe         GambitID = "test-the-foe"
	GuardUp            GambitID = "guard-up"
	TauntAndBait       GambitID = "taunt-and-bait"
	Grandstand         GambitID = "grandstand"
	FeintAndRiposte    GambitID = "feint-and-riposte"
	Withdraw           GambitID = "withdraw"
	FinishingBlow      GambitID = "finishing-blow"
)

// Faction gambits.
const (
	EveryStrikeForeseen  GambitID = "every-strike-foreseen"
	AbyssalStrike        GambitID = "abyssal-strike"
	BrutalButKunnin      GambitID = "brutal-but-kunnin"
	KunninButBrutal      GambitID = "kunnin-but-brutal"
	BiologicalOverload   GambitID = "biological-overload"
	MirrorForm           GambitID = "mirror-form"
	SwordOfTheOrder      GambitID = "sword-of-the-order"
	TheLionsCholer       GambitID = "the-lions-choler"
	ThePathOfTheWarrior  GambitID = "the-path-of-the-warrior"
	DeathByAThousandCuts GambitID = "death-by-a-thousand-cuts"
	NoPreyEscapes        GambitID = "no-prey-escapes"
	ASagaWovenOfGlory    GambitID = "a-saga-woven-of-glory"
	HowlOfTheDeathWolf   GambitID = "howl-of-the-death-wolf"
	AWallUnyielding      GambitID = "a-wall-unyielding"
	DeathsChampion       GambitID = "deaths-champion"
	ExecutionersTax      GambitID = "executioners-tax"
	ThrallOfTheRedThirst GambitID = "thrall-of-the-red-thirst"
	AngelicDescent       GambitID = "angelic-descent"
	LegionOfOne          GambitID = "legion-of-one"
	TemperedByWar        GambitID = "tempered-by-war"
	AegisOfWisdom        GambitID = "aegis-of-wisdom"
	CalculatingSwordsman GambitID = "calculating-swordsman"
	DutyIsSacrifice      GambitID = "duty-is-sacrifice"
	DecapitationStrike   GambitID = "decapitation-strike"
	TheShadowedLord      GambitID = "the-shadowed-lord"
	ParagonOfExcellence  GambitID = "paragon-of-excellence"
	BiteOfTheBetrayed    GambitID = "bite-of-the-betrayed"
	SpitefulDemise       GambitID = "spiteful-demise"
	TheBreaker           GambitID = "the-breaker"
	NostramanCourage     GambitID = "nostraman-courage"
	ADeathLongForeseen   GambitID = "a-death-long-foreseen"
	ViolentOverkill      GambitID = "violent-overkill"
	SteadfastResilience  GambitID = "steadfast-resilience"
	Witchblood           GambitID = "witchblood"
	PropheticDuellist    GambitID = "prophetic-duellist"
	MercilessStrike      GambitID = "merciless-strike"
	BeseechTheGods       GambitID = "beseech-the-gods"
	IAmAlpharius         GambitID = "i-am-alpharius"
)

// CoreGambits in catalogue order.
var CoreGambits = []GambitID{
	SeizeTheInitiative, FlurryOfBlows, TestTheFoe, GuardUp, TauntAndBait,
	Grandstand, FeintAndRiposte, Withdraw, FinishingBlow,
}

type Timing string

const (
	TimingFaceOff Timing = "faceOff"
	TimingFocus   Timing = "focus"
	TimingStrike  Timing = "strike"
	TimingGlory   Timing = "glory"
)

// Gambit is catalogue metadata. Effects live in the game package.
type Gambit struct {
	ID               GambitID `yaml:"id" json:"id"`
	Name             string   `yaml:"name" json:"name"`
	Description      string   `yaml:"description" json:"description"`
	Faction          string   `yaml:"faction,omitempty" json:"faction,omitempty"`
	Timings          []Timing `yaml:"timings" json:"timings"`
	FirstMoverOnly   bool     `yaml:"first_mover_only,omitempty" json:"first_mover_only"`
	OncePerChallenge bool     `yaml:"once_per_challenge,omitempty" json:"once_per_challenge"`
	Mandatory        bool     `yaml:"mandatory,omitempty" json:"mandatory"`
}
