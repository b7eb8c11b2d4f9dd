package engine

import (
	"errors"

	"github.com/pefman/w40k-challenge/internal/ai"
	"github.com/pefman/w40k-challenge/internal/game"
	"github.com/pefman/w40k-challenge/internal/models"
)

// GambitBook is the read-only gambit catalogue the engine consults.
type GambitBook interface {
	Gambit(id models.GambitID) (models.Gambit, bool)
	// Available lists the core gambits plus the character's faction gambits.
	Available(c models.Character) []models.Gambit
}

// Chooser makes the AI side's face-off decision.
type Chooser interface {
	Choose(sit ai.Situation) ai.Decision
}

// Input is the player's answer at a suspension point. Only the fields the
// current phase asks for may be set.
type Input struct {
	// faceOff
	Gambit     models.GambitID   `json:"gambit,omitempty"`
	Ban        models.GambitID   `json:"ban,omitempty"`
	Prediction models.Prediction `json:"prediction,omitempty"`
	Sacrifice  int               `json:"sacrifice,omitempty"`
	// focus
	Weapon *models.WeaponRef `json:"weapon,omitempty"`
	// glory
	Continue bool `json:"continue,omitempty"`
	Withdraw bool `json:"withdraw,omitempty"`
}

// Engine runs one challenge between a player and the AI. It holds no
// challenge state: every step takes a CombatState and returns a new one.
type Engine struct {
	book    GambitBook
	player  models.Character
	ai      models.Character
	dice    Dice
	chooser Chooser
	weapon  *models.WeaponRef
}

type Option func(*Engine)

// WithChooser replaces the heuristic AI.
func WithChooser(c Chooser) Option {
	return func(e *Engine) { e.chooser = c }
}

// WithNoise drives the heuristic AI's noise from n. A nil n disables noise.
func WithNoise(n ai.Noise) Option {
	return func(e *Engine) { e.chooser = ai.NewScorer(n) }
}

// WithPlayerWeapon pre-selects the player's weapon so focus never waits.
func WithPlayerWeapon(ref models.WeaponRef) Option {
	return func(e *Engine) { e.weapon = &ref }
}

func New(book GambitBook, player, opponent models.Character, dice Dice, opts ...Option) *Engine {
	e := &Engine{book: book, player: player, ai: opponent, dice: dice}
	for _, o := range opts {
		o(e)
	}
	if e.chooser == nil {
		e.chooser = ai.NewScorer(Seeded(0).r)
	}
	return e
}

func (e *Engine) char(side models.Side) models.Character {
	if side == models.SideAI {
		return e.ai
	}
	return e.player
}

// Start returns the setup state. The first Advance initialises the round.
func (e *Engine) Start() models.CombatState {
	mk := func(c models.Character) models.CombatantState {
		return models.CombatantState{CharacterID: c.ID, CurrentWounds: c.Stats.W, BaseWounds: c.Stats.W}
	}
	return models.CombatState{Round: 1, Phase: models.PhaseSetup, Player: mk(e.player), AI: mk(e.ai)}
}

// Advance applies in at the current suspension point and runs the engine
// until it needs input again or the challenge ends. Illegal input returns
// s unchanged with waiting = true; Validate tells why.
func (e *Engine) Advance(s models.CombatState, in *Input) (next models.CombatState, waiting bool) {
	if s.Phase == models.PhaseEnded {
		return s, false
	}
	if e.Validate(s, in) != nil {
		return s, true
	}
	cur := s
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok && errors.Is(err, ErrDiceExhausted) {
				var ie *InvariantError
				if !errors.As(err, &ie) {
					panic(&InvariantError{Round: cur.Round, Phase: cur.Phase, Msg: "dice source ran dry", Err: err})
				}
			}
			panic(r)
		}
	}()

	for {
		switch cur.Phase {
		case models.PhaseSetup:
			cur = e.setup(cur)
		case models.PhaseFaceOff:
			cur = e.firstMover(cur)
			if cur.Player.SelectedGambit == "" {
				if in == nil {
					return cur, true
				}
				cur = e.selectGambit(cur, models.SidePlayer, decisionOf(*in))
				in = nil
			}
			if cur.AI.SelectedGambit == "" {
				cur = e.aiSelect(cur)
			}
			cur.Phase = models.PhaseFocus
		case models.PhaseFocus:
			if cur.Player.SelectedWeapon == nil {
				if in == nil {
					return cur, true
				}
				ref := *in.Weapon
				cur.Player.SelectedWeapon = &ref
				in = nil
			}
			cur = e.resolveFocus(cur)
		case models.PhaseStrikePlayer, models.PhaseStrikeAI:
			cur = e.resolveStrike(cur)
		case models.PhaseGlory:
			if !cur.Player.IsCasualty && !cur.AI.IsCasualty {
				if in == nil {
					return cur, true
				}
				cur = e.resolveGlory(cur, *in)
				in = nil
			} else {
				cur = e.resolveGlory(cur, Input{})
			}
		case models.PhaseEnded:
			return cur, false
		default:
			fail(cur, "unknown phase %q", cur.Phase)
		}
		checkState(cur)
	}
}

func decisionOf(in Input) ai.Decision {
	return ai.Decision{Gambit: in.Gambit, Ban: in.Ban, Prediction: in.Prediction, Sacrifice: in.Sacrifice}
}

// Validate reports why in would be rejected at s, as an *InputError, or nil.
// A nil input is always acceptable: Advance then just waits.
func (e *Engine) Validate(s models.CombatState, in *Input) error {
	if in == nil || s.Phase == models.PhaseEnded {
		return nil
	}
	switch s.Phase {
	case models.PhaseFaceOff:
		if s.Player.SelectedGambit != "" {
			return reject(s, nil, "gambit already selected this round")
		}
		if in.Weapon != nil || in.Continue || in.Withdraw {
			return reject(s, nil, "only a gambit may be chosen in the face-off")
		}
		return e.validateGambit(s, *in)
	case models.PhaseFocus:
		if s.Player.SelectedWeapon != nil {
			return reject(s, nil, "no input expected: weapon already selected")
		}
		if in.Weapon == nil || in.Gambit != "" || in.Continue || in.Withdraw {
			return reject(s, nil, "a weapon profile must be chosen")
		}
		if _, ok := e.player.Profile(*in.Weapon); !ok {
			return reject(s, nil, "no melee profile %d/%d", in.Weapon.Weapon, in.Weapon.Profile)
		}
		return nil
	case models.PhaseGlory:
		if s.Player.IsCasualty || s.AI.IsCasualty {
			return reject(s, nil, "no input expected: a model has fallen")
		}
		if in.Gambit != "" || in.Weapon != nil || (in.Continue && in.Withdraw) {
			return reject(s, nil, "choose to continue, end or withdraw")
		}
		blocked := game.GloryEffects(s.AI.SelectedGambit).BlocksOpponentExit
		if in.Withdraw {
			if !game.GloryEffects(s.Player.SelectedGambit).MayWithdraw {
				return reject(s, nil, "withdraw was not selected this round")
			}
			if blocked {
				return reject(s, nil, "no prey escapes: withdrawing is not allowed")
			}
		}
		if !in.Continue && !in.Withdraw && blocked {
			return reject(s, nil, "no prey escapes: the challenge must continue")
		}
		return nil
	default:
		return reject(s, nil, "no input expected")
	}
}

func (e *Engine) validateGambit(s models.CombatState, in Input) error {
	g, ok := e.book.Gambit(in.Gambit)
	if !ok {
		return reject(s, nil, "unknown gambit %q", in.Gambit)
	}
	if !available(e.book.Available(e.player), g.ID) {
		return reject(s, nil, "%s cannot use %s", e.player.Name, g.ID)
	}
	if err := game.CheckEligible(g, e.legalContext(s, models.SidePlayer)); err != nil {
		return reject(s, err, "%s", g.ID)
	}
	switch {
	case in.Ban != "" && g.ID != models.FeintAndRiposte:
		return reject(s, nil, "only feint and riposte bans a gambit")
	case in.Ban != "" && in.Ban == e.ai.Mandatory:
		return reject(s, nil, "a mandatory gambit cannot be banned")
	case in.Ban != "":
		if _, ok := e.book.Gambit(in.Ban); !ok {
			return reject(s, nil, "unknown gambit %q", in.Ban)
		}
	}
	if (in.Prediction != models.PredictNone) != (g.ID == models.ThePathOfTheWarrior) {
		return reject(s, nil, "a prediction is given with the path of the warrior only")
	}
	if in.Prediction != models.PredictNone && in.Prediction != models.PredictLow && in.Prediction != models.PredictHigh {
		return reject(s, nil, "unknown prediction %q", in.Prediction)
	}
	if g.ID == models.DutyIsSacrifice {
		if in.Sacrifice < 1 || in.Sacrifice > 3 {
			return reject(s, nil, "duty is sacrifice needs 1, 2 or 3")
		}
	} else if in.Sacrifice != 0 {
		return reject(s, nil, "a sacrifice is given with duty is sacrifice only")
	}
	return nil
}

func available(gs []models.Gambit, id models.GambitID) bool {
	for _, g := range gs {
		if g.ID == id {
			return true
		}
	}
	return false
}

// mover is the side that picks first this round: the advantage holder, or
// the player as challenger.
func mover(s models.CombatState) models.Side {
	if s.Advantage == models.SideNone {
		return models.SidePlayer
	}
	return s.Advantage
}

func (e *Engine) legalContext(s models.CombatState, side models.Side) game.LegalContext {
	return game.LegalContext{
		Round:      s.Round,
		Self:       e.char(side),
		Opponent:   e.char(side.Other()),
		State:      s.Side(side),
		FirstMover: mover(s) == side,
	}
}

// Legal lists the gambits side may select at s.
func (e *Engine) Legal(s models.CombatState, side models.Side) []models.Gambit {
	ctx := e.legalContext(s, side)
	var out []models.Gambit
	for _, g := range e.book.Available(e.char(side)) {
		if game.CheckEligible(g, ctx) == nil {
			out = append(out, g)
		}
	}
	return out
}

// Situation describes s from side's point of view for a Chooser.
func (e *Engine) Situation(s models.CombatState, side models.Side) ai.Situation {
	sit := ai.Situation{
		Round:         s.Round,
		Side:          side,
		Self:          e.char(side),
		Opponent:      e.char(side.Other()),
		State:         s.Side(side),
		OpponentState: s.Side(side.Other()),
		Advantage:     s.Advantage,
		FirstMover:    mover(s) == side,
		Legal:         e.Legal(s, side),
	}
	if sit.FirstMover && s.Side(side.Other()).SelectedGambit == "" {
		sit.OpponentLegal = e.Legal(s, side.Other())
	}
	return sit
}

func (e *Engine) setup(s models.CombatState) models.CombatState {
	s.Phase = models.PhaseFaceOff
	if e.weapon != nil {
		if _, ok := e.player.Profile(*e.weapon); !ok {
			fail(s, "pre-selected weapon %d/%d is not a melee profile", e.weapon.Weapon, e.weapon.Profile)
		}
		ref := *e.weapon
		s.Player.SelectedWeapon = &ref
	}
	return s.Logf(models.SeverityInfo, "Challenge: %s vs %s", e.player.Name, e.ai.Name)
}

// firstMover lets the AI choose first when it holds the advantage.
func (e *Engine) firstMover(s models.CombatState) models.CombatState {
	if mover(s) != models.SideAI || s.AI.SelectedGambit != "" {
		return s
	}
	return e.aiSelect(s)
}

func (e *Engine) aiSelect(s models.CombatState) models.CombatState {
	sit := e.Situation(s, models.SideAI)
	d := e.chooser.Choose(sit)
	if !available(sit.Legal, d.Gambit) {
		fallback := models.SeizeTheInitiative
		if len(sit.Legal) > 0 && !available(sit.Legal, fallback) {
			fallback = sit.Legal[0].ID
		}
		d = ai.Complete(fallback, sit)
	}
	return e.selectGambit(s, models.SideAI, d)
}

// selectGambit records a legal choice and its selection-time effects.
func (e *Engine) selectGambit(s models.CombatState, side models.Side, d ai.Decision) models.CombatState {
	c := s.Side(side)
	g, _ := e.book.Gambit(d.Gambit)
	c.SelectedGambit = d.Gambit
	c.Prediction = d.Prediction
	c.Sacrifice = d.Sacrifice
	if g.OncePerChallenge || d.Gambit == models.BrutalButKunnin || d.Gambit == models.KunninButBrutal {
		c = c.Spend(d.Gambit)
	}
	switch d.Gambit {
	case models.TauntAndBait:
		c.TauntCount++
	case models.BiteOfTheBetrayed:
		c.ChallengeBoon = c.ChallengeBoon.Plus(models.Boon{WS: 1, S: 1, T: 1})
	}
	s = s.WithSide(side, c)
	name := e.char(side).Name
	s = s.Logf(models.SeverityInfo, "%s selects %s", name, gambitName(g, d.Gambit))
	if d.Gambit == models.FeintAndRiposte && d.Ban != "" && d.Ban != e.char(side.Other()).Mandatory {
		opp := s.Side(side.Other())
		opp.FeintBan = d.Ban
		s = s.WithSide(side.Other(), opp)
		s = s.Logf(models.SeverityWarning, "%s bans %s", name, d.Ban)
	}
	return s
}

func gambitName(g models.Gambit, id models.GambitID) string {
	if g.Name != "" {
		return g.Name
	}
	return string(id)
}
