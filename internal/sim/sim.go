// Package sim ranks a character's opening gambits by playing many
// automated challenges against a fixed opponent.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pefman/w40k-challenge/internal/ai"
	"github.com/pefman/w40k-challenge/internal/engine"
	"github.com/pefman/w40k-challenge/internal/models"
)

const (
	DefaultSimsPerGambit = 500
	// DefaultMaxRounds ends a run whose models cannot hurt each other.
	DefaultMaxRounds = 30
	// maxSteps bounds Advance calls per round of the cap.
	maxSteps = 64
)

var ErrNoMeleeProfile = errors.New("character has no melee profile")

// Outcome is the result of one automated challenge.
type Outcome struct {
	Winner    models.Side `json:"winner"`
	PlayerCRP int         `json:"player_crp"`
	AICRP     int         `json:"ai_crp"`
	Rounds    int         `json:"rounds"`
}

// Result aggregates the runs for one opening gambit.
type Result struct {
	GambitID    models.GambitID `json:"gambit_id"`
	GambitName  string          `json:"gambit_name"`
	Sims        int             `json:"sims"`
	Wins        int             `json:"wins"`
	WinRate     float64         `json:"win_rate"`
	AvgCRPDelta float64         `json:"avg_crp_delta"`
	Score       float64         `json:"composite_score"`
}

// Progress observes (done, total) simulation counts. Calls are serialised
// and done never decreases.
type Progress func(done, total int)

// Runner plays batches of challenges. It is safe for concurrent use; every
// run gets its own engine and dice.
type Runner struct {
	book      engine.GambitBook
	log       *zap.Logger
	sims      int
	workers   int
	seed      int64
	maxRounds int
}

type Option func(*Runner)

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithSims sets the number of runs per opening gambit.
func WithSims(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.sims = n
		}
	}
}

// WithWorkers bounds how many gambits are simulated at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithSeed makes every batch reproducible. 0 seeds from the clock.
func WithSeed(seed int64) Option {
	return func(r *Runner) { r.seed = seed }
}

func WithMaxRounds(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxRounds = n
		}
	}
}

func NewRunner(book engine.GambitBook, opts ...Option) *Runner {
	r := &Runner{
		book:      book,
		log:       zap.NewNop(),
		sims:      DefaultSimsPerGambit,
		workers:   runtime.GOMAXPROCS(0),
		maxRounds: DefaultMaxRounds,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// With returns a copy of r with opts applied on top.
func (r *Runner) With(opts ...Option) *Runner {
	c := *r
	for _, o := range opts {
		o(&c)
	}
	return &c
}

func (r *Runner) Sims() int { return r.sims }

// Openings lists the gambits player may open a challenge with against
// opponent, in catalogue order.
func (r *Runner) Openings(player, opponent models.Character) []models.Gambit {
	e := engine.New(r.book, player, opponent, engine.NewReplay(), engine.WithNoise(nil))
	s, _ := e.Advance(e.Start(), nil)
	return e.Legal(s, models.SidePlayer)
}

// RunAll simulates every legal opening gambit and returns the results
// sorted by composite score, best first. A panic inside a run is returned
// as an error and cancels the rest of the batch.
func (r *Runner) RunAll(ctx context.Context, player, opponent models.Character, weapon models.WeaponRef, progress Progress) ([]Result, error) {
	weapon, err := meleeRef(player, weapon)
	if err != nil {
		return nil, err
	}
	openings := r.Openings(player, opponent)
	total := len(openings) * r.sims
	seed := r.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log := r.log.With(zap.String("player", player.ID), zap.String("ai", opponent.ID))
	log.Info("simulation batch started", zap.Int("gambits", len(openings)), zap.Int("sims", total))
	start := time.Now()

	results := make([]Result, len(openings))
	var (
		mu   sync.Mutex
		done int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for gi, gambit := range openings {
		gi, gambit := gi, gambit
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = panicError(gambit.ID, p)
				}
			}()
			outcomes := make([]Outcome, 0, r.sims)
			for i := 0; i < r.sims; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				runSeed := seed + int64(gi)*7919 + int64(i)
				outcomes = append(outcomes, r.RunOne(player, opponent, gambit.ID, weapon, runSeed))
			}
			results[gi] = Analyse(outcomes, gambit, player.Stats.W+opponent.Stats.W)
			log.Debug("gambit simulated", zap.String("gambit", string(gambit.ID)),
				zap.Float64("win_rate", results[gi].WinRate))

			mu.Lock()
			defer mu.Unlock()
			done += r.sims
			if progress != nil {
				progress(done, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("simulation batch failed", zap.Error(err))
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	log.Info("simulation batch finished", zap.Duration("took", time.Since(start)))
	return results, nil
}

// RunOne plays a single challenge with real dice seeded from seed and
// summarises it.
func (r *Runner) RunOne(player, opponent models.Character, opening models.GambitID, weapon models.WeaponRef, seed int64) Outcome {
	s := r.Play(player, opponent, opening, weapon, seed)
	return Outcome{Winner: Winner(s), PlayerCRP: s.PlayerCRP, AICRP: s.AICRP, Rounds: s.Round}
}

// Play runs a challenge to its end and returns the final state, log
// included. Round 1 opens with opening, or a scored pick when opening is
// empty; later rounds the player picks like the AI does. The player
// continues at glory until the round cap. A run that still has not ended
// after the step bound is returned as it stands.
func (r *Runner) Play(player, opponent models.Character, opening models.GambitID, weapon models.WeaponRef, seed int64) models.CombatState {
	rng := rand.New(rand.NewSource(seed))
	e := engine.New(r.book, player, opponent, engine.NewReal(rng),
		engine.WithNoise(rng), engine.WithPlayerWeapon(weapon))
	scorer := ai.NewScorer(rng)

	s, waiting := e.Advance(e.Start(), nil)
	for step := 0; waiting && step < maxSteps*r.maxRounds; step++ {
		var in engine.Input
		switch s.Phase {
		case models.PhaseFaceOff:
			sit := e.Situation(s, models.SidePlayer)
			var d ai.Decision
			if s.Round == 1 && opening != "" {
				d = ai.Complete(opening, sit)
			} else {
				d = scorer.Choose(sit)
			}
			in = engine.Input{Gambit: d.Gambit, Ban: d.Ban, Prediction: d.Prediction, Sacrifice: d.Sacrifice}
		case models.PhaseGlory:
			in = engine.Input{Continue: s.Round < r.maxRounds}
			if e.Validate(s, &in) != nil {
				in = engine.Input{Continue: true}
			}
		}
		if err := e.Validate(s, &in); err != nil {
			panic(err)
		}
		s, waiting = e.Advance(s, &in)
	}
	return s
}

// Winner ranks a finished challenge: a lone survivor wins, otherwise the
// higher CRP total, otherwise a draw.
func Winner(s models.CombatState) models.Side {
	switch {
	case s.AI.IsCasualty && !s.Player.IsCasualty:
		return models.SidePlayer
	case s.Player.IsCasualty && !s.AI.IsCasualty:
		return models.SideAI
	default:
		return s.Winner()
	}
}

// Analyse folds the outcomes for one gambit into a Result. totalWounds is
// the sum of both models' starting wounds.
func Analyse(outcomes []Outcome, g models.Gambit, totalWounds int) Result {
	res := Result{GambitID: g.ID, GambitName: g.Name, Sims: len(outcomes)}
	if len(outcomes) == 0 {
		return res
	}
	delta := 0
	for _, o := range outcomes {
		if o.Winner == models.SidePlayer {
			res.Wins++
		}
		delta += o.PlayerCRP - o.AICRP
	}
	n := float64(len(outcomes))
	res.WinRate = float64(res.Wins) / n
	res.AvgCRPDelta = float64(delta) / n
	crp := 0.0
	if totalWounds > 0 {
		crp = min(max(res.AvgCRPDelta/float64(totalWounds), 0), 1)
	}
	res.Score = 0.7*res.WinRate + 0.3*crp
	return res
}

func meleeRef(c models.Character, ref models.WeaponRef) (models.WeaponRef, error) {
	if _, ok := c.Profile(ref); ok {
		return ref, nil
	}
	refs := c.MeleeRefs()
	if len(refs) == 0 {
		return models.WeaponRef{}, fmt.Errorf("%s: %w", c.ID, ErrNoMeleeProfile)
	}
	return refs[0], nil
}

func panicError(g models.GambitID, p any) error {
	if err, ok := p.(error); ok {
		return fmt.Errorf("simulating %s: %w", g, err)
	}
	return fmt.Errorf("simulating %s: %v", g, p)
}
