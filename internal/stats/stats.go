// Package stats keeps finished duels and simulation reports in memory.
package stats

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pefman/w40k-challenge/internal/models"
	"github.com/pefman/w40k-challenge/internal/sim"
)

var ErrNotFound = errors.New("not found")

// Simulation is a finished batch run.
type Simulation struct {
	ID       uuid.UUID        `json:"id"`
	Player   string           `json:"player"`
	AI       string           `json:"ai"`
	Weapon   models.WeaponRef `json:"weapon"`
	Sims     int              `json:"sims_per_gambit"`
	Results  []sim.Result     `json:"results"`
	Finished time.Time        `json:"finished"`
}

// Duel is the outcome of one interactive challenge.
type Duel struct {
	ID        uuid.UUID   `json:"id"`
	Player    string      `json:"player"`
	AI        string      `json:"ai"`
	Winner    models.Side `json:"winner"`
	PlayerCRP int         `json:"player_crp"`
	AICRP     int         `json:"ai_crp"`
	Rounds    int         `json:"rounds"`
	Finished  time.Time   `json:"finished"`
}

// Record is one character's duel history as the player side.
type Record struct {
	Character string `json:"character"`
	Duels     int    `json:"duels"`
	Wins      int    `json:"wins"`
	Losses    int    `json:"losses"`
	Draws     int    `json:"draws"`
	BestCRP   int    `json:"best_crp"`
}

type Summary struct {
	Duels       int   `json:"duels"`
	PlayerWins  int   `json:"player_wins"`
	AIWins      int   `json:"ai_wins"`
	Draws       int   `json:"draws"`
	Simulations int   `json:"simulations"`
	BestToday   *Best `json:"best_today,omitempty"`
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	sims    map[uuid.UUID]Simulation
	order   []uuid.UUID
	duels   []Duel
	records map[string]Record
	daily   map[string]Best
	now     func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.sims = map[uuid.UUID]Simulation{}
	s.order = nil
	s.duels = nil
	s.records = map[string]Record{}
	s.daily = map[string]Best{}
}

// SaveSimulation stores a finished batch, assigning an id and finish time
// when missing, and returns the stored copy.
func (s *Store) SaveSimulation(r Simulation) Simulation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Finished.IsZero() {
		r.Finished = s.now()
	}
	r.Results = slices.Clone(r.Results)
	if _, ok := s.sims[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.sims[r.ID] = r
	s.recordBest(r)
	return r
}

func (s *Store) Simulation(id uuid.UUID) (Simulation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.sims[id]
	if !ok {
		return Simulation{}, ErrNotFound
	}
	r.Results = slices.Clone(r.Results)
	return r, nil
}

// Simulations lists stored batches, oldest first.
func (s *Store) Simulations() []Simulation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Simulation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sims[id])
	}
	return out
}

// SaveDuel stores a finished duel and folds it into the player's record.
func (s *Store) SaveDuel(d Duel) Duel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Finished.IsZero() {
		d.Finished = s.now()
	}
	s.duels = append(s.duels, d)

	rec := s.records[d.Player]
	rec.Character = d.Player
	rec.Duels++
	switch d.Winner {
	case models.SidePlayer:
		rec.Wins++
	case models.SideAI:
		rec.Losses++
	default:
		rec.Draws++
	}
	rec.BestCRP = max(rec.BestCRP, d.PlayerCRP)
	s.records[d.Player] = rec
	return d
}

func (s *Store) Duels() []Duel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.duels)
}

// Record returns the duel record of a player character.
func (s *Store) Record(character string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[character]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{Duels: len(s.duels), Simulations: len(s.sims)}
	for _, d := range s.duels {
		switch d.Winner {
		case models.SidePlayer:
			sum.PlayerWins++
		case models.SideAI:
			sum.AIWins++
		default:
			sum.Draws++
		}
	}
	if b, ok := s.daily[dateKey(s.now())]; ok {
		sum.BestToday = &b
	}
	return sum
}

// Reset drops everything.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}
