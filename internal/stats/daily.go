package stats

import (
	"time"

	"github.com/google/uuid"

	"github.com/pefman/w40k-challenge/internal/models"
)

// Best is the highest-scoring opening gambit seen in a day's simulations.
type Best struct {
	Date         string          `json:"date"`
	SimulationID uuid.UUID       `json:"simulation_id"`
	Player       string          `json:"player"`
	AI           string          `json:"ai"`
	Gambit       models.GambitID `json:"gambit"`
	GambitName   string          `json:"gambit_name"`
	Score        float64         `json:"composite_score"`
	WinRate      float64         `json:"win_rate"`
}

// dateKey buckets by UTC day.
func dateKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// recordBest replaces the day's best when r beats it on score, ties going
// to the higher win rate. Callers hold s.mu.
func (s *Store) recordBest(r Simulation) {
	if len(r.Results) == 0 {
		return
	}
	top := r.Results[0]
	for _, res := range r.Results[1:] {
		if res.Score > top.Score {
			top = res
		}
	}
	key := dateKey(r.Finished)
	cur, ok := s.daily[key]
	if ok && (top.Score < cur.Score || (top.Score == cur.Score && top.WinRate <= cur.WinRate)) {
		return
	}
	s.daily[key] = Best{
		Date:         key,
		SimulationID: r.ID,
		Player:       r.Player,
		AI:           r.AI,
		Gambit:       top.GambitID,
		GambitName:   top.GambitName,
		Score:        top.Score,
		WinRate:      top.WinRate,
	}
}

// BestToday returns today's best opening, if any simulation finished today.
func (s *Store) BestToday() (Best, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.daily[dateKey(s.now())]
	return b, ok
}

// ResetDaily clears the per-day bests only.
func (s *Store) ResetDaily() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.daily)
}
