package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pefman/w40k-challenge/internal/models"
	"github.com/pefman/w40k-challenge/internal/sim"
	"github.com/pefman/w40k-challenge/internal/stats"
)

type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// SimulationRequest starts a batch. Sims 0 uses the server default.
type SimulationRequest struct {
	Player  string `json:"player"`
	AI      string `json:"ai"`
	Weapon  int    `json:"weapon"`
	Profile int    `json:"profile"`
	Sims    int    `json:"sims,omitempty"`
}

// SimulationStatus is a job snapshot, as returned by the API and streamed
// over the websocket.
type SimulationStatus struct {
	ID      uuid.UUID    `json:"id"`
	Status  JobStatus    `json:"status"`
	Player  string       `json:"player"`
	AI      string       `json:"ai"`
	Done    int          `json:"done"`
	Total   int          `json:"total"`
	Results []sim.Result `json:"results,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func (s SimulationStatus) finished() bool { return s.Status != JobRunning }

// job broadcasts its changes by closing and replacing changed.
type job struct {
	mu      sync.Mutex
	status  SimulationStatus
	changed chan struct{}
}

func newJob(st SimulationStatus) *job {
	return &job{status: st, changed: make(chan struct{})}
}

func (j *job) update(f func(*SimulationStatus)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	f(&j.status)
	close(j.changed)
	j.changed = make(chan struct{})
}

func (j *job) snapshot() (SimulationStatus, <-chan struct{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := j.status
	return st, j.changed
}

func (s *Server) job(id uuid.UUID) (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

// StartSimulation validates req and runs it in the background.
func (s *Server) StartSimulation(req SimulationRequest) (SimulationStatus, error) {
	player, err := s.book.Character(req.Player)
	if err != nil {
		return SimulationStatus{}, err
	}
	opponent, err := s.book.Character(req.AI)
	if err != nil {
		return SimulationStatus{}, err
	}
	ref := models.WeaponRef{Weapon: req.Weapon, Profile: req.Profile}
	if _, ok := player.Profile(ref); !ok {
		return SimulationStatus{}, fmt.Errorf("%s has no melee profile %d/%d", player.ID, req.Weapon, req.Profile)
	}
	if req.Sims < 0 || req.Sims > MaxSimsPerGambit {
		return SimulationStatus{}, fmt.Errorf("sims must be at most %d", MaxSimsPerGambit)
	}
	runner := s.runner.With(sim.WithSims(req.Sims))

	st := SimulationStatus{
		ID:     uuid.New(),
		Status: JobRunning,
		Player: player.ID,
		AI:     opponent.ID,
		Total:  len(runner.Openings(player, opponent)) * runner.Sims(),
	}
	j := newJob(st)
	s.mu.Lock()
	s.jobs[st.ID] = j
	s.mu.Unlock()

	log := s.log.With(zap.Stringer("job", st.ID))
	log.Info("simulation started", zap.String("player", player.ID), zap.String("ai", opponent.ID),
		zap.Int("sims", st.Total))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		start := time.Now()
		results, err := runner.RunAll(s.ctx, player, opponent, ref, func(done, total int) {
			j.update(func(st *SimulationStatus) { st.Done, st.Total = done, total })
		})
		if err != nil {
			log.Error("simulation failed", zap.Error(err))
			j.update(func(st *SimulationStatus) { st.Status, st.Error = JobFailed, err.Error() })
			return
		}
		s.store.SaveSimulation(stats.Simulation{
			ID: st.ID, Player: player.ID, AI: opponent.ID, Weapon: ref,
			Sims: runner.Sims(), Results: results,
		})
		j.update(func(st *SimulationStatus) { st.Status, st.Results = JobDone, results })
		log.Info("simulation finished", zap.Duration("took", time.Since(start)))
	}()
	return st, nil
}

func (s *Server) handleStartSimulation(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	st, err := s.StartSimulation(req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	j, ok := s.job(id)
	if !ok {
		// jobs do not survive a restart; the store may still have it
		rep, err := s.store.Simulation(id)
		if err != nil {
			writeError(w, statusFor(err), "simulation not found")
			return
		}
		writeJSON(w, http.StatusOK, SimulationStatus{
			ID: rep.ID, Status: JobDone, Player: rep.Player, AI: rep.AI, Results: rep.Results,
		})
		return
	}
	st, _ := j.snapshot()
	writeJSON(w, http.StatusOK, st)
}

// handleSimulationWS streams a snapshot on every change until the job
// finishes, then closes.
func (s *Server) handleSimulationWS(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	j, ok := s.job(id)
	if !ok {
		writeError(w, http.StatusNotFound, "simulation not found")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		st, changed := j.snapshot()
		if err := conn.WriteJSON(wsMsg{Type: "progress", Data: st}); err != nil {
			s.log.Debug("ws write failed", zap.Stringer("job", id), zap.Error(err))
			return
		}
		if st.finished() {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(st.Status)))
			return
		}
		select {
		case <-changed:
		case <-r.Context().Done():
			return
		case <-s.ctx.Done():
			return
		}
	}
}
