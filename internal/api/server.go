// Package api serves the catalogue, batch simulations and interactive
// duels over HTTP and websockets.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pefman/w40k-challenge/internal/catalog"
	"github.com/pefman/w40k-challenge/internal/sim"
	"github.com/pefman/w40k-challenge/internal/stats"
)

// MaxSimsPerGambit caps what a single request may ask for.
const MaxSimsPerGambit = 5000

// Server owns the running simulation jobs. Duel sessions live on their
// websocket and need no bookkeeping.
type Server struct {
	book   *catalog.Catalog
	runner *sim.Runner
	store  *stats.Store
	log    *zap.Logger
	seed   int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	jobs map[uuid.UUID]*job
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithDuelSeed fixes the dice of every duel session, for tests. 0 seeds
// each session from the clock.
func WithDuelSeed(seed int64) Option {
	return func(s *Server) { s.seed = seed }
}

func NewServer(book *catalog.Catalog, runner *sim.Runner, store *stats.Store, opts ...Option) *Server {
	s := &Server{
		book:   book,
		runner: runner,
		store:  store,
		log:    zap.NewNop(),
		jobs:   map[uuid.UUID]*job{},
	}
	for _, o := range opts {
		o(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Close cancels running jobs and waits for them to stop.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(withCORS)
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/characters", s.handleCharacters).Methods(http.MethodGet)
	api.HandleFunc("/characters/{id}", s.handleCharacter).Methods(http.MethodGet)
	api.HandleFunc("/characters/{id}/gambits", s.handleCharacterGambits).Methods(http.MethodGet)
	api.HandleFunc("/gambits", s.handleGambits).Methods(http.MethodGet)
	api.HandleFunc("/simulations", s.handleStartSimulation).Methods(http.MethodPost)
	api.HandleFunc("/simulations/{id}", s.handleSimulation).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleResetStats).Methods(http.MethodDelete)
	api.HandleFunc("/stats/characters/{id}", s.handleCharacterRecord).Methods(http.MethodGet)
	api.HandleFunc("/stats/simulations", s.handleStoredSimulations).Methods(http.MethodGet)

	r.HandleFunc("/ws/simulations/{id}", s.handleSimulationWS).Methods(http.MethodGet)
	r.HandleFunc("/ws/duel", s.handleDuelWS).Methods(http.MethodGet)
	return r
}

// CharacterSummary is the list view of a character.
type CharacterSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Faction string `json:"faction"`
	W       int    `json:"W"`
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	faction := r.URL.Query().Get("faction")
	out := []CharacterSummary{}
	for _, c := range s.book.Characters() {
		if faction != "" && c.Faction != faction {
			continue
		}
		out = append(out, CharacterSummary{ID: c.ID, Name: c.Name, Faction: c.Faction, W: c.Stats.W})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	c, err := s.book.Character(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCharacterGambits(w http.ResponseWriter, r *http.Request) {
	c, err := s.book.Character(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.book.Available(c))
}

func (s *Server) handleGambits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.book.Gambits())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: http.StatusText(code), Message: msg, Status: code})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownCharacter), errors.Is(err, stats.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
