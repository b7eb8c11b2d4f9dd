package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Summary())
}

// DELETE /api/stats
func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	s.store.Reset()
	s.log.Info("stats reset")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/stats/characters/{id}
func (s *Server) handleCharacterRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Record(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), "no duels recorded")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /api/stats/simulations
func (s *Server) handleStoredSimulations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Simulations())
}
