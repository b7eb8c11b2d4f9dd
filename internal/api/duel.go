package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pefman/w40k-challenge/internal/engine"
	"github.com/pefman/w40k-challenge/internal/models"
	"github.com/pefman/w40k-challenge/internal/sim"
	"github.com/pefman/w40k-challenge/internal/stats"
)

// wsMsg is the envelope for every websocket message in both directions.
type wsMsg struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type clientIn struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StartDuel opens a session. Weapon pre-selects the player's profile.
type StartDuel struct {
	Player string            `json:"player"`
	AI     string            `json:"ai"`
	Weapon *models.WeaponRef `json:"weapon,omitempty"`
	Seed   int64             `json:"seed,omitempty"`
}

type GambitChoice struct {
	Gambit     models.GambitID   `json:"gambit"`
	Ban        models.GambitID   `json:"ban,omitempty"`
	Prediction models.Prediction `json:"prediction,omitempty"`
	Sacrifice  int               `json:"sacrifice,omitempty"`
}

type GloryChoice struct {
	Continue bool `json:"continue"`
	Withdraw bool `json:"withdraw"`
}

// DuelState is pushed after every accepted message.
type DuelState struct {
	Session uuid.UUID          `json:"session"`
	State   models.CombatState `json:"state"`
	Waiting bool               `json:"waiting"`
	// Legal is filled while the player picks a gambit.
	Legal  []models.Gambit `json:"legal,omitempty"`
	Winner *models.Side    `json:"winner,omitempty"`
}

type duelError struct {
	Message string `json:"message"`
}

var errNoSession = errors.New("send start first")

// duel is one websocket session. It is only touched by its reader goroutine.
type duel struct {
	id    uuid.UUID
	eng   *engine.Engine
	state models.CombatState
	log   *zap.Logger
	saved bool
}

func (s *Server) handleDuelWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	s.log.Debug("duel connected", zap.String("from", r.RemoteAddr))

	var d *duel
	for {
		var in clientIn
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("duel read failed", zap.Error(err))
			}
			return
		}
		next, err := s.duelStep(d, in)
		if err != nil {
			if werr := conn.WriteJSON(wsMsg{Type: "error", Data: duelError{Message: err.Error()}}); werr != nil {
				return
			}
			continue
		}
		d = next
		if err := conn.WriteJSON(wsMsg{Type: "state", Data: d.view()}); err != nil {
			return
		}
		if d.state.Phase == models.PhaseEnded && !d.saved {
			d.saved = true
			s.saveDuel(d)
		}
	}
}

// duelStep applies one client message. An engine panic ends the session
// with an error instead of taking the server down.
func (s *Server) duelStep(d *duel, in clientIn) (next *duel, err error) {
	defer func() {
		if p := recover(); p != nil {
			if d != nil {
				d.log.Error("duel aborted", zap.Any("panic", p))
			}
			next, err = nil, fmt.Errorf("duel aborted: %v", p)
		}
	}()

	if in.Type == "start" {
		var req StartDuel
		if err := json.Unmarshal(in.Data, &req); err != nil {
			return nil, fmt.Errorf("invalid start: %w", err)
		}
		return s.startDuel(req)
	}
	if d == nil {
		return nil, errNoSession
	}

	var input engine.Input
	switch in.Type {
	case "gambit":
		var c GambitChoice
		if err := json.Unmarshal(in.Data, &c); err != nil {
			return nil, fmt.Errorf("invalid gambit: %w", err)
		}
		input = engine.Input{Gambit: c.Gambit, Ban: c.Ban, Prediction: c.Prediction, Sacrifice: c.Sacrifice}
	case "weapon":
		var ref models.WeaponRef
		if err := json.Unmarshal(in.Data, &ref); err != nil {
			return nil, fmt.Errorf("invalid weapon: %w", err)
		}
		input = engine.Input{Weapon: &ref}
	case "glory":
		var c GloryChoice
		if err := json.Unmarshal(in.Data, &c); err != nil {
			return nil, fmt.Errorf("invalid glory choice: %w", err)
		}
		input = engine.Input{Continue: c.Continue, Withdraw: c.Withdraw}
	default:
		return nil, fmt.Errorf("unknown message type %q", in.Type)
	}

	if err := d.eng.Validate(d.state, &input); err != nil {
		d.log.Info("input rejected", zap.String("type", in.Type), zap.Error(err))
		return nil, err
	}
	d.state, _ = d.eng.Advance(d.state, &input)
	return d, nil
}

func (s *Server) startDuel(req StartDuel) (*duel, error) {
	player, err := s.book.Character(req.Player)
	if err != nil {
		return nil, err
	}
	opponent, err := s.book.Character(req.AI)
	if err != nil {
		return nil, err
	}
	seed := req.Seed
	if seed == 0 {
		seed = s.seed
	}
	dice := engine.Seeded(seed)
	opts := []engine.Option{}
	if req.Weapon != nil {
		if _, ok := player.Profile(*req.Weapon); !ok {
			return nil, fmt.Errorf("%s has no melee profile %d/%d", player.ID, req.Weapon.Weapon, req.Weapon.Profile)
		}
		opts = append(opts, engine.WithPlayerWeapon(*req.Weapon))
	}
	if seed != 0 {
		opts = append(opts, engine.WithNoise(rand.New(rand.NewSource(seed+1))))
	}

	d := &duel{id: uuid.New(), eng: engine.New(s.book, player, opponent, dice, opts...)}
	d.log = s.log.With(zap.Stringer("session", d.id), zap.String("player", player.ID), zap.String("ai", opponent.ID))
	d.state, _ = d.eng.Advance(d.eng.Start(), nil)
	d.log.Info("duel started")
	return d, nil
}

func (d *duel) view() DuelState {
	v := DuelState{Session: d.id, State: d.state, Waiting: d.state.Phase != models.PhaseEnded}
	switch d.state.Phase {
	case models.PhaseFaceOff:
		v.Legal = d.eng.Legal(d.state, models.SidePlayer)
	case models.PhaseEnded:
		w := sim.Winner(d.state)
		v.Winner = &w
	}
	return v
}

func (s *Server) saveDuel(d *duel) {
	st := d.state
	rec := s.store.SaveDuel(stats.Duel{
		ID:        d.id,
		Player:    st.Player.CharacterID,
		AI:        st.AI.CharacterID,
		Winner:    sim.Winner(st),
		PlayerCRP: st.PlayerCRP,
		AICRP:     st.AICRP,
		Rounds:    st.Round,
		Finished:  time.Now(),
	})
	d.log.Info("duel finished", zap.String("winner", string(rec.Winner)),
		zap.Int("player_crp", rec.PlayerCRP), zap.Int("ai_crp", rec.AICRP))
}
