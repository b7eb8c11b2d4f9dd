package engine

import (
	"errors"
	"fmt"

	"github.com/pefman/w40k-challenge/internal/models"
)

// ErrDiceExhausted is raised by Replay when a step needs more dice than it holds.
var ErrDiceExhausted = errors.New("replay dice exhausted")

// InvariantError is the panic value for engine bugs. It is never returned.
type InvariantError struct {
	Round int
	Phase models.Phase
	Msg   string
	Err   error
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("engine invariant violated in round %d, phase %s: %s", e.Round, e.Phase, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvariantError) Unwrap() error { return e.Err }

func fail(s models.CombatState, format string, args ...any) {
	panic(&InvariantError{Round: s.Round, Phase: s.Phase, Msg: fmt.Sprintf(format, args...)})
}

// InputError explains why Advance refused an input.
type InputError struct {
	Phase  models.Phase
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("illegal input in %s: %s: %v", e.Phase, e.Reason, e.Err)
	}
	return fmt.Sprintf("illegal input in %s: %s", e.Phase, e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }

func reject(s models.CombatState, err error, format string, args ...any) error {
	return &InputError{Phase: s.Phase, Reason: fmt.Sprintf(format, args...), Err: err}
}

// checkState asserts the per-step invariants on wounds.
func checkState(s models.CombatState) {
	for _, side := range []models.Side{models.SidePlayer, models.SideAI} {
		c := s.Side(side)
		if c.CurrentWounds < 0 || c.CurrentWounds > c.BaseWounds {
			fail(s, "%s wounds %d outside [0,%d]", side, c.CurrentWounds, c.BaseWounds)
		}
		if c.IsCasualty != (c.CurrentWounds == 0) {
			fail(s, "%s casualty flag %v with %d wounds", side, c.IsCasualty, c.CurrentWounds)
		}
	}
}
