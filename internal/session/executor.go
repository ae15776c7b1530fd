package session

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tactics-backend/internal/game"
)

// executeAction runs the validation chain for one player action. Checks
// fail fast in a fixed order; only after all of them pass does the
// simulator see the action.
func (s *Session) executeAction(userID string, act game.Action) *Error {
	if s.status != StatusPlaying {
		return ErrGameNotStarted
	}
	if s.state == nil {
		return ErrGameStateNotInitialized
	}
	slot := s.slotByUser(userID)
	if slot == nil || slot.UnitID == "" {
		return ErrPlayerNotInGame
	}
	if slot.UnitID != s.turns.Current() {
		return ErrNotYourTurn
	}
	if act.UnitID != "" && act.UnitID != slot.UnitID {
		return ErrInvalidUnit
	}
	act.UnitID = slot.UnitID

	ns, events, err := s.safeExecute(act)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return e
		}
		// Simulator rejection; its reason string travels to the client.
		return InvalidAction(err.Error())
	}
	s.applyResult(ns, events)
	return nil
}

// safeExecute shields the session from a panicking simulator. The
// authoritative state is untouched either way: the simulator returns a
// fresh state and we only install it on success.
func (s *Session) safeExecute(act game.Action) (ns *game.GameState, events []game.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("simulator panic",
				zap.String("action", string(act.Type)),
				zap.String("unit", act.UnitID),
				zap.Any("panic", r))
			ns, events = nil, nil
			err = ExecutionError(fmt.Sprint(r))
		}
	}()
	return s.sim.Execute(act, s.state)
}

// applyResult installs a successful simulator result: advance the turn if
// the action ended one, commit (version bump, persist, delta broadcast),
// then check for a decided game.
func (s *Session) applyResult(ns *game.GameState, events []game.Event) {
	turnChanged := game.ContainsEvent(events, game.EvtTurnChanged) && ns.Combat.Phase == game.PhaseCombat
	var next string
	var newRound bool
	if turnChanged {
		adv := s.turns.End()
		next, newRound = adv.NextUnitID, adv.NewRound
		ns.Combat.TurnIndex = s.turns.Cursor
		ns.Combat.TurnNumber = s.turns.TurnCount
		ns.Combat.RoundNumber = s.turns.Round
	}

	s.commit(s.state, ns, events)

	if done, phase := ns.Outcome(); done || ns.Combat.Phase == game.PhaseVictory || ns.Combat.Phase == game.PhaseDefeat {
		if ns.Combat.Phase == game.PhaseVictory || ns.Combat.Phase == game.PhaseDefeat {
			phase = ns.Combat.Phase
		}
		s.state.Combat.Phase = phase
		if err := s.endGame(string(phase)); err != nil {
			s.log.Warn("auto end", zap.String("code", err.Code))
		}
		return
	}

	if turnChanged {
		s.announceTurn(next, newRound)
	}
}

// forceEndTurn synthesizes an end_turn for the current unit, as if its
// owner had sent one. Used by the turn timeout, the disconnect grace
// expiry, and ownerless monster turns.
func (s *Session) forceEndTurn(reason string) {
	if s.status != StatusPlaying || s.state == nil {
		return
	}
	cur := s.turns.Current()
	if cur == "" {
		return
	}
	ns, events, err := s.safeExecute(game.Action{Type: game.ActionEndTurn, UnitID: cur})
	if err != nil {
		s.log.Error("forced end_turn failed", zap.String("unit", cur), zap.Error(err))
		return
	}
	s.log.Debug("forced end_turn", zap.String("unit", cur), zap.String("reason", reason))
	s.applyResult(ns, events)
}
