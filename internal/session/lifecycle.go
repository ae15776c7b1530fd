package session

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tactics-backend/internal/game"
	"github.com/DoyleJ11/tactics-backend/internal/store"
	"github.com/DoyleJ11/tactics-backend/internal/turn"
	"github.com/DoyleJ11/tactics-backend/pkg/types"
)

// Status transitions are monotonic except playing<->paused; ended is
// terminal. Invalid attempts fail loudly, never silently.

func (s *Session) handleJoin(msg Join) error {
	// The DM owns the session but never takes a player slot; their join
	// just registers an outbox.
	if msg.UserID == s.ownerID {
		// A rejoin on the same connection reuses the registered channel;
		// closing it would make the re-register send on a closed channel.
		if old, ok := s.clients[msg.UserID]; ok && old != msg.Outbox {
			close(old)
		}
		s.clients[msg.UserID] = msg.Outbox
		s.sendSnapshot(msg.UserID)
		return nil
	}
	// A returning user on the join path is a reconnect, not a new slot.
	if slot := s.slotByUser(msg.UserID); slot != nil {
		return s.handleReconnect(Reconnect{UserID: msg.UserID, Outbox: msg.Outbox, Reply: nil})
	}
	if msg.CharacterID == "" {
		return ErrCharacterNotFound
	}
	if s.status != StatusLobby && !s.cfg.AllowLateJoin {
		return ErrGameAlreadyStarted
	}
	if s.status == StatusEnded {
		return ErrGameAlreadyStarted
	}
	if len(s.players) >= s.cfg.MaxPlayers {
		return ErrGameFull
	}

	now := time.Now()
	conn := ConnConnected
	if s.status != StatusLobby {
		// Late joiners spectate until the DM hands them a unit.
		conn = ConnSpectating
	}
	s.players = append(s.players, &PlayerSlot{
		UserID:      msg.UserID,
		CharacterID: msg.CharacterID,
		Connection:  conn,
		JoinedAt:    now,
		LastSeen:    now,
	})
	s.clients[msg.UserID] = msg.Outbox

	s.sendSnapshot(msg.UserID)
	s.broadcast(types.ServerMessage{Type: types.MsgPlayerJoined, UserID: msg.UserID})
	s.persist(nil)
	return nil
}

func (s *Session) handleLeave(userID string) {
	slot := s.slotByUser(userID)
	if slot == nil {
		return
	}
	if ch, ok := s.clients[userID]; ok {
		close(ch)
		delete(s.clients, userID)
	}

	if s.status == StatusLobby {
		for i, p := range s.players {
			if p.UserID == userID {
				s.players = append(s.players[:i], s.players[i+1:]...)
				break
			}
		}
	} else {
		// Mid-game the unit binding survives; the slot just goes dark.
		slot.Connection = ConnDisconnected
		slot.LastSeen = time.Now()
	}
	s.broadcast(types.ServerMessage{Type: types.MsgPlayerLeft, UserID: userID})
	s.persist(nil)
}

func (s *Session) handleDisconnect(userID string) {
	slot := s.slotByUser(userID)
	if slot == nil {
		return
	}
	slot.Connection = ConnDisconnected
	slot.LastSeen = time.Now()
	if ch, ok := s.clients[userID]; ok {
		close(ch)
		delete(s.clients, userID)
	}
	s.broadcast(types.ServerMessage{Type: types.MsgPlayerLeft, UserID: userID})

	// Only the current turn's owner gets a grace timer; everyone else can
	// take as long as they like.
	if s.status == StatusPlaying && slot.UnitID != "" && slot.UnitID == s.turns.Current() {
		s.armGrace(userID)
	}
}

func (s *Session) handleReconnect(msg Reconnect) error {
	slot := s.slotByUser(msg.UserID)
	if slot == nil {
		return ErrPlayerNotInGame
	}
	// Same-channel rejoin is just a resync request; only a genuinely new
	// connection displaces the old one.
	if old, ok := s.clients[msg.UserID]; ok && old != msg.Outbox {
		close(old)
	}
	s.clients[msg.UserID] = msg.Outbox
	if slot.Connection == ConnDisconnected {
		slot.Connection = ConnConnected
	}
	slot.LastSeen = time.Now()

	if s.graceUser == msg.UserID {
		// Came back inside the window; the armed grace timer is now stale.
		s.graceGen++
		s.graceUser = ""
	}

	// Always a full snapshot: the client may have missed any number of
	// deltas while gone.
	s.sendSnapshot(msg.UserID)
	s.broadcast(types.ServerMessage{Type: types.MsgPlayerJoined, UserID: msg.UserID})
	return nil
}

func (s *Session) startGame() *Error {
	if s.status != StatusLobby {
		return ErrGameAlreadyStarted
	}

	seed := s.cfg.MapSeed
	m := s.boot.GenerateMap(seed, s.cfg.MapWidth, s.cfg.MapHeight)

	active := make([]*PlayerSlot, 0, len(s.players))
	for _, p := range s.players {
		if p.Connection != ConnSpectating {
			active = append(active, p)
		}
	}
	playerUnits := s.boot.GenerateUnits(len(active), game.TeamPlayers, seed)
	for i := range playerUnits {
		// Unit ids bind to users at start and never change after.
		playerUnits[i].ID = "player-" + active[i].UserID
		if active[i].CharacterID != "" {
			playerUnits[i].Name = active[i].CharacterID
		}
		active[i].UnitID = playerUnits[i].ID
	}
	monsters := s.boot.GenerateUnits(monsterCount(len(active), s.cfg.Difficulty), game.TeamMonsters, seed+1)

	st := &game.GameState{Map: m, Units: append(playerUnits, monsters...)}
	st, events := s.boot.StartCombat(st, seed+2)

	s.state = st
	s.turns = turn.NewManager(st.Combat.InitiativeOrder)
	s.status = StatusPlaying
	s.startedAt = time.Now()
	s.version = 1

	s.persist(events)
	s.broadcastSnapshots()
	s.broadcast(types.ServerMessage{Type: types.MsgEvents, Events: events})
	s.broadcast(types.ServerMessage{Type: types.MsgTurnChange, UnitID: s.turns.Current(), Round: s.turns.Round})
	s.startTurnCycle(s.turns.Current())

	s.log.Info("game started",
		zap.Int("players", len(active)),
		zap.Int("units", len(st.Units)),
		zap.String("first_unit", s.turns.Current()))
	return nil
}

func monsterCount(players int, difficulty string) int {
	switch difficulty {
	case "easy":
		return players
	case "hard":
		return players * 2
	default:
		return players + players/2
	}
}

func (s *Session) pause() *Error {
	if s.status != StatusPlaying {
		return ErrGameNotStarted
	}
	s.status = StatusPaused
	s.cancelTurnTimer()
	s.broadcast(types.ServerMessage{Type: types.MsgEvents, Events: []game.Event{adminEvent("pause_game")}})
	s.persist(nil)
	return nil
}

func (s *Session) resume() *Error {
	if s.status != StatusPaused {
		return ErrGameNotStarted
	}
	s.status = StatusPlaying
	s.broadcast(types.ServerMessage{Type: types.MsgEvents, Events: []game.Event{adminEvent("resume_game")}})
	s.startTurnCycle(s.turns.Current())
	s.persist(nil)
	return nil
}

func (s *Session) endGame(result string) *Error {
	if s.status != StatusPlaying && s.status != StatusPaused {
		return ErrGameNotStarted
	}
	s.status = StatusEnded
	s.endedAt = time.Now()
	s.cancelTurnTimer()
	s.graceGen++

	s.persist([]game.Event{adminEvent("end_game " + result)})
	s.broadcast(types.ServerMessage{Type: types.MsgGameEnded, Result: result})
	s.log.Info("game ended", zap.String("result", result))
	return nil
}

func (s *Session) skipTurn() *Error {
	if s.status != StatusPlaying {
		return ErrGameNotStarted
	}
	if s.state == nil {
		return ErrGameStateNotInitialized
	}
	skipped := s.turns.Current()
	var adv turn.Advance
	err := s.mutateState(func(ns *game.GameState) (*Error, []game.Event) {
		adv = s.turns.End()
		ns.Combat.TurnIndex = s.turns.Cursor
		ns.Combat.TurnNumber = s.turns.TurnCount
		ns.Combat.RoundNumber = s.turns.Round
		return nil, []game.Event{adminEvent("skip_turn " + skipped)}
	})
	if err != nil {
		return err
	}
	if s.status == StatusPlaying {
		s.announceTurn(adv.NextUnitID, adv.NewRound)
	}
	return nil
}

func (s *Session) kickPlayer(target string) *Error {
	slot := s.slotByUser(target)
	if slot == nil {
		return ErrPlayerNotInGame
	}
	if ch, ok := s.clients[target]; ok {
		close(ch)
		delete(s.clients, target)
	}
	unitID := slot.UnitID
	for i, p := range s.players {
		if p.UserID == target {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}
	s.broadcast(types.ServerMessage{Type: types.MsgPlayerLeft, UserID: target})

	if unitID == "" || s.state == nil {
		s.persist(nil)
		return nil
	}
	var wasCurrent bool
	err := s.mutateState(func(ns *game.GameState) (*Error, []game.Event) {
		for i := range ns.Units {
			if ns.Units[i].ID == unitID {
				ns.Units = append(ns.Units[:i], ns.Units[i+1:]...)
				break
			}
		}
		wasCurrent = s.turns.Current() == unitID
		s.turns.Remove(unitID)
		ns.Combat.InitiativeOrder = s.turns.Order
		ns.Combat.TurnIndex = s.turns.Cursor
		return nil, []game.Event{adminEvent("kick_player " + target)}
	})
	if err != nil {
		return err
	}
	s.afterRemoval(wasCurrent)
	return nil
}

// afterRemoval re-seats the turn cycle when the unit that just left the
// initiative order owned the current turn. Its armed timer must never fire
// against whoever inherits the turn.
func (s *Session) afterRemoval(wasCurrent bool) {
	if !wasCurrent || s.status != StatusPlaying {
		return
	}
	if len(s.turns.Order) == 0 {
		s.cancelTurnTimer()
		return
	}
	s.announceTurn(s.turns.Current(), false)
}

// Rehydrate builds a live session back out of its last persisted record.
// Former clients are gone; everyone reconnects and resyncs from a fresh
// snapshot.
func Rehydrate(parent context.Context, rec store.SessionRecord, deps Deps) (*Session, error) {
	var cfg Config
	if len(rec.Config) > 0 {
		if err := json.Unmarshal(rec.Config, &cfg); err != nil {
			return nil, err
		}
	}
	s := New(parent, rec.ID, rec.JoinCode, rec.OwnerID, cfg, deps)
	done := make(chan error, 1)
	s.inbox <- restore{rec: rec, done: done}
	return s, <-done
}

func (s *Session) handleRestore(rec store.SessionRecord) error {
	s.status = Status(rec.Status)
	s.version = rec.Version
	if len(rec.Players) > 0 {
		if err := json.Unmarshal(rec.Players, &s.players); err != nil {
			return err
		}
	}
	// Whoever was connected before the restart isn't anymore.
	for _, p := range s.players {
		if p.Connection == ConnConnected {
			p.Connection = ConnDisconnected
		}
	}
	if len(rec.State) > 0 {
		st := &game.GameState{}
		if err := json.Unmarshal(rec.State, st); err != nil {
			return err
		}
		s.state = st
		s.turns = turn.Resume(st.Combat.InitiativeOrder, st.Combat.TurnIndex, st.Combat.RoundNumber, st.Combat.TurnNumber)
	}
	if s.status == StatusPlaying {
		s.startTurnCycle(s.turns.Current())
	}
	s.log.Info("session rehydrated", zap.String("status", rec.Status), zap.Int("version", rec.Version))
	return nil
}
