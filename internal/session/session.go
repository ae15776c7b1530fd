// Package session owns one game session per goroutine. All reads and
// writes of authoritative state go through the actor's inbox, so actions,
// DM commands, and timer fires share a single total order and one event
// log per session.
package session

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tactics-backend/internal/game"
	"github.com/DoyleJ11/tactics-backend/internal/statesync"
	"github.com/DoyleJ11/tactics-backend/internal/store"
	"github.com/DoyleJ11/tactics-backend/internal/turn"
	"github.com/DoyleJ11/tactics-backend/pkg/types"
)

type Status string

const (
	StatusLobby   Status = "lobby"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

type ConnStatus string

const (
	ConnConnected    ConnStatus = "connected"
	ConnDisconnected ConnStatus = "disconnected"
	ConnSpectating   ConnStatus = "spectating"
)

type Config struct {
	MaxPlayers          int           `json:"max_players"`
	MapSeed             int64         `json:"map_seed"`
	MapWidth            int           `json:"map_width"`
	MapHeight           int           `json:"map_height"`
	Difficulty          string        `json:"difficulty"`
	TurnTimeLimit       time.Duration `json:"turn_time_limit"`
	AllowLateJoin       bool          `json:"allow_late_join"`
	FullSyncEveryRounds int           `json:"full_sync_every_rounds"`
	MonsterDelay        time.Duration `json:"monster_delay"`
	DisconnectGrace     time.Duration `json:"disconnect_grace"`
}

func (c Config) withDefaults() Config {
	if c.MapWidth == 0 {
		c.MapWidth = 20
	}
	if c.MapHeight == 0 {
		c.MapHeight = 15
	}
	if c.Difficulty == "" {
		c.Difficulty = "normal"
	}
	if c.FullSyncEveryRounds == 0 {
		c.FullSyncEveryRounds = 5
	}
	if c.MonsterDelay == 0 {
		c.MonsterDelay = time.Second
	}
	if c.DisconnectGrace == 0 {
		c.DisconnectGrace = 30 * time.Second
	}
	return c
}

func (c Config) Validate() *Error {
	if c.MaxPlayers < 2 || c.MaxPlayers > 8 {
		return ErrInvalidConfig
	}
	return nil
}

type PlayerSlot struct {
	UserID      string     `json:"user_id"`
	CharacterID string     `json:"character_id"`
	UnitID      string     `json:"unit_id,omitempty"`
	Connection  ConnStatus `json:"connection"`
	Ready       bool       `json:"ready"`
	JoinedAt    time.Time  `json:"joined_at"`
	LastSeen    time.Time  `json:"last_seen"`
}

type Deps struct {
	Sim   game.Simulator
	Boot  game.Bootstrap
	Store store.Store
	Log   *zap.Logger
}

type Session struct {
	inbox chan Msg

	id       string
	joinCode string
	ownerID  string
	cfg      Config

	sim  game.Simulator
	boot game.Bootstrap
	st   store.Store
	log  *zap.Logger

	status     Status
	players    []*PlayerSlot
	state      *game.GameState
	version    int
	eventCount int
	turns      *turn.Manager

	clients map[string]chan types.ServerMessage

	// timerGen guards turn/monster timers, graceGen the disconnect grace
	// timer. Bumping a counter invalidates anything already armed.
	timerGen  int
	graceGen  int
	graceUser string

	createdAt time.Time
	startedAt time.Time
	endedAt   time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, id, joinCode, ownerID string, cfg Config, deps Deps) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:     make(chan Msg, 64),
		id:        id,
		joinCode:  joinCode,
		ownerID:   ownerID,
		cfg:       cfg.withDefaults(),
		sim:       deps.Sim,
		boot:      deps.Boot,
		st:        deps.Store,
		log:       deps.Log.With(zap.String("session_id", id)),
		status:    StatusLobby,
		turns:     turn.NewManager(nil),
		clients:   make(map[string]chan types.ServerMessage),
		createdAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }
func (s *Session) ID() string       { return s.id }
func (s *Session) JoinCode() string { return s.joinCode }
func (s *Session) OwnerID() string  { return s.ownerID }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- s.handleJoin(msg)

			case Leave:
				s.handleLeave(msg.UserID)

			case Ready:
				if slot := s.slotByUser(msg.UserID); slot == nil {
					s.sendError(msg.UserID, msg.Seq, ErrPlayerNotInGame)
				} else {
					slot.Ready = true
					s.broadcast(types.ServerMessage{
						Type:   types.MsgEvents,
						Events: []game.Event{{Type: evtPlayerReady, Detail: msg.UserID}},
					})
					s.sendTo(msg.UserID, types.ServerMessage{Type: types.MsgAck, Seq: msg.Seq})
				}

			case FromClient:
				if err := s.executeAction(msg.UserID, msg.Action); err != nil {
					s.sendError(msg.UserID, msg.Seq, err)
				}

			case FromDM:
				if err := s.handleDm(msg.UserID, msg.Seq, msg.Cmd); err != nil {
					s.sendError(msg.UserID, msg.Seq, err)
				} else {
					s.sendTo(msg.UserID, types.ServerMessage{Type: types.MsgAck, Seq: msg.Seq})
				}

			case RequestFullSync:
				s.sendSnapshot(msg.UserID)

			case Disconnect:
				s.handleDisconnect(msg.UserID)

			case Reconnect:
				msg.Reply <- s.handleReconnect(msg)

			case timerFired:
				if msg.gen == s.timerGen && s.status == StatusPlaying {
					s.forceEndTurn("turn timer expired")
				}

			case graceExpired:
				s.handleGraceExpired(msg)

			case restore:
				msg.done <- s.handleRestore(msg.rec)

			case GetView:
				msg.Reply <- s.view()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

const evtPlayerReady game.EventType = "player_ready"

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) view() View {
	v := View{
		Status:      s.status,
		Version:     s.version,
		NumClients:  len(s.clients),
		CurrentUnit: s.turns.Current(),
		Round:       s.turns.Round,
		EventCount:  s.eventCount,
	}
	for _, p := range s.players {
		v.Players = append(v.Players, *p)
	}
	if s.state != nil {
		v.State = s.state.Clone()
	}
	return v
}

func (s *Session) slotByUser(userID string) *PlayerSlot {
	for _, p := range s.players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (s *Session) slotByUnit(unitID string) *PlayerSlot {
	if unitID == "" {
		return nil
	}
	for _, p := range s.players {
		if p.UnitID == unitID {
			return p
		}
	}
	return nil
}

// --- outbound ---

func (s *Session) sendTo(userID string, msg types.ServerMessage) {
	ch, ok := s.clients[userID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		// Slow client; drop them rather than block the session.
		close(ch)
		delete(s.clients, userID)
	}
}

func (s *Session) broadcast(msg types.ServerMessage) {
	for id, ch := range s.clients {
		select {
		case ch <- msg:
		default:
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) snapshotFor(userID string) *statesync.Snapshot {
	snap := &statesync.Snapshot{Version: s.version, State: s.state}
	if slot := s.slotByUser(userID); slot != nil {
		snap.YourUnitID = slot.UnitID
	}
	return snap
}

func (s *Session) sendSnapshot(userID string) {
	s.sendTo(userID, types.ServerMessage{Type: types.MsgFullSnapshot, Snapshot: s.snapshotFor(userID)})
}

func (s *Session) broadcastSnapshots() {
	for id := range s.clients {
		s.sendSnapshot(id)
	}
}

func (s *Session) sendError(userID string, seq int, e *Error) {
	s.sendTo(userID, types.ServerMessage{Type: types.MsgError, Seq: seq, Code: e.Code, Error: e.Message})
}

// --- commit path ---

// commit replaces the authoritative state, bumps the version exactly once,
// appends events, persists, and broadcasts the delta. The version bump and
// event append land before any client hears about the change.
func (s *Session) commit(pre *game.GameState, ns *game.GameState, events []game.Event) {
	oldV := s.version
	s.version++
	s.state = ns
	s.eventCount += len(events)

	s.persist(events)

	delta, err := statesync.Diff(pre, ns, oldV, s.version)
	if err != nil {
		// Can't describe the change incrementally; everyone gets a fresh
		// snapshot instead.
		s.log.Error("delta diff failed", zap.Error(err))
		s.broadcastSnapshots()
		return
	}
	s.broadcast(types.ServerMessage{Type: types.MsgStateDelta, Delta: &delta, Events: events})
}

func (s *Session) persist(events []game.Event) {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	rec := store.SessionRecord{
		ID:       s.id,
		JoinCode: s.joinCode,
		OwnerID:  s.ownerID,
		Status:   string(s.status),
		Version:  s.version,
	}
	if s.state != nil {
		rec.State, _ = json.Marshal(s.state)
	}
	rec.Players, _ = json.Marshal(s.players)
	rec.Config, _ = json.Marshal(s.cfg)
	if !s.endedAt.IsZero() {
		t := s.endedAt
		rec.EndedAt = &t
	}
	if err := s.st.SaveSession(ctx, rec); err != nil {
		s.log.Error("persist session", zap.Error(err))
	}

	if len(events) == 0 {
		return
	}
	recs := make([]store.EventRecord, 0, len(events))
	for _, e := range events {
		payload, _ := json.Marshal(e)
		recs = append(recs, store.EventRecord{
			SessionID: s.id,
			Version:   s.version,
			Type:      string(e.Type),
			Payload:   payload,
		})
	}
	if err := s.st.AppendEvents(ctx, recs); err != nil {
		s.log.Error("append events", zap.Error(err))
	}
}

// mutateState runs a DM mutation against a clone of the state and commits
// it through the normal path, so admin changes broadcast deltas like any
// action.
func (s *Session) mutateState(fn func(ns *game.GameState) (*Error, []game.Event)) *Error {
	if s.state == nil {
		return ErrGameStateNotInitialized
	}
	pre := s.state
	ns := s.state.Clone()
	errp, events := fn(ns)
	if errp != nil {
		return errp
	}
	s.commit(pre, ns, events)
	s.checkOutcome()
	return nil
}

func (s *Session) checkOutcome() {
	if s.status != StatusPlaying || s.state == nil {
		return
	}
	if done, phase := s.state.Outcome(); done {
		s.state.Combat.Phase = phase
		if err := s.endGame(string(phase)); err != nil {
			s.log.Warn("auto end", zap.String("code", err.Code))
		}
	}
}

// --- timers ---

func (s *Session) cancelTurnTimer() { s.timerGen++ }

func (s *Session) armTurnTimer(d time.Duration) {
	s.timerGen++
	gen := s.timerGen
	time.AfterFunc(d, func() {
		select {
		case s.inbox <- timerFired{gen: gen}:
		case <-s.ctx.Done():
		}
	})
}

// startTurnCycle cancels whatever timer the previous turn armed and arms
// the right one for the new current unit.
func (s *Session) startTurnCycle(unitID string) {
	s.cancelTurnTimer()
	if unitID == "" {
		return
	}
	s.turns.StartTurn(time.Now())

	if s.slotByUnit(unitID) == nil {
		// Ownerless turn: the monster strategy just ends it after a fixed
		// delay.
		s.armTurnTimer(s.cfg.MonsterDelay)
		return
	}
	if s.cfg.TurnTimeLimit > 0 {
		s.armTurnTimer(s.cfg.TurnTimeLimit)
	}
}

// announceTurn is the single post-advance path: broadcast the new turn,
// honor the every-N-rounds full sync on a wrap, and arm the right timer.
// Every way a turn can change (action, timeout, skip, removal of the
// current unit) funnels through here so no stale timer survives.
func (s *Session) announceTurn(next string, newRound bool) {
	s.broadcast(types.ServerMessage{Type: types.MsgTurnChange, UnitID: next, Round: s.turns.Round})
	if newRound && s.cfg.FullSyncEveryRounds > 0 && s.turns.Round%s.cfg.FullSyncEveryRounds == 0 {
		// Periodic full sync bounds drift from any missed delta.
		s.broadcastSnapshots()
	}
	s.startTurnCycle(next)
}

func (s *Session) armGrace(userID string) {
	s.graceGen++
	s.graceUser = userID
	gen := s.graceGen
	time.AfterFunc(s.cfg.DisconnectGrace, func() {
		select {
		case s.inbox <- graceExpired{gen: gen, userID: userID}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) handleGraceExpired(m graceExpired) {
	if m.gen != s.graceGen || s.status != StatusPlaying {
		return
	}
	slot := s.slotByUser(m.userID)
	if slot == nil || slot.Connection != ConnDisconnected {
		return
	}
	if slot.UnitID != s.turns.Current() {
		return
	}
	s.forceEndTurn("disconnect grace expired")
}
