package session

import (
	"github.com/DoyleJ11/tactics-backend/internal/game"
	"github.com/DoyleJ11/tactics-backend/internal/store"
	"github.com/DoyleJ11/tactics-backend/pkg/types"
)

type Msg interface{ isSessionMsg() }

// Join adds a user to the roster and registers their outbox.
type Join struct {
	UserID      string
	CharacterID string
	Outbox      chan types.ServerMessage
	Reply       chan error
}

func (Join) isSessionMsg() {}

// Leave frees the roster slot in the lobby; mid-game it marks the slot
// disconnected instead so the unit binding survives.
type Leave struct{ UserID string }

func (Leave) isSessionMsg() {}

type Ready struct {
	UserID string
	Seq    int
}

func (Ready) isSessionMsg() {}

// FromClient carries one player action through the executor.
type FromClient struct {
	UserID string
	Seq    int
	Action game.Action
}

func (FromClient) isSessionMsg() {}

// FromDM carries one administrative command.
type FromDM struct {
	UserID string
	Seq    int
	Cmd    DmCommand
}

func (FromDM) isSessionMsg() {}

// RequestFullSync re-sends the current snapshot to one client. No side
// effects; honored in any status.
type RequestFullSync struct{ UserID string }

func (RequestFullSync) isSessionMsg() {}

type Disconnect struct{ UserID string }

func (Disconnect) isSessionMsg() {}

// Reconnect is a resynchronization, not a join: the client always gets a
// fresh full snapshot because it may have missed any number of versions.
type Reconnect struct {
	UserID string
	Outbox chan types.ServerMessage
	Reply  chan error
}

func (Reconnect) isSessionMsg() {}

// timerFired is posted by the armed turn (or monster) timer. Stale fires
// carry an old generation and are dropped.
type timerFired struct{ gen int }

func (timerFired) isSessionMsg() {}

// graceExpired is posted when a disconnected current-turn owner ran out of
// their grace window.
type graceExpired struct {
	gen    int
	userID string
}

func (graceExpired) isSessionMsg() {}

// restore loads a persisted record into a fresh actor during rehydration.
type restore struct {
	rec  store.SessionRecord
	done chan error
}

func (restore) isSessionMsg() {}

// GetView reflects internal state without data races; test-only.
type GetView struct{ Reply chan View }

func (GetView) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type View struct {
	Status      Status
	Version     int
	NumClients  int
	Players     []PlayerSlot
	State       *game.GameState
	CurrentUnit string
	Round       int
	EventCount  int
}
