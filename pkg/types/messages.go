// Package types holds the wire messages shared with clients. The identity
// layer upstream verifies the user behind each connection; nothing here
// carries credentials.
package types

import (
	"github.com/DoyleJ11/tactics-backend/internal/game"
	"github.com/DoyleJ11/tactics-backend/internal/statesync"
)

// Client -> Server
const (
	MsgJoinGame        = "join_game"
	MsgLeaveGame       = "leave_game"
	MsgReady           = "ready"
	MsgAction          = "action"
	MsgDmCommand       = "dm_command"
	MsgRequestFullSync = "request_full_sync"
)

// Server -> Client
const (
	MsgFullSnapshot = "full_snapshot"
	MsgStateDelta   = "state_delta"
	MsgTurnChange   = "turn_change"
	MsgPlayerJoined = "player_joined"
	MsgPlayerLeft   = "player_left"
	MsgGameEnded    = "game_ended"
	MsgEvents       = "events"
	MsgAck          = "ack"
	MsgError        = "error"
)

type ClientMessage struct {
	Type string `json:"type"`
	// Seq correlates replies (acks and errors) to this request.
	Seq         int          `json:"seq,omitempty"`
	CharacterID string       `json:"character_id,omitempty"`
	Action      *game.Action `json:"action,omitempty"`
	Dm          *DmPayload   `json:"dm,omitempty"`
}

// DmPayload is the wire form of an administrative command; the ws layer
// translates it into the session's closed DmCommand set.
type DmPayload struct {
	Type         string         `json:"type"`
	TargetUserID string         `json:"target_user_id,omitempty"`
	UnitID       string         `json:"unit_id,omitempty"`
	Amount       int            `json:"amount,omitempty"`
	Name         string         `json:"name,omitempty"`
	Weapon       *game.Item     `json:"weapon,omitempty"`
	Position     *game.Position `json:"position,omitempty"`
	HP           *int           `json:"hp,omitempty"`
	AttackBonus  *int           `json:"attack_bonus,omitempty"`
	Result       string         `json:"result,omitempty"`
}

type ServerMessage struct {
	Type     string              `json:"type"`
	Seq      int                 `json:"seq,omitempty"`
	Snapshot *statesync.Snapshot `json:"snapshot,omitempty"`
	Delta    *statesync.Delta    `json:"delta,omitempty"`
	Events   []game.Event        `json:"events,omitempty"`
	UserID   string              `json:"user_id,omitempty"`
	UnitID   string              `json:"unit_id,omitempty"`
	Round    int                 `json:"round,omitempty"`
	Result   string              `json:"result,omitempty"`
	Code     string              `json:"code,omitempty"`
	Error    string              `json:"error,omitempty"`
}
