// Package store persists session snapshots and the append-only event log.
// The engine calls Save after every successful mutation and can rehydrate
// a session purely from the last persisted record plus its events.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: session not found")

type SessionRecord struct {
	ID       string `gorm:"primaryKey;size:64"`
	JoinCode string `gorm:"uniqueIndex;size:6"`
	OwnerID  string `gorm:"size:64"`
	Status   string `gorm:"size:16;index"`
	// State is the JSON snapshot of authoritative game state; empty until
	// the session starts.
	State []byte
	// Players is the JSON roster, kept alongside the state so rehydration
	// restores unit bindings.
	Players   []byte
	Config    []byte
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
	EndedAt   *time.Time
}

type EventRecord struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index;size:64"`
	// Version is the state version the event was committed under.
	Version   int
	Type      string `gorm:"size:32"`
	Payload   []byte
	CreatedAt time.Time
}

type Store interface {
	SaveSession(ctx context.Context, rec SessionRecord) error
	AppendEvents(ctx context.Context, events []EventRecord) error
	LoadSession(ctx context.Context, id string) (SessionRecord, []EventRecord, error)
	// ListActive returns every session not yet ended, for boot rehydration.
	ListActive(ctx context.Context) ([]SessionRecord, error)
}
