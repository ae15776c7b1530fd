package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemory_SaveLoadRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := SessionRecord{
		ID:       "sess-1",
		JoinCode: "ABCDEF",
		OwnerID:  "dm",
		Status:   "playing",
		Version:  3,
		State:    []byte(`{"units":[]}`),
		EndedAt:  nil,
	}
	if err := m.SaveSession(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	events := []EventRecord{
		{SessionID: "sess-1", Version: 2, Type: "unit_moved", Payload: []byte(`{}`)},
		{SessionID: "sess-1", Version: 3, Type: "turn_changed", Payload: []byte(`{}`)},
	}
	if err := m.AppendEvents(ctx, events); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, gotEvents, err := m.LoadSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.JoinCode != "ABCDEF" || got.Version != 3 || got.Status != "playing" {
		t.Fatalf("record round trip: %+v", got)
	}
	if len(gotEvents) != 2 || gotEvents[1].Type != "turn_changed" {
		t.Fatalf("events round trip: %+v", gotEvents)
	}
}

func TestMemory_LoadUnknownIsNotFound(t *testing.T) {
	m := NewMemory()
	if _, _, err := m.LoadSession(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemory_SaveOverwritesByID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.SaveSession(ctx, SessionRecord{ID: "sess-1", Version: 1, Status: "lobby"})
	_ = m.SaveSession(ctx, SessionRecord{ID: "sess-1", Version: 5, Status: "playing"})

	got, _, err := m.LoadSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Version != 5 || got.Status != "playing" {
		t.Fatalf("latest save should win: %+v", got)
	}
}

func TestMemory_ListActiveSkipsEnded(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.SaveSession(ctx, SessionRecord{ID: "live-1", Status: "playing"})
	_ = m.SaveSession(ctx, SessionRecord{ID: "live-2", Status: "lobby"})
	_ = m.SaveSession(ctx, SessionRecord{ID: "done", Status: "ended"})

	active, err := m.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("want 2 active, got %d", len(active))
	}
	for _, rec := range active {
		if rec.Status == "ended" {
			t.Fatalf("ended session listed as active: %+v", rec)
		}
	}
}
