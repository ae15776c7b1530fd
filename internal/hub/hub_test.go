package hub

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tactics-backend/internal/rules"
	"github.com/DoyleJ11/tactics-backend/internal/session"
	"github.com/DoyleJ11/tactics-backend/internal/store"
)

func newTestHub(t *testing.T) (*Hub, *store.Memory) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine := rules.New()
	mem := store.NewMemory()
	h := NewHub(ctx, session.Deps{
		Sim:   engine,
		Boot:  engine,
		Store: mem,
		Log:   zap.NewNop(),
	})
	return h, mem
}

func create(t *testing.T, h *Hub, id string) *session.Session {
	t.Helper()
	reply := make(chan CreateResult, 1)
	h.Inbox() <- CreateSession{ID: id, OwnerID: "dm", Cfg: session.Config{MaxPlayers: 4}, Reply: reply}
	select {
	case res := <-reply:
		if res.Err != nil {
			t.Fatalf("create %s: %v", id, res.Err)
		}
		return res.Session
	case <-time.After(time.Second):
		t.Fatal("timed out creating session")
		return nil
	}
}

func getByCode(t *testing.T, h *Hub, code string) *session.Session {
	t.Helper()
	reply := make(chan *session.Session, 1)
	h.Inbox() <- GetByCode{Code: code, Reply: reply}
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out on lookup")
		return nil
	}
}

func TestCreateAndLookup(t *testing.T) {
	h, _ := newTestHub(t)
	s := create(t, h, "sess-1")

	reply := make(chan *session.Session, 1)
	h.Inbox() <- GetByID{ID: "sess-1", Reply: reply}
	if got := <-reply; got != s {
		t.Fatalf("GetByID returned a different session: %p vs %p", got, s)
	}
	if got := getByCode(t, h, s.JoinCode()); got != s {
		t.Fatal("GetByCode returned a different session")
	}
	if got := getByCode(t, h, "NOSUCH"); got != nil {
		t.Fatal("unknown code should resolve to nil")
	}
}

func TestJoinCodeShape(t *testing.T) {
	h, _ := newTestHub(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		s := create(t, h, "sess-"+strings.Repeat("x", i+1))
		code := s.JoinCode()
		if len(code) != codeLength {
			t.Fatalf("code length: want %d, got %q", codeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q uses %q outside the alphabet", code, r)
			}
		}
		if seen[code] {
			t.Fatalf("duplicate join code %q", code)
		}
		seen[code] = true
	}
}

func TestCreateRejectsBadConfig(t *testing.T) {
	h, _ := newTestHub(t)
	reply := make(chan CreateResult, 1)
	h.Inbox() <- CreateSession{ID: "sess-bad", OwnerID: "dm", Cfg: session.Config{MaxPlayers: 1}, Reply: reply}
	res := <-reply

	var se *session.Error
	if !errors.As(res.Err, &se) || se.Code != "INVALID_CONFIG" {
		t.Fatalf("want INVALID_CONFIG, got %v", res.Err)
	}
	if res.Session != nil {
		t.Fatal("no session should exist for a rejected config")
	}
}

func TestRemoveForgetsCode(t *testing.T) {
	h, _ := newTestHub(t)
	s := create(t, h, "sess-1")
	code := s.JoinCode()

	h.Inbox() <- Remove{ID: "sess-1"}
	if got := getByCode(t, h, code); got != nil {
		t.Fatal("removed session still resolvable by code")
	}
}

func TestRestoreRehydratesActiveSessions(t *testing.T) {
	h, mem := newTestHub(t)
	// A record left behind by a previous process.
	err := mem.SaveSession(context.Background(), store.SessionRecord{
		ID:       "sess-old",
		JoinCode: "QRSTUV",
		OwnerID:  "dm",
		Status:   "lobby",
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := h.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restored := getByCode(t, h, "QRSTUV")
	if restored == nil {
		t.Fatal("session not restored from store")
	}
	if restored.ID() != "sess-old" {
		t.Fatalf("restored identity mismatch: %s", restored.ID())
	}
}
